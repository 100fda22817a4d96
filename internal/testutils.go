/*
 * FolderSync - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package internal

import (
	"net"
	"testing"

	"github.com/emersion/go-imap/backend"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
)

const (
	TestUsername = "username"
	TestPassword = "password"
)

// BuildTestIMAPServer starts an in-memory IMAP server on a random local port.
// The returned user can be used to shape the folder hierarchy behind the
// server's back.
func BuildTestIMAPServer(t *testing.T) (*server.Server, string, backend.User) {
	be := memory.New()
	user, err := be.Login(nil, TestUsername, TestPassword)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	s := server.New(be)
	t.Cleanup(func() { _ = s.Close() })

	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "localhost:0")
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	go func() { _ = s.Serve(l) }()

	return s, l.Addr().String(), user
}

// CreateMailboxes creates each named mailbox on the server side.
func CreateMailboxes(t *testing.T, user backend.User, names ...string) {
	for _, name := range names {
		if !assert.NoError(t, user.CreateMailbox(name)) {
			t.FailNow()
		}
	}
}

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

// Package imapconn implements remote.Connection on top of an IMAP server.
//
// Mailbox names are used as folder ids and UIDVALIDITY as the change key.
// The top-level Calendar, Tasks and Contacts mailboxes and everything below
// them are reported with the matching folder kind; everything else is mail.
package imapconn

import (
	"crypto/tls"
	"errors"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"

	"github.com/vs49688/foldersync/remote"
)

const (
	defaultDelimiter = "/"
	trashMailbox     = "Trash"
)

var (
	errInvalidScheme    = errors.New("invalid uri scheme")
	errNoAuthenticator  = errors.New("no authenticator configured")
	errInvalidSyncState = errors.New("invalid sync state")
	errUnsupportedKind  = errors.New("folder kind not supported under parent")
	errLoggedOut        = errors.New("connection logged out")
)

// distinguishedFolders maps well-known parent ids onto mailbox names.
var distinguishedFolders = map[string]string{
	"msgfolderroot": "",
	"calendar":      "Calendar",
	"tasks":         "Tasks",
	"contacts":      "Contacts",
}

type Factory struct {
	Auth      remote.Authenticator
	TLSConfig *tls.Config
	Debug     bool
}

// PersistentFactory makes connections that transparently redial after the
// server goes away, backing off between failed attempts.
type PersistentFactory struct {
	Factory  *Factory
	MaxDelay time.Duration
}

type persistentConnection struct {
	mu        sync.Mutex
	factory   *Factory
	hostURL   string
	maxDelay  time.Duration
	conn      *Connection
	nextDelay time.Duration
	closed    bool
}

type Connection struct {
	mu        sync.Mutex
	c         *client.Client
	host      string
	delimiter string
}

// folderState is what a sync token remembers about each mailbox.
type folderState struct {
	ChangeKey string            `json:"k"`
	Kind      remote.FolderKind `json:"t"`
}

type hierarchyState struct {
	Folders map[string]folderState `json:"f"`
}

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

package remote

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	authErr := fmt.Errorf("connecting: %w", &AuthenticationError{Host: "imap.example.com:993", Err: errors.New("bad creds")})
	netErr := &NetworkError{Op: "list", Err: io.EOF}
	protoErr := &ProtocolError{Op: "create", Err: errors.New("NO mailbox exists")}

	assert.True(t, IsAuthError(authErr))
	assert.False(t, IsAuthError(netErr))

	assert.True(t, IsNetworkError(netErr))
	assert.True(t, errors.Is(netErr, io.EOF))
	assert.False(t, IsNetworkError(protoErr))

	assert.True(t, IsProtocolError(protoErr))
	assert.False(t, IsProtocolError(authErr))

	assert.Equal(t, "create: NO mailbox exists", protoErr.Error())
}

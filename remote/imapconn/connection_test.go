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

package imapconn

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/emersion/go-imap/backend"
	"github.com/stretchr/testify/assert"

	"github.com/vs49688/foldersync/internal"
	"github.com/vs49688/foldersync/remote"
)

func connect(t *testing.T) (*Connection, backend.User) {
	_, address, user := internal.BuildTestIMAPServer(t)

	f := &Factory{Auth: remote.NewNormalAuthenticator(internal.TestUsername, internal.TestPassword)}
	conn, err := f.NewConnection(context.Background(), "imap://"+address)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	t.Cleanup(func() { _ = conn.Close() })
	return conn.(*Connection), user
}

func byID(folders []remote.Folder) map[string]remote.Folder {
	m := make(map[string]remote.Folder, len(folders))
	for _, f := range folders {
		m[f.ID.ID] = f
	}
	return m
}

func mailboxExists(user backend.User, name string) bool {
	_, err := user.GetMailbox(name)
	return err == nil
}

func TestExtractURL(t *testing.T) {
	cases := []struct {
		in       string
		hostPort string
		tls      bool
	}{
		{"imap://imap.example.com", "imap.example.com:143", false},
		{"imaps://imap.example.com", "imap.example.com:993", true},
		{"IMAPS://imap.example.com:1234", "imap.example.com:1234", true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			u, err := url.Parse(tc.in)
			if !assert.NoError(t, err) {
				t.FailNow()
			}

			hostPort, useTLS, err := ExtractURL(u)
			assert.NoError(t, err)
			assert.Equal(t, tc.hostPort, hostPort)
			assert.Equal(t, tc.tls, useTLS)
		})
	}

	t.Run("bad_scheme", func(t *testing.T) {
		_, _, err := ExtractURL(&url.URL{Scheme: "https", Host: "example.com"})
		assert.ErrorIs(t, err, errInvalidScheme)
	})
}

func TestNewConnection(t *testing.T) {
	t.Run("bad_password", func(t *testing.T) {
		_, address, _ := internal.BuildTestIMAPServer(t)

		f := &Factory{Auth: remote.NewNormalAuthenticator(internal.TestUsername, "wrong")}
		_, err := f.NewConnection(context.Background(), "imap://"+address)
		assert.True(t, remote.IsAuthError(err))
	})

	t.Run("no_authenticator", func(t *testing.T) {
		_, address, _ := internal.BuildTestIMAPServer(t)

		f := &Factory{}
		_, err := f.NewConnection(context.Background(), "imap://"+address)
		assert.True(t, remote.IsAuthError(err))
	})

	t.Run("refused", func(t *testing.T) {
		l, err := net.Listen("tcp", "localhost:0")
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		address := l.Addr().String()
		_ = l.Close()

		f := &Factory{Auth: remote.NewNormalAuthenticator(internal.TestUsername, internal.TestPassword)}
		_, err = f.NewConnection(context.Background(), "imap://"+address)
		assert.True(t, remote.IsNetworkError(err))
	})
}

func TestSyncFolderHierarchy(t *testing.T) {
	conn, user := connect(t)
	ctx := context.Background()

	internal.CreateMailboxes(t, user, "Archive", "Calendar", "Calendar/Work", "Contacts", "Tasks")

	delta, err := conn.SyncFolderHierarchy(ctx, remote.PriorityMedium, "")
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.True(t, delta.IncludesLastFolder)
	assert.NotEmpty(t, delta.SyncState)
	assert.Empty(t, delta.Updated)
	assert.Empty(t, delta.Deleted)

	created := byID(delta.Created)
	assert.Equal(t, remote.KindMail, created["INBOX"].Kind)
	assert.Equal(t, remote.KindMail, created["Archive"].Kind)
	assert.Equal(t, remote.KindCalendar, created["Calendar"].Kind)
	assert.Equal(t, remote.KindContacts, created["Contacts"].Kind)
	assert.Equal(t, remote.KindTasks, created["Tasks"].Kind)
	assert.Equal(t, remote.Folder{
		ID:   remote.FolderID{ID: "Calendar/Work", ChangeKey: "1"},
		Name: "Work",
		Kind: remote.KindCalendar,
	}, created["Calendar/Work"])

	t.Run("unchanged", func(t *testing.T) {
		again, err := conn.SyncFolderHierarchy(ctx, remote.PriorityMedium, delta.SyncState)
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Empty(t, again.Created)
		assert.Empty(t, again.Updated)
		assert.Empty(t, again.Deleted)
		assert.Equal(t, delta.SyncState, again.SyncState)
	})

	t.Run("incremental", func(t *testing.T) {
		internal.CreateMailboxes(t, user, "Calendar/Home")
		if !assert.NoError(t, user.DeleteMailbox("Archive")) {
			t.FailNow()
		}

		next, err := conn.SyncFolderHierarchy(ctx, remote.PriorityMedium, delta.SyncState)
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, []remote.Folder{{
			ID:   remote.FolderID{ID: "Calendar/Home", ChangeKey: "1"},
			Name: "Home",
			Kind: remote.KindCalendar,
		}}, next.Created)
		assert.Equal(t, []string{"Archive"}, next.Deleted)
		assert.NotEqual(t, delta.SyncState, next.SyncState)
	})

	t.Run("invalid_state", func(t *testing.T) {
		_, err := conn.SyncFolderHierarchy(ctx, remote.PriorityMedium, "!!not a token!!")
		assert.True(t, remote.IsProtocolError(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := conn.SyncFolderHierarchy(cctx, remote.PriorityMedium, delta.SyncState)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestCreateFolder(t *testing.T) {
	conn, user := connect(t)
	ctx := context.Background()

	t.Run("recursive", func(t *testing.T) {
		id, err := conn.CreateFolder(ctx, remote.PriorityMedium, "calendar", true, "Team", remote.KindCalendar)
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, remote.FolderID{ID: "Calendar/Team", ChangeKey: "1"}, id)
		assert.True(t, mailboxExists(user, "Calendar"))
		assert.True(t, mailboxExists(user, "Calendar/Team"))
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := conn.CreateFolder(ctx, remote.PriorityMedium, "calendar", true, "Team", remote.KindCalendar)
		assert.True(t, remote.IsProtocolError(err))
	})

	t.Run("wrong_kind", func(t *testing.T) {
		_, err := conn.CreateFolder(ctx, remote.PriorityMedium, "contacts", true, "People", remote.KindTasks)
		assert.True(t, remote.IsProtocolError(err))
		assert.False(t, mailboxExists(user, "Contacts/People"))
	})
}

func TestDeleteFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("hard_recursive", func(t *testing.T) {
		conn, user := connect(t)
		internal.CreateMailboxes(t, user, "Contacts", "Contacts/A", "Contacts/A/B")

		err := conn.DeleteFolder(ctx, remote.PriorityMedium, "Contacts/A", true, remote.DeleteModeHard)
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.False(t, mailboxExists(user, "Contacts/A"))
		assert.False(t, mailboxExists(user, "Contacts/A/B"))
		assert.True(t, mailboxExists(user, "Contacts"))
	})

	t.Run("soft", func(t *testing.T) {
		conn, user := connect(t)
		internal.CreateMailboxes(t, user, "Tasks", "Tasks/Chores")

		err := conn.DeleteFolder(ctx, remote.PriorityMedium, "Tasks/Chores", false, remote.DeleteModeSoft)
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.False(t, mailboxExists(user, "Tasks/Chores"))
		assert.True(t, mailboxExists(user, "Trash/Chores"))
	})

	t.Run("missing", func(t *testing.T) {
		conn, _ := connect(t)

		err := conn.DeleteFolder(ctx, remote.PriorityMedium, "Nope", false, remote.DeleteModeHard)
		assert.True(t, remote.IsProtocolError(err))
	})
}

func TestClosedConnection(t *testing.T) {
	conn, _ := connect(t)

	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	_, err := conn.SyncFolderHierarchy(context.Background(), remote.PriorityMedium, "")
	assert.True(t, remote.IsNetworkError(err))
}

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

package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/vs49688/foldersync/registry"
	"github.com/vs49688/foldersync/remote"
)

func TestCreateResource(t *testing.T) {
	e := newTestEnv(t, "")
	e.expectConnect()

	e.conn.EXPECT().CreateFolder(gomock.Any(), remote.PriorityMedium, "calendar", true, "Work", remote.KindCalendar).
		Return(remote.FolderID{ID: "Calendar/Work", ChangeKey: "42"}, nil)

	src := &registry.Source{
		DisplayName: "Work",
		Calendar:    &registry.BackendExtension{BackendName: backendName},
	}

	if !assert.NoError(t, e.b.CreateResource(context.Background(), src)) {
		t.FailNow()
	}

	assert.NotEmpty(t, src.UID)
	assert.Equal(t, testCollectionUID, src.Parent)
	assert.Equal(t, &registry.FolderExtension{ID: "Calendar/Work", ChangeKey: "42"}, src.Folder)
	assert.Equal(t, filepath.Join(e.cacheDir, src.UID), src.WriteDirectory)
	assert.True(t, src.Writable)
	assert.True(t, src.RemoteDeletable)

	assert.Same(t, src, e.reg.Registry.Source(src.UID))

	indexed, ok := e.b.folders.lookup("Calendar/Work")
	assert.True(t, ok)
	assert.Same(t, src, indexed)
}

func TestCreateResourceKindPrecedence(t *testing.T) {
	e := newTestEnv(t, "")
	e.expectConnect()

	e.conn.EXPECT().CreateFolder(gomock.Any(), remote.PriorityMedium, "tasks", true, "Both", remote.KindTasks).
		Return(remote.FolderID{ID: "Tasks/Both", ChangeKey: "1"}, nil)

	src := &registry.Source{
		UID:         "both",
		DisplayName: "Both",
		Calendar:    &registry.BackendExtension{},
		TaskList:    &registry.BackendExtension{},
		AddressBook: &registry.BackendExtension{},
	}

	assert.NoError(t, e.b.CreateResource(context.Background(), src))
	assert.Equal(t, "both", src.UID)
	assert.Equal(t, "Tasks/Both", src.Folder.ID)
}

func TestCreateResourceInvalidArgument(t *testing.T) {
	e := newTestEnv(t, "")

	// No factory expectations: the connection must not be touched.
	err := e.b.CreateResource(context.Background(), &registry.Source{DisplayName: "Nothing"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, e.children())
}

func TestCreateResourceFailure(t *testing.T) {
	e := newTestEnv(t, "")
	e.expectConnect()

	e.conn.EXPECT().CreateFolder(gomock.Any(), remote.PriorityMedium, "contacts", true, "Friends", remote.KindContacts).
		Return(remote.FolderID{}, &remote.ProtocolError{Op: "create", Err: errors.New("already exists")})

	src := &registry.Source{
		DisplayName: "Friends",
		AddressBook: &registry.BackendExtension{},
	}

	err := e.b.CreateResource(context.Background(), src)
	assert.True(t, remote.IsProtocolError(err))
	assert.Nil(t, src.Folder)
	assert.Empty(t, src.UID)
	assert.Empty(t, e.children())
	assert.Equal(t, int32(0), e.reg.adds)
}

func TestCreateResourceRegisterFailure(t *testing.T) {
	e := newTestEnv(t, "")
	e.expectConnect()

	taken := &registry.Source{UID: "taken", DisplayName: "Taken"}
	assert.NoError(t, e.reg.Registry.AddSource(taken))

	e.conn.EXPECT().CreateFolder(gomock.Any(), remote.PriorityMedium, "calendar", true, "Dup", remote.KindCalendar).
		Return(remote.FolderID{ID: "Calendar/Dup", ChangeKey: "1"}, nil)

	src := &registry.Source{
		UID:         "taken",
		DisplayName: "Dup",
		Calendar:    &registry.BackendExtension{},
	}

	err := e.b.CreateResource(context.Background(), src)
	assert.ErrorIs(t, err, registry.ErrDuplicateSource)
	assert.Nil(t, src.Folder)
	assert.Empty(t, src.Parent)

	_, ok := e.b.folders.lookup("Calendar/Dup")
	assert.False(t, ok)
}

func TestCreateResourceAfterSync(t *testing.T) {
	e := newTestEnv(t, "")
	mirrored := e.seedChild(t)

	e.conn.EXPECT().CreateFolder(gomock.Any(), remote.PriorityMedium, "calendar", true, "Work", remote.KindCalendar).
		Return(remote.FolderID{ID: "Calendar/Work", ChangeKey: "ck-Calendar/Work"}, nil)

	src := &registry.Source{
		DisplayName: "Work",
		Calendar:    &registry.BackendExtension{BackendName: backendName},
	}

	if !assert.NoError(t, e.b.CreateResource(context.Background(), src)) {
		t.FailNow()
	}

	assert.Equal(t, mirrored.UID, src.UID)
	assert.Same(t, src, e.reg.Registry.Source(src.UID))

	var matches []*registry.Source
	for _, c := range e.children() {
		if c.Folder != nil && c.Folder.ID == "Calendar/Work" {
			matches = append(matches, c)
		}
	}
	if assert.Len(t, matches, 1) {
		assert.Same(t, src, matches[0])
	}

	indexed, ok := e.b.folders.lookup("Calendar/Work")
	assert.True(t, ok)
	assert.Same(t, src, indexed)
}

// blockDispatcher holds the dispatcher until the returned func is called.
func (e *testEnv) blockDispatcher(t *testing.T) func() {
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = e.b.dispatch.Invoke(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher never picked up the blocking request")
	}

	return func() { close(release) }
}

func TestCreateResourceCallerCancelled(t *testing.T) {
	e := newTestEnv(t, "")
	e.expectConnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created := make(chan struct{})
	e.conn.EXPECT().CreateFolder(gomock.Any(), remote.PriorityMedium, "calendar", true, "Work", remote.KindCalendar).
		DoAndReturn(func(context.Context, remote.Priority, string, bool, string, remote.FolderKind) (remote.FolderID, error) {
			cancel()
			close(created)
			return remote.FolderID{ID: "Calendar/Work", ChangeKey: "42"}, nil
		})

	release := e.blockDispatcher(t)

	src := &registry.Source{
		DisplayName: "Work",
		Calendar:    &registry.BackendExtension{},
	}

	res := make(chan error, 1)
	go func() { res <- e.b.CreateResource(ctx, src) }()

	<-created
	time.Sleep(50 * time.Millisecond)

	select {
	case err := <-res:
		t.Fatalf("returned before registration ran: %v", err)
	default:
	}

	release()

	assert.NoError(t, <-res)
	assert.Same(t, src, e.reg.Registry.Source(src.UID))

	_, ok := e.b.folders.lookup("Calendar/Work")
	assert.True(t, ok)
}

func (e *testEnv) seedChild(t *testing.T) *registry.Source {
	e.expectConnect()
	e.sync(t, "", &remote.HierarchyDelta{
		SyncState:          "t1",
		IncludesLastFolder: true,
		Created:            []remote.Folder{folder("Calendar/Work", "Work", remote.KindCalendar)},
	})

	src, ok := e.b.folders.lookup("Calendar/Work")
	if !assert.True(t, ok) {
		t.FailNow()
	}
	return src
}

func TestDeleteResource(t *testing.T) {
	e := newTestEnv(t, "")
	src := e.seedChild(t)

	e.conn.EXPECT().DeleteFolder(gomock.Any(), remote.PriorityMedium, "Calendar/Work", false, remote.DeleteModeHard).
		Return(nil)

	assert.NoError(t, e.b.DeleteResource(context.Background(), src))
	assert.Nil(t, e.reg.Registry.Source(src.UID))

	_, ok := e.b.folders.lookup("Calendar/Work")
	assert.False(t, ok)
}

func TestDeleteResourceInvalidArgument(t *testing.T) {
	e := newTestEnv(t, "")

	err := e.b.DeleteResource(context.Background(), &registry.Source{DisplayName: "Local"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = e.b.DeleteResource(context.Background(), &registry.Source{
		DisplayName: "Empty",
		Folder:      &registry.FolderExtension{},
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteResourceFailure(t *testing.T) {
	e := newTestEnv(t, "")
	src := e.seedChild(t)

	e.conn.EXPECT().DeleteFolder(gomock.Any(), remote.PriorityMedium, "Calendar/Work", false, remote.DeleteModeHard).
		Return(&remote.ProtocolError{Op: "delete", Err: errors.New("no such mailbox")})

	err := e.b.DeleteResource(context.Background(), src)
	assert.True(t, remote.IsProtocolError(err))
	assert.Same(t, src, e.reg.Registry.Source(src.UID))

	_, ok := e.b.folders.lookup("Calendar/Work")
	assert.True(t, ok)
}

func TestDeleteResourceCallerCancelled(t *testing.T) {
	e := newTestEnv(t, "")
	src := e.seedChild(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deleted := make(chan struct{})
	e.conn.EXPECT().DeleteFolder(gomock.Any(), remote.PriorityMedium, "Calendar/Work", false, remote.DeleteModeHard).
		DoAndReturn(func(context.Context, remote.Priority, string, bool, remote.DeleteMode) error {
			cancel()
			close(deleted)
			return nil
		})

	release := e.blockDispatcher(t)

	res := make(chan error, 1)
	go func() { res <- e.b.DeleteResource(ctx, src) }()

	<-deleted
	time.Sleep(50 * time.Millisecond)

	select {
	case err := <-res:
		t.Fatalf("returned before unregistering: %v", err)
	default:
	}

	release()

	assert.NoError(t, <-res)
	assert.Nil(t, e.reg.Registry.Source(src.UID))

	_, ok := e.b.folders.lookup("Calendar/Work")
	assert.False(t, ok)
}

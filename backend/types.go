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

// Package backend mirrors a remote folder hierarchy into a collection of
// local sources.
//
// Network operations run on the caller's goroutine. Every change to the
// registry made by the backend, and every directory provisioning decision,
// is applied in order on a single dispatcher goroutine.
package backend

import (
	"errors"
	"sync"

	"github.com/vs49688/foldersync/registry"
	"github.com/vs49688/foldersync/remote"
)

const backendName = "foldersync"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrClosed          = errors.New("backend closed")
)

type Settings interface {
	HostURL() string
	// DirectorySelection returns the "id:name" string naming the directory
	// to provision, or an empty string for the default.
	DirectorySelection() string
	DirectorySourceUID() string
	SetDirectorySourceUID(uid string) error
	Subscribe(fn func()) (cancel func())
}

type Registry interface {
	AddSource(src *registry.Source) error
	RemoveSource(src *registry.Source) error
	Source(uid string) *registry.Source
	Subscribe(o registry.Observer) (cancel func())
}

type Config struct {
	// Collection is the parent of every source the backend creates.
	Collection *registry.Source
	Registry   Registry
	Settings   Settings
	Factory    remote.Factory
	// CacheDir is where created resources keep their local data.
	CacheDir string
}

type Backend struct {
	collection *registry.Source
	registry   Registry
	settings   Settings
	factory    remote.Factory
	cacheDir   string

	connLock sync.Mutex
	conn     remote.Connection
	closed   bool

	stateLock sync.Mutex
	syncState string

	// passGuard holds a token while a sync pass is in flight.
	passGuard chan struct{}

	folders  *folderIndex
	dispatch *dispatcher

	// Only touched on the dispatcher.
	provisionedSelection string

	cancelRegistry func()
	cancelSettings func()
	closeOnce      sync.Once
}

// syncJob is one hierarchy delta waiting to be applied.
type syncJob struct {
	created []remote.Folder
	updated []remote.Folder
	deleted []string
}

type settingsChangedRequest struct{}

type invokeRequest struct {
	r  chan error
	fn func() error
}

type dispatcher struct {
	mu     sync.Mutex
	queue  []interface{}
	closed bool
	wake   chan struct{}
	quit   chan struct{}
	done   chan struct{}
	handle func(req interface{})
}

type folderIndex struct {
	mu      sync.RWMutex
	folders map[string]*registry.Source
}

// DirectorySelection names the directory the address-book placeholder is
// created for.
type DirectorySelection struct {
	ID   string
	Name string
}

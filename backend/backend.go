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

	log "github.com/sirupsen/logrus"
)

var errMissingConfig = errors.New("collection, registry, settings and factory are required")

func New(cfg *Config) (*Backend, error) {
	if cfg.Collection == nil || cfg.Collection.UID == "" || cfg.Registry == nil || cfg.Settings == nil || cfg.Factory == nil {
		return nil, errMissingConfig
	}

	b := &Backend{
		collection: cfg.Collection,
		registry:   cfg.Registry,
		settings:   cfg.Settings,
		factory:    cfg.Factory,
		cacheDir:   cfg.CacheDir,
		passGuard:  make(chan struct{}, 1),
		folders:    newFolderIndex(),
	}

	// New folders may be created under the collection.
	b.collection.RemoteCreatable = true

	if b.registry.Source(b.collection.UID) == nil {
		if err := b.registry.AddSource(b.collection); err != nil {
			return nil, err
		}
	}

	b.provisionedSelection = b.settings.DirectorySelection()
	b.dispatch = newDispatcher(b.handleRequest)

	b.cancelRegistry = b.registry.Subscribe(b)
	b.cancelSettings = b.settings.Subscribe(func() {
		b.dispatch.Post(settingsChangedRequest{})
	})

	b.log().WithFields(log.Fields{
		"name":      b.collection.DisplayName,
		"cache_dir": b.cacheDir,
	}).Debug("backend_created")

	return b, nil
}

// Populate makes sure the directory placeholder exists and runs the first
// sync pass.
func (b *Backend) Populate(ctx context.Context) error {
	if err := b.dispatch.Invoke(ctx, b.ensureDirectorySource); err != nil {
		return err
	}

	return b.SyncFolders(ctx)
}

// Close stops the dispatcher and closes the connection. Changes fetched but
// not yet applied are dropped; the next backend does a full resync.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.cancelSettings()
		b.cancelRegistry()
		b.dispatch.Close()

		b.connLock.Lock()
		conn := b.conn
		b.conn = nil
		b.closed = true
		b.connLock.Unlock()

		if conn != nil {
			err = conn.Close()
		}

		b.log().Debug("backend_closed")
	})
	return err
}

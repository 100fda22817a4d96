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

	log "github.com/sirupsen/logrus"

	"github.com/vs49688/foldersync/remote"
)

func (b *Backend) currentSyncState() string {
	b.stateLock.Lock()
	defer b.stateLock.Unlock()
	return b.syncState
}

func (b *Backend) setSyncState(state string) {
	b.stateLock.Lock()
	defer b.stateLock.Unlock()
	b.syncState = state
}

// SyncFolders fetches the hierarchy changes since the last successful pass
// and queues them for reconciliation. It returns once the changes have been
// fetched; it does not wait for them to be applied.
//
// Only one pass runs at a time. A second caller waits for the first to
// finish and then continues from the state it stored.
func (b *Backend) SyncFolders(ctx context.Context) error {
	select {
	case b.passGuard <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-b.passGuard }()

	conn, err := b.Connection(ctx)
	if err != nil {
		return err
	}

	state := b.currentSyncState()
	b.log().WithField("full", state == "").Debug("backend_sync_start")

	delta, err := conn.SyncFolderHierarchy(ctx, remote.PriorityMedium, state)
	if err != nil {
		b.log().WithError(err).Error("backend_sync_failed")
		return err
	}

	// Advanced before the delta is applied.
	b.setSyncState(delta.SyncState)

	b.log().WithFields(log.Fields{
		"created":            len(delta.Created),
		"updated":            len(delta.Updated),
		"deleted":            len(delta.Deleted),
		"includes_last_page": delta.IncludesLastFolder,
	}).Info("backend_sync_fetched")

	if !delta.IncludesLastFolder {
		b.log().Debug("backend_sync_more_pending")
	}

	if !b.dispatch.Post(syncJob{
		created: delta.Created,
		updated: delta.Updated,
		deleted: delta.Deleted,
	}) {
		return ErrClosed
	}

	return nil
}

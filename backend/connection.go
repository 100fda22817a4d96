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

func (b *Backend) publishedConnection() (remote.Connection, bool) {
	b.connLock.Lock()
	defer b.connLock.Unlock()
	return b.conn, b.closed
}

// Connection returns the shared connection, establishing it on first use.
//
// Concurrent first callers may each authenticate. The first to finish is kept
// and the others are closed. Failures are not remembered, so the next call
// tries again.
func (b *Backend) Connection(ctx context.Context) (remote.Connection, error) {
	if conn, closed := b.publishedConnection(); conn != nil {
		return conn, nil
	} else if closed {
		return nil, ErrClosed
	}

	hostURL := b.settings.HostURL()
	b.log().WithField("host_url", hostURL).Trace("backend_connection_create")

	conn, err := b.factory.NewConnection(ctx, hostURL)
	if err != nil {
		b.log().WithError(err).WithField("host_url", hostURL).Error("backend_connection_failed")
		return nil, err
	}

	b.connLock.Lock()
	if b.conn == nil && !b.closed {
		b.conn = conn
		b.connLock.Unlock()
		b.log().WithField("host_url", hostURL).Info("backend_connected")
		return conn, nil
	}

	existing, closed := b.conn, b.closed
	b.connLock.Unlock()

	b.log().WithField("closed", closed).Trace("backend_connection_discard")
	if err := conn.Close(); err != nil {
		b.log().WithError(err).Debug("backend_connection_discard_failed")
	}

	if closed {
		return nil, ErrClosed
	}

	return existing, nil
}

func (b *Backend) log() *log.Entry {
	return log.WithField("collection", b.collection.UID)
}

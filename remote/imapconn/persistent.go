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
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vs49688/foldersync/remote"
)

const defaultMaxDelay = 64 * time.Second

// NewConnection makes the first connection immediately so that bad
// credentials are reported to the caller. Later reconnects happen on demand.
func (f *PersistentFactory) NewConnection(ctx context.Context, hostURL string) (remote.Connection, error) {
	c, err := f.Factory.connect(ctx, hostURL)
	if err != nil {
		return nil, err
	}

	maxDelay := f.MaxDelay
	if maxDelay == 0 {
		maxDelay = defaultMaxDelay
	} else if maxDelay < time.Second {
		maxDelay = time.Second
	}

	return &persistentConnection{
		factory:  f.Factory,
		hostURL:  hostURL,
		maxDelay: maxDelay,
		conn:     c,
	}, nil
}

func (c *persistentConnection) log() *log.Entry {
	return log.WithField("url", c.hostURL)
}

func (c *persistentConnection) backoff() {
	if c.nextDelay == 0 {
		c.nextDelay = time.Second
	} else {
		c.nextDelay = 2 * (c.nextDelay - (c.nextDelay % time.Second))
	}

	c.nextDelay += time.Duration(rand.Intn(1000)) * time.Millisecond
	if c.nextDelay > c.maxDelay {
		c.nextDelay = c.maxDelay
	}
}

func isLoggedOut(c *Connection) bool {
	select {
	case <-c.LoggedOut():
		return true
	default:
		return false
	}
}

// current returns a live connection, redialing if the last one is gone.
func (c *persistentConnection) current(ctx context.Context) (*Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, &remote.NetworkError{Op: "connect", Err: errLoggedOut}
	}

	if c.conn != nil && !isLoggedOut(c.conn) {
		return c.conn, nil
	}

	if c.conn != nil {
		c.log().Trace("imapconn_persistent_disconnected")
		c.conn = nil
	}

	if c.nextDelay > 0 {
		c.log().WithField("delay", c.nextDelay).Trace("imapconn_persistent_reconnect_wait")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.nextDelay):
		}
	}

	conn, err := c.factory.connect(ctx, c.hostURL)
	if err != nil {
		c.backoff()
		c.log().WithError(err).WithField("new_delay", c.nextDelay).Error("imapconn_persistent_connection_failed")
		return nil, err
	}

	c.log().Debug("imapconn_persistent_reconnected")
	c.conn = conn
	c.nextDelay = 0
	return conn, nil
}

// drop forgets conn after a network failure so the next call redials.
func (c *persistentConnection) drop(conn *Connection, err error) {
	if !remote.IsNetworkError(err) {
		return
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	c.log().WithError(err).Warn("imapconn_persistent_connection_dropped")
	_ = conn.Close()
}

func (c *persistentConnection) CreateFolder(ctx context.Context, priority remote.Priority, parentID string, recursive bool, name string, kind remote.FolderKind) (remote.FolderID, error) {
	conn, err := c.current(ctx)
	if err != nil {
		return remote.FolderID{}, err
	}

	id, err := conn.CreateFolder(ctx, priority, parentID, recursive, name, kind)
	c.drop(conn, err)
	return id, err
}

func (c *persistentConnection) DeleteFolder(ctx context.Context, priority remote.Priority, id string, recursive bool, mode remote.DeleteMode) error {
	conn, err := c.current(ctx)
	if err != nil {
		return err
	}

	err = conn.DeleteFolder(ctx, priority, id, recursive, mode)
	c.drop(conn, err)
	return err
}

func (c *persistentConnection) SyncFolderHierarchy(ctx context.Context, priority remote.Priority, syncState string) (*remote.HierarchyDelta, error) {
	conn, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	delta, err := conn.SyncFolderHierarchy(ctx, priority, syncState)
	c.drop(conn, err)
	return delta, err
}

func (c *persistentConnection) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

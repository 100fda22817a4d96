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
	"io"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/foldersync/remote"
)

func (c *Connection) log() *log.Entry {
	return log.WithField("host", c.host)
}

func (c *Connection) wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &remote.NetworkError{Op: op, Err: err}
	}

	if c.c.State() == imap.LogoutState {
		return &remote.NetworkError{Op: op, Err: err}
	}

	return &remote.ProtocolError{Op: op, Err: err}
}

// begin takes the command lock. Commands on a single IMAP connection can't be
// interleaved.
func (c *Connection) begin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()

	if c.c.State() == imap.LogoutState {
		c.mu.Unlock()
		return &remote.NetworkError{Op: op, Err: errLoggedOut}
	}

	return nil
}

func (c *Connection) end() {
	c.mu.Unlock()
}

// LoggedOut is closed once the server connection is gone.
func (c *Connection) LoggedOut() <-chan struct{} {
	return c.c.LoggedOut()
}

func (c *Connection) list(ref string, pattern string) ([]*imap.MailboxInfo, error) {
	ch := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.c.List(ref, pattern, ch)
	}()

	var infos []*imap.MailboxInfo
	for info := range ch {
		infos = append(infos, info)
	}

	if err := <-done; err != nil {
		return nil, err
	}

	for _, info := range infos {
		if info.Delimiter != "" && c.delimiter == "" {
			c.delimiter = info.Delimiter
		}
	}

	return infos, nil
}

func (c *Connection) getDelimiter() (string, error) {
	if c.delimiter != "" {
		return c.delimiter, nil
	}

	if _, err := c.list("", "%"); err != nil {
		return "", err
	}

	if c.delimiter == "" {
		c.delimiter = defaultDelimiter
	}

	return c.delimiter, nil
}

func (c *Connection) exists(name string) (bool, error) {
	infos, err := c.list("", name)
	if err != nil {
		return false, err
	}

	for _, info := range infos {
		if info.Name == name {
			return true, nil
		}
	}

	return false, nil
}

func (c *Connection) changeKey(name string) (string, error) {
	status, err := c.c.Status(name, []imap.StatusItem{imap.StatusUidValidity})
	if err != nil {
		return "", err
	}

	return strconv.FormatUint(uint64(status.UidValidity), 10), nil
}

func resolveParent(parentID string) string {
	if name, ok := distinguishedFolders[strings.ToLower(parentID)]; ok {
		return name
	}

	return parentID
}

// ensureMailbox creates name and each of its missing ancestors.
func (c *Connection) ensureMailbox(name string, delim string) error {
	parts := strings.Split(name, delim)
	for i := range parts {
		path := strings.Join(parts[:i+1], delim)

		ok, err := c.exists(path)
		if err != nil {
			return err
		}

		if ok {
			continue
		}

		c.log().WithField("mailbox", path).Trace("imapconn_create_parent")
		if err := c.c.Create(path); err != nil {
			return err
		}
	}

	return nil
}

func (c *Connection) CreateFolder(ctx context.Context, priority remote.Priority, parentID string, recursive bool, name string, kind remote.FolderKind) (remote.FolderID, error) {
	const op = "create_folder"

	if err := c.begin(ctx, op); err != nil {
		return remote.FolderID{}, err
	}
	defer c.end()

	delim, err := c.getDelimiter()
	if err != nil {
		return remote.FolderID{}, c.wrapError(op, err)
	}

	parent := resolveParent(parentID)

	fullName := name
	if parent != "" {
		fullName = parent + delim + name
	}

	if got := kindOf(fullName, delim, nil); got != kind {
		return remote.FolderID{}, &remote.ProtocolError{Op: op, Err: errUnsupportedKind}
	}

	c.log().WithFields(log.Fields{
		"parent":    parent,
		"name":      name,
		"kind":      kind,
		"recursive": recursive,
		"priority":  priority,
	}).Trace("imapconn_create_folder")

	if parent != "" && recursive {
		if err := c.ensureMailbox(parent, delim); err != nil {
			return remote.FolderID{}, c.wrapError(op, err)
		}
	}

	if err := c.c.Create(fullName); err != nil {
		return remote.FolderID{}, c.wrapError(op, err)
	}

	key, err := c.changeKey(fullName)
	if err != nil {
		return remote.FolderID{}, c.wrapError(op, err)
	}

	return remote.FolderID{ID: fullName, ChangeKey: key}, nil
}

func (c *Connection) removeMailbox(name string, delim string, mode remote.DeleteMode) error {
	if mode == remote.DeleteModeHard {
		return c.c.Delete(name)
	}

	if err := c.ensureMailbox(trashMailbox, delim); err != nil {
		return err
	}

	leaf := name[strings.LastIndex(name, delim)+1:]
	return c.c.Rename(name, trashMailbox+delim+leaf)
}

func (c *Connection) DeleteFolder(ctx context.Context, priority remote.Priority, id string, recursive bool, mode remote.DeleteMode) error {
	const op = "delete_folder"

	if err := c.begin(ctx, op); err != nil {
		return err
	}
	defer c.end()

	delim, err := c.getDelimiter()
	if err != nil {
		return c.wrapError(op, err)
	}

	c.log().WithFields(log.Fields{
		"id":        id,
		"mode":      mode,
		"recursive": recursive,
		"priority":  priority,
	}).Trace("imapconn_delete_folder")

	// Soft deletes move the whole subtree, so only hard deletes need to
	// clear out children first.
	if recursive && mode == remote.DeleteModeHard {
		children, err := c.list("", id+delim+"*")
		if err != nil {
			return c.wrapError(op, err)
		}

		sort.Slice(children, func(i, j int) bool {
			return strings.Count(children[i].Name, delim) > strings.Count(children[j].Name, delim)
		})

		for _, child := range children {
			if err := c.c.Delete(child.Name); err != nil {
				return c.wrapError(op, err)
			}
		}
	}

	return c.wrapError(op, c.removeMailbox(id, delim, mode))
}

func (c *Connection) SyncFolderHierarchy(ctx context.Context, priority remote.Priority, syncState string) (*remote.HierarchyDelta, error) {
	const op = "sync_folder_hierarchy"

	prev, err := decodeState(syncState)
	if err != nil {
		return nil, &remote.ProtocolError{Op: op, Err: err}
	}

	if err := c.begin(ctx, op); err != nil {
		return nil, err
	}
	defer c.end()

	c.log().WithFields(log.Fields{
		"full":     syncState == "",
		"priority": priority,
	}).Trace("imapconn_sync_folder_hierarchy")

	infos, err := c.list("", "*")
	if err != nil {
		return nil, c.wrapError(op, err)
	}

	cur := hierarchyState{Folders: make(map[string]folderState, len(infos))}
	names := make(map[string]string, len(infos))
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		delim := info.Delimiter
		if delim == "" {
			delim = defaultDelimiter
		}

		state := folderState{Kind: kindOf(info.Name, delim, info.Attributes)}
		if state.Kind != remote.KindUnknown {
			if state.ChangeKey, err = c.changeKey(info.Name); err != nil {
				return nil, c.wrapError(op, err)
			}
		}

		cur.Folders[info.Name] = state
		names[info.Name] = info.Name[strings.LastIndex(info.Name, delim)+1:]
	}

	token, err := encodeState(cur)
	if err != nil {
		return nil, &remote.ProtocolError{Op: op, Err: err}
	}

	delta := diffStates(prev, cur, names)
	delta.SyncState = token
	delta.IncludesLastFolder = true

	c.log().WithFields(log.Fields{
		"created": len(delta.Created),
		"updated": len(delta.Updated),
		"deleted": len(delta.Deleted),
	}).Debug("imapconn_hierarchy_synced")

	return delta, nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.c.State() == imap.LogoutState {
		return nil
	}

	c.log().Trace("imapconn_logout")
	return c.c.Logout()
}

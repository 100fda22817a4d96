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
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/foldersync/registry"
	"github.com/vs49688/foldersync/remote"
)

// resourceKind picks the folder kind and parent folder for a new resource.
// A task list wins over a calendar, which wins over an address book.
func resourceKind(src *registry.Source) (remote.FolderKind, string, bool) {
	switch {
	case src.TaskList != nil:
		return remote.KindTasks, "tasks", true
	case src.Calendar != nil:
		return remote.KindCalendar, "calendar", true
	case src.AddressBook != nil:
		return remote.KindContacts, "contacts", true
	default:
		return remote.KindUnknown, "", false
	}
}

// CreateResource creates a remote folder for src and registers src as a child
// of the collection. src must carry an address book, calendar or task list
// extension.
func (b *Backend) CreateResource(ctx context.Context, src *registry.Source) error {
	kind, parentID, ok := resourceKind(src)
	if !ok {
		return fmt.Errorf("%w: data source %q does not represent a folder resource", ErrInvalidArgument, src.DisplayName)
	}

	conn, err := b.Connection(ctx)
	if err != nil {
		return err
	}

	logger := b.log().WithFields(log.Fields{
		"name":   src.DisplayName,
		"kind":   kind,
		"parent": parentID,
	})

	id, err := conn.CreateFolder(ctx, remote.PriorityMedium, parentID, true, src.DisplayName, kind)
	if err != nil {
		logger.WithError(err).Error("backend_create_resource_failed")
		return err
	}

	logger.WithField("folder_id", id.ID).Info("backend_resource_created")

	// The folder exists remotely now, so registration must not be abandoned
	// because ctx ended while waiting for the dispatcher.
	return b.dispatch.Invoke(context.WithoutCancel(ctx), func() error {
		return b.registerResource(src, id, logger)
	})
}

// registerResource must only run on the dispatcher. A sync pass may have
// mirrored the new folder before we got here; src then takes its place.
func (b *Backend) registerResource(src *registry.Source, id remote.FolderID, logger *log.Entry) error {
	existing, indexed := b.folders.lookup(id.ID)
	saved := *src

	switch {
	case src.UID != "":
	case indexed:
		src.UID = existing.UID
	default:
		src.UID = uuid.NewString()
	}
	src.Folder = &registry.FolderExtension{ID: id.ID, ChangeKey: id.ChangeKey}
	src.Parent = b.collection.UID
	src.WriteDirectory = filepath.Join(b.cacheDir, src.UID)
	src.Writable = true
	src.RemoteDeletable = true

	if indexed {
		logger.WithField("replaced_uid", existing.UID).Debug("backend_create_resource_adopt")
		if err := b.registry.RemoveSource(existing); err != nil {
			*src = saved
			logger.WithError(err).Error("backend_create_resource_register_failed")
			return err
		}
	}

	if err := b.registry.AddSource(src); err != nil {
		*src = saved
		logger.WithError(err).Error("backend_create_resource_register_failed")

		if indexed {
			if err := b.registry.AddSource(existing); err != nil {
				logger.WithError(err).WithField("uid", existing.UID).Error("backend_create_resource_restore_failed")
			}
		}
		return err
	}

	return nil
}

// DeleteResource hard-deletes the remote folder behind src and unregisters it.
func (b *Backend) DeleteResource(ctx context.Context, src *registry.Source) error {
	if src.Folder == nil || src.Folder.ID == "" {
		return fmt.Errorf("%w: data source %q does not have a remote folder", ErrInvalidArgument, src.DisplayName)
	}

	conn, err := b.Connection(ctx)
	if err != nil {
		return err
	}

	logger := b.log().WithFields(log.Fields{
		"uid":       src.UID,
		"folder_id": src.Folder.ID,
	})

	if err := conn.DeleteFolder(ctx, remote.PriorityMedium, src.Folder.ID, false, remote.DeleteModeHard); err != nil {
		logger.WithError(err).Error("backend_delete_resource_failed")
		return err
	}

	logger.Info("backend_resource_deleted")

	return b.dispatch.Invoke(context.WithoutCancel(ctx), func() error {
		return b.registry.RemoveSource(src)
	})
}

// ResourceID returns the remote folder id behind src, or "" if it has none.
func (b *Backend) ResourceID(src *registry.Source) string {
	if src.Folder == nil {
		return ""
	}
	return src.Folder.ID
}

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
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/foldersync/registry"
	"github.com/vs49688/foldersync/remote"
)

// childUID derives a stable uid for the source mirroring folderID.
func (b *Backend) childUID(folderID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(b.collection.UID+"/"+folderID)).String()
}

func (b *Backend) newChild(folder remote.Folder) *registry.Source {
	return &registry.Source{
		UID:         b.childUID(folder.ID.ID),
		Parent:      b.collection.UID,
		DisplayName: folder.Name,
		Folder: &registry.FolderExtension{
			ID:        folder.ID.ID,
			ChangeKey: folder.ID.ChangeKey,
		},
		Offline:         &registry.OfflineExtension{StaySynchronized: true},
		RemoteDeletable: true,
	}
}

func (b *Backend) newCalendar(folder remote.Folder) *registry.Source {
	src := b.newChild(folder)
	src.Calendar = &registry.BackendExtension{BackendName: backendName}
	return src
}

func (b *Backend) newTaskList(folder remote.Folder) *registry.Source {
	src := b.newChild(folder)
	src.TaskList = &registry.BackendExtension{BackendName: backendName}
	return src
}

func (b *Backend) newAddressBook(folder remote.Folder) *registry.Source {
	src := b.newChild(folder)
	src.AddressBook = &registry.BackendExtension{BackendName: backendName}
	return src
}

func (b *Backend) handleRequest(_req interface{}) {
	switch req := _req.(type) {
	case syncJob:
		b.log().Trace("backend_sync_job_request")
		b.applyDelta(req)
	case settingsChangedRequest:
		b.log().Trace("backend_settings_changed_request")
		b.settingsChanged()
	default:
		b.log().WithField("request", req).Warn("backend_unknown_request")
	}
}

// applyDelta must only run on the dispatcher. Deletions are applied first so
// a folder that was deleted and recreated in the same delta ends up present.
func (b *Backend) applyDelta(job syncJob) {
	for _, id := range job.deleted {
		src, ok := b.folders.lookup(id)
		if !ok {
			b.log().WithField("folder_id", id).Trace("backend_delete_unknown_folder")
			continue
		}

		// The index entry goes away when the registry reports the removal.
		if err := b.registry.RemoveSource(src); err != nil {
			b.log().WithError(err).WithFields(log.Fields{
				"folder_id": id,
				"uid":       src.UID,
			}).Error("backend_remove_source_failed")
		}
	}

	for _, folder := range job.created {
		if folder.ID.ID == "" {
			continue
		}

		if _, ok := b.folders.lookup(folder.ID.ID); ok {
			b.log().WithField("folder_id", folder.ID.ID).Trace("backend_create_known_folder")
			continue
		}

		var src *registry.Source
		switch folder.Kind {
		case remote.KindCalendar:
			src = b.newCalendar(folder)
		case remote.KindTasks:
			src = b.newTaskList(folder)
		case remote.KindContacts:
			src = b.newAddressBook(folder)
		default:
			continue
		}

		if err := b.registry.AddSource(src); err != nil {
			b.log().WithError(err).WithFields(log.Fields{
				"folder_id": folder.ID.ID,
				"uid":       src.UID,
			}).Error("backend_add_source_failed")
		}
	}

	// TODO: apply renames and change keys from updated folders.
	for _, folder := range job.updated {
		b.log().WithFields(log.Fields{
			"folder_id":  folder.ID.ID,
			"change_key": folder.ID.ChangeKey,
		}).Trace("backend_folder_update_ignored")
	}
}

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
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vs49688/foldersync/registry"
)

const (
	DefaultDirectoryID   = "global-address-list"
	DefaultDirectoryName = "Global Address List"
)

// ParseDirectorySelection parses an "id:name" selection. The name is
// everything after the last colon. Anything without a colon, or with an
// empty id or name, selects the default directory.
func ParseDirectorySelection(s string) DirectorySelection {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return DirectorySelection{ID: DefaultDirectoryID, Name: DefaultDirectoryName}
	}

	return DirectorySelection{ID: s[:i], Name: s[i+1:]}
}

func (b *Backend) newDirectorySource(sel DirectorySelection) *registry.Source {
	return &registry.Source{
		UID:         b.childUID(sel.ID),
		Parent:      b.collection.UID,
		DisplayName: sel.Name,
		AddressBook: &registry.BackendExtension{BackendName: backendName},
		Folder:      &registry.FolderExtension{ID: sel.ID},
		Offline:     &registry.OfflineExtension{StaySynchronized: true},
		Autocomplete: &registry.AutocompleteExtension{
			IncludeMe: true,
		},
	}
}

// ensureDirectorySource must only run on the dispatcher.
func (b *Backend) ensureDirectorySource() error {
	selection := b.settings.DirectorySelection()

	if uid := b.settings.DirectorySourceUID(); uid != "" && b.registry.Source(uid) != nil {
		b.log().WithField("uid", uid).Trace("backend_directory_source_exists")
		b.provisionedSelection = selection
		return nil
	}

	sel := ParseDirectorySelection(selection)
	src := b.newDirectorySource(sel)

	// Left behind by a run that never saved its uid.
	if existing := b.registry.Source(src.UID); existing != nil {
		b.log().WithField("uid", src.UID).Debug("backend_directory_source_adopted")
		b.provisionedSelection = selection
		if err := b.settings.SetDirectorySourceUID(src.UID); err != nil {
			b.log().WithError(err).WithField("uid", src.UID).Warn("backend_directory_source_uid_save_failed")
		}
		return nil
	}

	if err := b.registry.AddSource(src); err != nil {
		b.log().WithError(err).WithField("directory_id", sel.ID).Error("backend_directory_source_add_failed")
		return err
	}

	b.provisionedSelection = selection

	if err := b.settings.SetDirectorySourceUID(src.UID); err != nil {
		b.log().WithError(err).WithField("uid", src.UID).Warn("backend_directory_source_uid_save_failed")
	}

	b.log().WithFields(log.Fields{
		"uid":          src.UID,
		"directory_id": sel.ID,
		"name":         sel.Name,
	}).Info("backend_directory_source_created")

	return nil
}

// settingsChanged must only run on the dispatcher.
func (b *Backend) settingsChanged() {
	selection := b.settings.DirectorySelection()
	if selection == b.provisionedSelection {
		return
	}

	b.log().WithFields(log.Fields{
		"old": b.provisionedSelection,
		"new": selection,
	}).Info("backend_directory_selection_changed")

	if uid := b.settings.DirectorySourceUID(); uid != "" {
		if old := b.registry.Source(uid); old != nil {
			if err := b.registry.RemoveSource(old); err != nil {
				b.log().WithError(err).WithField("uid", uid).Error("backend_directory_source_remove_failed")
				return
			}
		}

		if err := b.settings.SetDirectorySourceUID(""); err != nil {
			b.log().WithError(err).Warn("backend_directory_source_uid_clear_failed")
		}
	}

	_ = b.ensureDirectorySource()
}

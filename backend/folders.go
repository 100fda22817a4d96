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
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/foldersync/registry"
)

func newFolderIndex() *folderIndex {
	return &folderIndex{folders: map[string]*registry.Source{}}
}

func (idx *folderIndex) insert(id string, src *registry.Source) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.folders[id] = src
}

func (idx *folderIndex) remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.folders, id)
}

func (idx *folderIndex) lookup(id string) (*registry.Source, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	src, ok := idx.folders[id]
	return src, ok
}

func (idx *folderIndex) snapshot() map[string]*registry.Source {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	m := make(map[string]*registry.Source, len(idx.folders))
	for k, v := range idx.folders {
		m[k] = v
	}
	return m
}

func (b *Backend) isChild(src *registry.Source) bool {
	return src.Parent == b.collection.UID && src.Folder != nil
}

// SourceAdded indexes children of the collection that refer to a remote
// folder. It is the only way folders enter the index.
func (b *Backend) SourceAdded(src *registry.Source) {
	if !b.isChild(src) || src.Folder.ID == "" {
		return
	}

	b.log().WithFields(log.Fields{
		"folder_id": src.Folder.ID,
		"uid":       src.UID,
	}).Trace("backend_folder_indexed")
	b.folders.insert(src.Folder.ID, src)
}

func (b *Backend) SourceRemoved(src *registry.Source) {
	if !b.isChild(src) {
		return
	}

	b.log().WithFields(log.Fields{
		"folder_id": src.Folder.ID,
		"uid":       src.UID,
	}).Trace("backend_folder_unindexed")
	b.folders.remove(src.Folder.ID)
}

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

// Package registry holds the local sources mirrored from the remote service
// and tells observers when sources come and go.
package registry

import (
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
)

var (
	ErrDuplicateSource = errors.New("source already registered")
	ErrNoUID           = errors.New("source has no uid")
)

type BackendExtension struct {
	BackendName string `json:"backend_name"`
}

// FolderExtension ties a source to a remote folder.
type FolderExtension struct {
	ID        string `json:"id"`
	ChangeKey string `json:"change_key,omitempty"`
}

type OfflineExtension struct {
	StaySynchronized bool `json:"stay_synchronized"`
}

type AutocompleteExtension struct {
	IncludeMe bool `json:"include_me"`
}

type Source struct {
	UID         string `json:"uid"`
	Parent      string `json:"parent,omitempty"`
	DisplayName string `json:"display_name"`

	AddressBook  *BackendExtension      `json:"address_book,omitempty"`
	Calendar     *BackendExtension      `json:"calendar,omitempty"`
	TaskList     *BackendExtension      `json:"task_list,omitempty"`
	Folder       *FolderExtension       `json:"folder,omitempty"`
	Offline      *OfflineExtension      `json:"offline,omitempty"`
	Autocomplete *AutocompleteExtension `json:"autocomplete,omitempty"`

	Writable        bool   `json:"writable"`
	RemoteDeletable bool   `json:"remote_deletable"`
	RemoteCreatable bool   `json:"remote_creatable"`
	WriteDirectory  string `json:"write_directory,omitempty"`
}

// Observer is notified after a source has been added to or removed from the
// registry. Callbacks run on the goroutine that made the change, outside of
// any registry lock.
type Observer interface {
	SourceAdded(src *Source)
	SourceRemoved(src *Source)
}

type Registry struct {
	mu           sync.RWMutex
	sources      map[string]*Source
	observers    map[int]Observer
	nextObserver int
	store        *Store
}

type Store struct {
	db *sqlx.DB
}

type sourceRow struct {
	UID    string `db:"uid"`
	Parent string `db:"parent"`
	Data   []byte `db:"data"`
}

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

// Package remote describes the connection to the groupware service whose
// folder hierarchy is mirrored locally.
package remote

//go:generate mockgen -destination=mock_remote/mock_remote.go -package=mock_remote . Connection,Factory,Authenticatable

import (
	"context"

	"github.com/emersion/go-sasl"
)

type FolderKind int

const (
	KindUnknown FolderKind = iota
	KindMail
	KindCalendar
	KindTasks
	KindContacts
)

func (k FolderKind) String() string {
	switch k {
	case KindMail:
		return "mail"
	case KindCalendar:
		return "calendar"
	case KindTasks:
		return "tasks"
	case KindContacts:
		return "contacts"
	default:
		return "unknown"
	}
}

// FolderID identifies a remote folder. ID is stable for the lifetime of the
// folder, ChangeKey changes whenever the folder does.
type FolderID struct {
	ID        string `json:"id"`
	ChangeKey string `json:"change_key"`
}

type Folder struct {
	ID   FolderID
	Name string
	Kind FolderKind
}

// Priority is passed through to the server with each request. Everything
// this module sends uses PriorityMedium.
type Priority int

const PriorityMedium Priority = 1

type DeleteMode string

const (
	DeleteModeSoft DeleteMode = "SoftDelete"
	DeleteModeHard DeleteMode = "HardDelete"
)

// HierarchyDelta is the result of a single hierarchy sync request.
type HierarchyDelta struct {
	SyncState          string
	IncludesLastFolder bool
	Created            []Folder
	Updated            []Folder
	Deleted            []string
}

// Connection is an authenticated channel to the remote service. All methods
// are safe for concurrent use.
type Connection interface {
	CreateFolder(ctx context.Context, priority Priority, parentID string, recursive bool, name string, kind FolderKind) (FolderID, error)

	DeleteFolder(ctx context.Context, priority Priority, id string, recursive bool, mode DeleteMode) error

	// SyncFolderHierarchy returns the changes since syncState. An empty
	// syncState requests the full hierarchy.
	SyncFolderHierarchy(ctx context.Context, priority Priority, syncState string) (*HierarchyDelta, error)

	Close() error
}

type Factory interface {
	NewConnection(ctx context.Context, hostURL string) (Connection, error)
}

type Authenticatable interface {
	Login(username string, password string) error
	Authenticate(auth sasl.Client) error
}

type Authenticator interface {
	Authenticate(c Authenticatable) error
}

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
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"

	"github.com/emersion/go-imap"

	"github.com/vs49688/foldersync/remote"
)

func kindOf(name string, delim string, attributes []string) remote.FolderKind {
	for _, attr := range attributes {
		if strings.EqualFold(attr, imap.NoSelectAttr) {
			return remote.KindUnknown
		}
	}

	root := strings.SplitN(name, delim, 2)[0]
	switch strings.ToLower(root) {
	case "calendar":
		return remote.KindCalendar
	case "tasks":
		return remote.KindTasks
	case "contacts":
		return remote.KindContacts
	default:
		return remote.KindMail
	}
}

func decodeState(token string) (hierarchyState, error) {
	state := hierarchyState{Folders: map[string]folderState{}}
	if token == "" {
		return state, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return state, errInvalidSyncState
	}

	if err := json.Unmarshal(raw, &state); err != nil {
		return state, errInvalidSyncState
	}

	if state.Folders == nil {
		state.Folders = map[string]folderState{}
	}

	return state, nil
}

func encodeState(state hierarchyState) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func sortedKeys(m map[string]folderState) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// diffStates reports what changed between two snapshots. Results are ordered
// by mailbox name so parents come before their children.
func diffStates(prev hierarchyState, cur hierarchyState, names map[string]string) *remote.HierarchyDelta {
	delta := &remote.HierarchyDelta{}

	for _, id := range sortedKeys(cur.Folders) {
		state := cur.Folders[id]
		folder := remote.Folder{
			ID:   remote.FolderID{ID: id, ChangeKey: state.ChangeKey},
			Name: names[id],
			Kind: state.Kind,
		}

		old, ok := prev.Folders[id]
		switch {
		case !ok:
			delta.Created = append(delta.Created, folder)
		case old != state:
			delta.Updated = append(delta.Updated, folder)
		}
	}

	for _, id := range sortedKeys(prev.Folders) {
		if _, ok := cur.Folders[id]; !ok {
			delta.Deleted = append(delta.Deleted, id)
		}
	}

	return delta
}

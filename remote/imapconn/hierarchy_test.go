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
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"

	"github.com/vs49688/foldersync/remote"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, remote.KindCalendar, kindOf("Calendar", "/", nil))
	assert.Equal(t, remote.KindCalendar, kindOf("calendar.Work", ".", nil))
	assert.Equal(t, remote.KindTasks, kindOf("Tasks/Chores", "/", nil))
	assert.Equal(t, remote.KindContacts, kindOf("Contacts", "/", nil))
	assert.Equal(t, remote.KindMail, kindOf("INBOX", "/", nil))
	assert.Equal(t, remote.KindMail, kindOf("CalendarArchive", "/", nil))
	assert.Equal(t, remote.KindUnknown, kindOf("Calendar", "/", []string{imap.NoSelectAttr}))
}

func TestStateRoundTrip(t *testing.T) {
	state := hierarchyState{Folders: map[string]folderState{
		"Calendar": {ChangeKey: "7", Kind: remote.KindCalendar},
	}}

	token, err := encodeState(state)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	decoded, err := decodeState(token)
	assert.NoError(t, err)
	assert.Equal(t, state, decoded)

	empty, err := decodeState("")
	assert.NoError(t, err)
	assert.Empty(t, empty.Folders)
}

func TestDiffStates(t *testing.T) {
	prev := hierarchyState{Folders: map[string]folderState{
		"Calendar":      {ChangeKey: "1", Kind: remote.KindCalendar},
		"Calendar/Old":  {ChangeKey: "1", Kind: remote.KindCalendar},
		"Calendar/Work": {ChangeKey: "1", Kind: remote.KindCalendar},
	}}
	cur := hierarchyState{Folders: map[string]folderState{
		"Calendar":      {ChangeKey: "1", Kind: remote.KindCalendar},
		"Calendar/New":  {ChangeKey: "1", Kind: remote.KindCalendar},
		"Calendar/Work": {ChangeKey: "2", Kind: remote.KindCalendar},
	}}
	names := map[string]string{"Calendar": "Calendar", "Calendar/New": "New", "Calendar/Work": "Work"}

	delta := diffStates(prev, cur, names)
	assert.Equal(t, []remote.Folder{{
		ID:   remote.FolderID{ID: "Calendar/New", ChangeKey: "1"},
		Name: "New",
		Kind: remote.KindCalendar,
	}}, delta.Created)
	assert.Equal(t, []remote.Folder{{
		ID:   remote.FolderID{ID: "Calendar/Work", ChangeKey: "2"},
		Name: "Work",
		Kind: remote.KindCalendar,
	}}, delta.Updated)
	assert.Equal(t, []string{"Calendar/Old"}, delta.Deleted)
}

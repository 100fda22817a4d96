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

package settings

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		f, err := Load(filepath.Join(t.TempDir(), "settings.yaml"))
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, "", f.HostURL())
		assert.Equal(t, "", f.DirectorySelection())
		assert.Equal(t, "", f.DirectorySourceUID())
	})

	t.Run("existing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		data := []byte("host_url: imaps://imap.example.com\ndirectory_selection: \"abc:Sales\"\n")
		if !assert.NoError(t, os.WriteFile(path, data, 0600)) {
			t.FailNow()
		}

		f, err := Load(path)
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, "imaps://imap.example.com", f.HostURL())
		assert.Equal(t, "abc:Sales", f.DirectorySelection())
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		if !assert.NoError(t, os.WriteFile(path, []byte("host_url: [unterminated\n"), 0600)) {
			t.FailNow()
		}

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestWriteBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	f, err := Load(path)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.NoError(t, f.SetHostURL("imap://localhost:1143"))
	assert.NoError(t, f.SetDirectorySourceUID("1234"))

	reloaded, err := Load(path)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.Equal(t, "imap://localhost:1143", reloaded.HostURL())
	assert.Equal(t, "1234", reloaded.DirectorySourceUID())
}

func TestSubscribe(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "settings.yaml"))
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	calls := 0
	cancel := f.Subscribe(func() { calls++ })

	assert.NoError(t, f.SetDirectorySelection("def:Eng"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "def:Eng", f.DirectorySelection())

	// Persisting the provisioned uid is bookkeeping, not a settings change.
	assert.NoError(t, f.SetDirectorySourceUID("5678"))
	assert.Equal(t, 1, calls)

	cancel()
	assert.NoError(t, f.SetDirectorySelection("abc:Sales"))
	assert.Equal(t, 1, calls)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if !assert.NoError(t, os.WriteFile(path, []byte("directory_selection: \"abc:Sales\"\n"), 0600)) {
		t.FailNow()
	}

	f, err := Load(path)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	changed := make(chan struct{}, 10)
	f.Subscribe(func() { changed <- struct{}{} })

	if !assert.NoError(t, f.Watch()) {
		t.FailNow()
	}
	defer func() { assert.NoError(t, f.Close()) }()

	// Readers run alongside the watcher's reloads.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}

			_ = f.DirectorySelection()
			_ = f.HostURL()
		}
	}()

	// Our own write-back reloads too, without notifying.
	assert.NoError(t, f.SetDirectorySourceUID("uid"))

	if !assert.NoError(t, os.WriteFile(path, []byte("directory_selection: \"def:Eng\"\ndirectory_source_uid: uid\n"), 0600)) {
		t.FailNow()
	}

	deadline := time.After(5 * time.Second)
	for f.DirectorySelection() != "def:Eng" {
		select {
		case <-changed:
		case <-deadline:
			t.Fatal("external edit was not picked up")
		}
	}

	close(stop)
	wg.Wait()
}

func TestCloseWithoutWatch(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "settings.yaml"))
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	assert.NoError(t, f.Close())
}

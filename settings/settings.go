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

// Package settings stores the per-account settings in a YAML file.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	KeyHostURL            = "host_url"
	KeyDirectorySelection = "directory_selection"
	KeyDirectorySourceUID = "directory_source_uid"
)

var keys = []string{KeyHostURL, KeyDirectorySelection, KeyDirectorySourceUID}

// File is safe for concurrent use. The viper instance is never read or
// written without mu; a reload from disk builds a fresh instance and swaps
// it in.
type File struct {
	mu      sync.RWMutex
	v       *viper.Viper
	path    string
	subs    map[int]func()
	nextSub int

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func readFile(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	for _, k := range keys {
		v.SetDefault(k, "")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading settings %s: %w", path, err)
		}
	}

	return v, nil
}

// Load reads the settings file at path. A missing file is not an error; it
// will be created on the first write.
func Load(path string) (*File, error) {
	v, err := readFile(path)
	if err != nil {
		return nil, err
	}

	return &File{v: v, path: path, subs: map[int]func(){}}, nil
}

func (f *File) get(key string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.v.GetString(key)
}

func (f *File) set(key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.v.Set(key, value)
	if err := f.v.WriteConfigAs(f.path); err != nil {
		return fmt.Errorf("writing settings %s: %w", f.path, err)
	}

	return nil
}

func (f *File) HostURL() string {
	return f.get(KeyHostURL)
}

func (f *File) SetHostURL(u string) error {
	return f.set(KeyHostURL, u)
}

// DirectorySelection returns the raw "id:name" directory selection.
func (f *File) DirectorySelection() string {
	return f.get(KeyDirectorySelection)
}

func (f *File) SetDirectorySelection(selection string) error {
	if err := f.set(KeyDirectorySelection, selection); err != nil {
		return err
	}

	f.notify()
	return nil
}

func (f *File) DirectorySourceUID() string {
	return f.get(KeyDirectorySourceUID)
}

func (f *File) SetDirectorySourceUID(uid string) error {
	return f.set(KeyDirectorySourceUID, uid)
}

// Subscribe registers fn to be called whenever the settings change, either
// through a setter or by the file being edited on disk.
func (f *File) Subscribe(fn func()) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *File) notify() {
	f.mu.RLock()
	ids := make([]int, 0, len(f.subs))
	for k := range f.subs {
		ids = append(ids, k)
	}
	sort.Ints(ids)

	subs := make([]func(), 0, len(ids))
	for _, k := range ids {
		subs = append(subs, f.subs[k])
	}
	f.mu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}

// reload re-reads the file and swaps it in, notifying subscribers if any
// value differs. Our own write-backs land here too and change nothing.
func (f *File) reload() {
	v, err := readFile(f.path)
	if err != nil {
		log.WithError(err).WithField("path", f.path).Warn("settings_reload_failed")
		return
	}

	f.mu.Lock()
	changed := false
	for _, k := range keys {
		if f.v.GetString(k) != v.GetString(k) {
			changed = true
		}
	}
	f.v = v
	f.mu.Unlock()

	log.WithFields(log.Fields{
		"path":    f.path,
		"changed": changed,
	}).Debug("settings_file_reloaded")

	if changed {
		f.notify()
	}
}

func (f *File) watch(w *fsnotify.Watcher, done chan<- struct{}) {
	defer close(done)

	target := filepath.Clean(f.path)
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}

			if filepath.Clean(e.Name) != target || !(e.Has(fsnotify.Write) || e.Has(fsnotify.Create)) {
				continue
			}

			log.WithFields(log.Fields{
				"path": e.Name,
				"op":   e.Op.String(),
			}).Trace("settings_file_changed")
			f.reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("settings_watch_error")
		}
	}
}

// Watch starts watching the settings file for external edits. The
// directory is watched so editors that replace the file are seen.
func (f *File) Watch() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching settings: %w", err)
	}

	if err := w.Add(filepath.Dir(f.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watching settings %s: %w", f.path, err)
	}

	f.watcher = w
	f.done = make(chan struct{})
	go f.watch(w, f.done)
	return nil
}

// Close stops the watcher, if any.
func (f *File) Close() error {
	f.mu.Lock()
	w, done := f.watcher, f.done
	f.watcher, f.done = nil, nil
	f.mu.Unlock()

	if w == nil {
		return nil
	}

	err := w.Close()
	<-done
	return err
}

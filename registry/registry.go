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

package registry

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

// New creates an empty, memory-only registry.
func New() *Registry {
	return &Registry{
		sources:   map[string]*Source{},
		observers: map[int]Observer{},
	}
}

// Open creates a registry backed by the sqlite database at path. Sources
// already in the database are loaded before Open returns.
func Open(ctx context.Context, path string) (*Registry, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}

	sources, err := store.Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	r := New()
	r.store = store
	for _, src := range sources {
		r.sources[src.UID] = src
	}

	log.WithFields(log.Fields{
		"path":    path,
		"sources": len(sources),
	}).Debug("registry_loaded")

	return r, nil
}

func (r *Registry) Close() error {
	if r.store == nil {
		return nil
	}

	return r.store.Close()
}

func (r *Registry) snapshotObservers() []Observer {
	keys := make([]int, 0, len(r.observers))
	for k := range r.observers {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	obs := make([]Observer, 0, len(keys))
	for _, k := range keys {
		obs = append(obs, r.observers[k])
	}
	return obs
}

func (r *Registry) AddSource(src *Source) error {
	if src.UID == "" {
		return ErrNoUID
	}

	r.mu.Lock()
	if _, ok := r.sources[src.UID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrDuplicateSource, src.UID)
	}

	if r.store != nil {
		if err := r.store.Put(context.Background(), src); err != nil {
			r.mu.Unlock()
			return err
		}
	}

	r.sources[src.UID] = src
	observers := r.snapshotObservers()
	r.mu.Unlock()

	log.WithFields(log.Fields{
		"uid":    src.UID,
		"parent": src.Parent,
		"name":   src.DisplayName,
	}).Debug("registry_source_added")

	for _, o := range observers {
		o.SourceAdded(src)
	}

	return nil
}

// RemoveSource unregisters src. Removing a source that isn't registered is
// not an error.
func (r *Registry) RemoveSource(src *Source) error {
	r.mu.Lock()
	existing, ok := r.sources[src.UID]
	if !ok {
		r.mu.Unlock()
		return nil
	}

	if r.store != nil {
		if err := r.store.Delete(context.Background(), src.UID); err != nil {
			r.mu.Unlock()
			return err
		}
	}

	delete(r.sources, src.UID)
	observers := r.snapshotObservers()
	r.mu.Unlock()

	log.WithFields(log.Fields{
		"uid":    existing.UID,
		"parent": existing.Parent,
		"name":   existing.DisplayName,
	}).Debug("registry_source_removed")

	for _, o := range observers {
		o.SourceRemoved(existing)
	}

	return nil
}

// Source resolves uid, returning nil if it isn't registered.
func (r *Registry) Source(uid string) *Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[uid]
}

// Children returns the sources whose parent is uid, ordered by uid.
func (r *Registry) Children(uid string) []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var children []*Source
	for _, src := range r.sources {
		if src.Parent == uid {
			children = append(children, src)
		}
	}

	sort.Slice(children, func(i, j int) bool { return children[i].UID < children[j].UID })
	return children
}

// Subscribe registers o and replays every source already present as an
// addition. The returned function unsubscribes.
func (r *Registry) Subscribe(o Observer) func() {
	r.mu.Lock()
	id := r.nextObserver
	r.nextObserver++
	r.observers[id] = o

	existing := make([]*Source, 0, len(r.sources))
	for _, src := range r.sources {
		existing = append(existing, src)
	}
	r.mu.Unlock()

	sort.Slice(existing, func(i, j int) bool { return existing[i].UID < existing[j].UID })
	for _, src := range existing {
		o.SourceAdded(src)
	}

	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

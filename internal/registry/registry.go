// Package registry maps charter pen names to the Discord users who publish
// under them. One alias can belong to several users and one user can hold
// several aliases.
package registry

import (
	"log"
	"sort"
	"sync"

	"github.com/yuduki/chartkeeper/internal/storefile"
)

// Registry is the persisted alias → user-ID mapping. Every mutation that
// changes the mapping is written through to disk before the call returns;
// when the write fails the in-memory mapping is rolled back so memory and
// file never diverge.
type Registry struct {
	mu      sync.Mutex
	path    string
	aliases map[string][]int64
}

// Load opens the registry backed by the given file. A missing, empty, or
// corrupt file starts the registry empty; the next successful save rewrites
// it with valid JSON.
func Load(path string) *Registry {
	r := &Registry{
		path:    path,
		aliases: make(map[string][]int64),
	}
	if _, err := storefile.Load(path, &r.aliases); err != nil {
		log.Printf("[Registry] %v, starting with an empty registry", err)
		r.aliases = make(map[string][]int64)
	}
	return r
}

// Add registers userID under the alias, creating the alias if needed.
// Adding an existing pair is a no-op and does not touch the file.
func (r *Registry) Add(name string, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.aliases[name] {
		if id == userID {
			return nil
		}
	}
	r.aliases[name] = append(r.aliases[name], userID)
	if err := r.save(); err != nil {
		// keep memory and disk in step
		if ids := r.aliases[name]; len(ids) == 1 {
			delete(r.aliases, name)
		} else {
			r.aliases[name] = ids[:len(ids)-1]
		}
		return err
	}
	return nil
}

// Remove drops userID from the alias and deletes the alias when its last
// user is removed. It reports whether the pair existed.
func (r *Registry) Remove(name string, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, ok := r.aliases[name]
	if !ok {
		return false, nil
	}
	for i, id := range ids {
		if id != userID {
			continue
		}
		prior := append([]int64(nil), ids...)
		ids = append(ids[:i], ids[i+1:]...)
		if len(ids) == 0 {
			delete(r.aliases, name)
		} else {
			r.aliases[name] = ids
		}
		if err := r.save(); err != nil {
			r.aliases[name] = prior
			return true, err
		}
		return true, nil
	}
	return false, nil
}

// AliasesFor returns all alias names registered to userID, sorted.
func (r *Registry) AliasesFor(userID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for name, ids := range r.aliases {
		for _, id := range ids {
			if id == userID {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the full mapping.
func (r *Registry) All() map[string][]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]int64, len(r.aliases))
	for name, ids := range r.aliases {
		out[name] = append([]int64(nil), ids...)
	}
	return out
}

// Len returns the number of registered aliases.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.aliases)
}

func (r *Registry) save() error {
	return storefile.Save(r.path, r.aliases)
}

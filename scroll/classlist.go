package scroll

import (
	"slices"
	"sort"
	"sync"
)

// NopClassList discards all toggles. Used when a tracker runs headless.
type NopClassList struct{}

func (NopClassList) Add(string)    {}
func (NopClassList) Remove(string) {}

// RecordingClassList keeps the active class set and an append-only log of
// every mutation. Safe for concurrent use.
type RecordingClassList struct {
	mu     sync.Mutex
	active map[string]bool
	log    []string
}

// NewRecordingClassList creates an empty recording class list.
func NewRecordingClassList() *RecordingClassList {
	return &RecordingClassList{active: make(map[string]bool)}
}

func (r *RecordingClassList) Add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[name] = true
	r.log = append(r.log, "+"+name)
}

func (r *RecordingClassList) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, name)
	r.log = append(r.log, "-"+name)
}

// Has reports whether the class is currently active.
func (r *RecordingClassList) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[name]
}

// Active returns the sorted active class set.
func (r *RecordingClassList) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.active))
	for name := range r.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Log returns the mutation log, "+name" for adds and "-name" for removes.
func (r *RecordingClassList) Log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.log)
}

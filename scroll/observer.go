package scroll

import (
	"slices"
	"sync"
)

// Snapshot is the read-only view delivered to observers on every changed
// tick: a value copy of the state plus the tracker's reset, so observers
// can clear the reverse-scroll signal without holding the tracker itself.
type Snapshot struct {
	State
	Reset func()
}

// Observer receives a snapshot per changed tick, in registration order.
type Observer func(Snapshot)

// Observers is a live observer registry. It is deliberately separate
// from the tracker lifecycle: a Session reuses one registry across
// tracker restarts, so swapping observers never restarts the sampling
// loop. Safe for concurrent use.
type Observers struct {
	mu   sync.Mutex
	list []Observer
}

// NewObservers creates a registry seeded with the given observers.
func NewObservers(obs ...Observer) *Observers {
	return &Observers{list: slices.Clone(obs)}
}

// Add appends an observer.
func (o *Observers) Add(fn Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, fn)
}

// Replace swaps the whole registration list.
func (o *Observers) Replace(obs ...Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = slices.Clone(obs)
}

// Len reports the number of registered observers.
func (o *Observers) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.list)
}

// notify invokes every observer with the snapshot. The list is cloned
// under the lock so observers may mutate the registry mid-dispatch.
// Panics are not recovered.
func (o *Observers) notify(snap Snapshot) {
	if o == nil {
		return
	}
	o.mu.Lock()
	list := slices.Clone(o.list)
	o.mu.Unlock()

	for _, fn := range list {
		fn(snap)
	}
}

package sensor

import (
	"sort"
	"sync"
)

// Sink receives activation signals: an activated sensor has data worth surfacing
type Sink interface {
	Activate(s *Sensor)
}

// Registry is the in-memory sink the API reads from
type Registry struct {
	mu    sync.RWMutex
	order []*Sensor
	byID  map[string]*Sensor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byID: map[string]*Sensor{}}
}

// Activate registers s. Activating the same sensor again is a no-op.
func (r *Registry) Activate(s *Sensor) {
	id := s.ID()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; ok {
		return
	}
	r.byID[id] = s
	r.order = append(r.order, s)
}

// IsActive reports whether a sensor with the given id has been activated
func (r *Registry) IsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// Get returns the active sensor with the given id
func (r *Registry) Get(id string) (*Sensor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Active returns active sensors in activation order
func (r *Registry) Active() []*Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Sensor, len(r.order))
	copy(out, r.order)
	return out
}

// Select returns active sensors of one hardware class and kind, ordered by
// hardware index then sensor index.
func (r *Registry) Select(hardware string, typ Type) []*Sensor {
	var out []*Sensor
	for _, s := range r.Active() {
		if s.hardware == hardware && s.typ == typ {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].hwIndex != out[j].hwIndex {
			return out[i].hwIndex < out[j].hwIndex
		}
		return out[i].index < out[j].index
	})
	return out
}

// Snapshots copies every active sensor
func (r *Registry) Snapshots() []Snapshot {
	active := r.Active()
	out := make([]Snapshot, 0, len(active))
	for _, s := range active {
		out = append(out, s.Snapshot())
	}
	return out
}

package chat

import "sync"

// Destination is one addressable push target: the outbound side of a single
// live connection belonging to one user. Send must not block; it reports an
// error when the destination cannot accept the payload.
type Destination interface {
	ID() string
	Send(v interface{}) error
}

// Registry maps a user id to its live destinations. One user may have zero,
// one or many concurrent destinations (multi-device). Deregistration is keyed
// by the exact handle so closing one device never detaches another.
type Registry struct {
	mu           sync.RWMutex
	destinations map[int64]map[Destination]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		destinations: make(map[int64]map[Destination]struct{}),
	}
}

func (r *Registry) Register(userID int64, dest Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.destinations[userID]
	if !ok {
		set = make(map[Destination]struct{})
		r.destinations[userID] = set
	}
	set[dest] = struct{}{}
}

func (r *Registry) Deregister(userID int64, dest Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.destinations[userID]; ok {
		delete(set, dest)
		if len(set) == 0 {
			delete(r.destinations, userID)
		}
	}
}

// Resolve returns a snapshot of the user's live destinations. An empty result
// is not an error: it means the message is delivered via the store only.
func (r *Registry) Resolve(userID int64) []Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.destinations[userID]
	if len(set) == 0 {
		return nil
	}
	dests := make([]Destination, 0, len(set))
	for d := range set {
		dests = append(dests, d)
	}
	return dests
}

package chat

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakeDest records pushed frames; it can be told to fail every send.
type fakeDest struct {
	id   string
	mu   sync.Mutex
	got  []*Frame
	fail bool
}

func (d *fakeDest) ID() string { return d.id }

func (d *fakeDest) Send(v interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("destination closed")
	}
	d.got = append(d.got, v.(*Frame))
	return nil
}

func (d *fakeDest) frames() []*Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Frame, len(d.got))
	copy(out, d.got)
	return out
}

func TestRegistryRegisterResolve(t *testing.T) {
	r := NewRegistry()

	if got := r.Resolve(1); len(got) != 0 {
		t.Errorf("Expected no destinations for unknown user, got %d", len(got))
	}

	phone := &fakeDest{id: "phone"}
	laptop := &fakeDest{id: "laptop"}
	r.Register(1, phone)
	r.Register(1, laptop)
	r.Register(2, &fakeDest{id: "other"})

	if got := r.Resolve(1); len(got) != 2 {
		t.Errorf("Expected 2 destinations, got %d", len(got))
	}

	// Closing one device must not detach the other.
	r.Deregister(1, phone)
	got := r.Resolve(1)
	if len(got) != 1 || got[0].ID() != "laptop" {
		t.Errorf("Expected only laptop to remain, got %v", got)
	}

	r.Deregister(1, laptop)
	if got := r.Resolve(1); len(got) != 0 {
		t.Errorf("Expected no destinations after full deregistration, got %d", len(got))
	}
}

func TestRegistryDeregisterUnknown(t *testing.T) {
	r := NewRegistry()
	// Must not panic for a handle that was never registered.
	r.Deregister(1, &fakeDest{id: "ghost"})
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := &fakeDest{id: fmt.Sprintf("dest-%d", i)}
			r.Register(7, d)
			r.Resolve(7)
			r.Deregister(7, d)
		}(i)
	}
	wg.Wait()

	if got := r.Resolve(7); len(got) != 0 {
		t.Errorf("Expected empty registry after balanced register/deregister, got %d", len(got))
	}
}

// Package events correlates outbound provisioning actions with the
// asynchronous acknowledgments the identity manager publishes on the message
// bus. The saga registers an expectation before issuing a call, then blocks
// on it with a timeout; the bus listener signals matching expectations as
// acknowledgments arrive.
package events

import (
	"sync"
	"time"
)

// Operation tags for the acknowledgments the identity manager publishes.
const (
	OperationPermittableGroupCreated = "permittable-group-created"
	OperationApplicationSignatureSet = "application-signature-set"
)

// Key identifies one expected acknowledgment.
type Key struct {
	Tenant      string
	Operation   string
	Correlation string
}

// Expectation is a pending acknowledgment. It resolves to found (the
// acknowledgment arrived), withdrawn (the producing call failed, no
// acknowledgment will ever come) or stays pending until the waiter's timeout
// elapses.
type Expectation struct {
	key      Key
	registry *Registry

	mu        sync.Mutex
	done      chan struct{}
	found     bool
	withdrawn bool
}

func (e *Expectation) Key() Key { return e.key }

// resolve settles the expectation exactly once.
func (e *Expectation) resolve(found bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.found || e.withdrawn {
		return
	}
	e.found = found
	e.withdrawn = !found
	close(e.done)
}

// Wait blocks until the expectation resolves or the timeout elapses. It
// returns true only if the acknowledgment arrived in time. The expectation
// removes itself from the registry on every exit path.
func (e *Expectation) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.done:
	case <-timer.C:
	}

	e.registry.remove(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.found
}

// Registry is the shared map of pending expectations. The bus listener
// signals it from its own goroutine while saga workers register and wait;
// each expectation carries its own resolution channel, so no waiter ever
// holds the registry lock while blocked.
type Registry struct {
	mu           sync.Mutex
	expectations map[Key]*Expectation
}

func NewRegistry() *Registry {
	return &Registry{expectations: make(map[Key]*Expectation)}
}

// Expect registers a pending expectation for the key. A duplicate key
// overwrites the earlier registration; the superseded expectation will never
// be signaled and its waiter times out.
func (r *Registry) Expect(key Key) *Expectation {
	e := &Expectation{key: key, registry: r, done: make(chan struct{})}

	r.mu.Lock()
	r.expectations[key] = e
	r.mu.Unlock()

	return e
}

// Signal resolves and removes the expectation matching the key, waking its
// waiter. Signals with no matching expectation are dropped; the protocol
// registers expectations before issuing the producing call, so a match is
// only ever missing when nobody asked.
func (r *Registry) Signal(key Key) bool {
	r.mu.Lock()
	e, ok := r.expectations[key]
	if ok {
		delete(r.expectations, key)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	e.resolve(true)
	return true
}

// Withdraw removes a pending expectation and unblocks its waiter with a
// negative result. Used when the producing call failed synchronously and no
// acknowledgment can ever arrive.
func (r *Registry) Withdraw(e *Expectation) {
	r.remove(e)
	e.resolve(false)
}

func (r *Registry) remove(e *Expectation) {
	r.mu.Lock()
	if current, ok := r.expectations[e.key]; ok && current == e {
		delete(r.expectations, e.key)
	}
	r.mu.Unlock()
}

// Pending reports how many expectations are outstanding.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.expectations)
}

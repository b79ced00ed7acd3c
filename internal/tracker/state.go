package tracker

import (
	"sync"

	"kyat/internal/store"
)

// BindState is the subscription lifecycle of a synchronized component.
type BindState int

const (
	// Unbound: no user, no subscription, state is empty/zero.
	Unbound BindState = iota
	// Subscribing: a subscription is being established.
	Subscribing
	// Live: snapshots are flowing.
	Live
	// Broken: the subscription errored; state was reset and no retry
	// is attempted until the user reference changes.
	Broken
)

func (s BindState) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Live:
		return "live"
	case Broken:
		return "broken"
	default:
		return "unbound"
	}
}

// binding owns at most one live store subscription. Every rebind
// starts with a teardown that bumps the generation counter, so
// callbacks from a torn-down subscription identify themselves as stale
// and are dropped instead of writing into fresh state.
type binding struct {
	mu    sync.Mutex
	gen   uint64
	state BindState
	stop  store.Unsubscribe
}

// teardown cancels the active subscription exactly once and
// invalidates all outstanding callbacks. Idempotent; returns the
// token for the next subscription.
func (b *binding) teardown() uint64 {
	b.mu.Lock()
	stop := b.stop
	b.stop = nil
	b.gen++
	gen := b.gen
	b.state = Unbound
	b.mu.Unlock()

	if stop != nil {
		stop()
	}
	return gen
}

// subscribe establishes the next subscription unless a newer teardown
// won the race, in which case the fresh subscription is cancelled
// immediately. start may deliver the initial snapshot synchronously.
func (b *binding) subscribe(gen uint64, start func() store.Unsubscribe) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.state = Subscribing
	b.mu.Unlock()

	stop := start()

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		stop()
		return
	}
	b.stop = stop
	b.mu.Unlock()
}

// observed gates a data callback: it reports whether the callback
// belongs to the current subscription, marking the binding live.
func (b *binding) observed(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return false
	}
	b.state = Live
	return true
}

// failed gates an error callback and parks the binding in Broken.
func (b *binding) failed(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return false
	}
	b.state = Broken
	return true
}

func (b *binding) current() BindState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

package tracker

import (
	"sync"
	"testing"
	"time"

	"kyat/internal/auth"
	"kyat/internal/log"
	"kyat/internal/store/memory"
)

// tickingClock hands out strictly increasing timestamps so ledger
// ordering is deterministic.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	store    *memory.Store
	provider *auth.Local
	session  *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	st.Clock = newTickingClock().Now
	provider := auth.NewLocal()
	session := NewSession(st, provider, log.Discard())
	t.Cleanup(session.Close)
	return &fixture{store: st, provider: provider, session: session}
}

func (f *fixture) signIn(uid string) {
	f.provider.SignIn(uid, "")
}

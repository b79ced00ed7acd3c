// Package auth defines the authentication collaborator the tracker
// core observes. The core treats user identity as an opaque,
// possibly-nil, externally-updated reference; sign-in UX lives outside
// this repository.
package auth

import "sync"

// User is the authenticated identity reference.
type User struct {
	UID         string
	DisplayName string
}

// Provider supplies the current user and guarantees a notification on
// every sign-in and sign-out transition.
type Provider interface {
	Current() *User
	// OnChange registers fn and invokes it immediately with the
	// current user. The returned cancel is idempotent.
	OnChange(fn func(*User)) (cancel func())
}

// Local is an in-process Provider used by the server binary and tests.
type Local struct {
	mu        sync.Mutex
	user      *User
	listeners map[int]func(*User)
	nextID    int
}

// NewLocal returns a signed-out provider.
func NewLocal() *Local {
	return &Local{listeners: make(map[int]func(*User))}
}

func (l *Local) Current() *User {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.user
}

func (l *Local) OnChange(fn func(*User)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	current := l.user
	l.mu.Unlock()

	fn(current)

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

// SignIn sets the current user and notifies listeners.
func (l *Local) SignIn(uid, displayName string) {
	l.set(&User{UID: uid, DisplayName: displayName})
}

// SignOut clears the current user and notifies listeners.
func (l *Local) SignOut() {
	l.set(nil)
}

func (l *Local) set(u *User) {
	l.mu.Lock()
	l.user = u
	fns := make([]func(*User), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

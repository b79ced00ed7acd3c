package auth

import "testing"

func TestLocalNotifiesOnEveryTransition(t *testing.T) {
	l := NewLocal()

	var seen []*User
	cancel := l.OnChange(func(u *User) { seen = append(seen, u) })
	defer cancel()

	if len(seen) != 1 || seen[0] != nil {
		t.Fatalf("expected immediate nil notification, got %v", seen)
	}

	l.SignIn("u1", "Aye")
	l.SignOut()
	l.SignIn("u2", "Mya")

	if len(seen) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(seen))
	}
	if seen[1].UID != "u1" || seen[2] != nil || seen[3].UID != "u2" {
		t.Fatalf("unexpected transition sequence: %v", seen)
	}
	if l.Current().UID != "u2" {
		t.Fatalf("expected current user u2, got %v", l.Current())
	}
}

func TestLocalCancelIdempotent(t *testing.T) {
	l := NewLocal()
	count := 0
	cancel := l.OnChange(func(*User) { count++ })

	cancel()
	cancel()

	l.SignIn("u1", "")
	if count != 1 {
		t.Fatalf("expected only the immediate notification, got %d", count)
	}
}

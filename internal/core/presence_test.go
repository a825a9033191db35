package core

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryRegisterAndUnregister(t *testing.T) {
	r := NewRegistry()
	h := &stubHandle{id: "h1"}

	if r.IsOnline(1) {
		t.Fatalf("expected account 1 offline before register")
	}

	if displaced := r.Register(1, h); displaced != nil {
		t.Fatalf("expected nothing displaced, got %v", displaced.ID())
	}
	if !r.IsOnline(1) {
		t.Fatalf("expected account 1 online")
	}
	if got, ok := r.HandleFor(1); !ok || got != h {
		t.Fatalf("expected handle h1, got %v", got)
	}

	id, removed := r.Unregister(h)
	if !removed || id != 1 {
		t.Fatalf("expected account 1 removed, got %d %v", id, removed)
	}
	if r.IsOnline(1) {
		t.Fatalf("expected account 1 offline after unregister")
	}
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	h1 := &stubHandle{id: "h1"}
	h2 := &stubHandle{id: "h2"}
	r.Register(1, h1)
	r.Register(2, h2)

	r.Unregister(h1)
	if _, removed := r.Unregister(h1); removed {
		t.Fatalf("second unregister should be a no-op")
	}
	if _, removed := r.Unregister(&stubHandle{id: "never"}); removed {
		t.Fatalf("unregistering an unknown handle should be a no-op")
	}
	if !r.IsOnline(2) {
		t.Fatalf("account 2 must not be affected")
	}
}

func TestRegistryReplacementKeepsNewHandle(t *testing.T) {
	r := NewRegistry()
	h1 := &stubHandle{id: "h1"}
	h2 := &stubHandle{id: "h2"}

	r.Register(1, h1)
	if displaced := r.Register(1, h2); displaced != h1 {
		t.Fatalf("expected h1 displaced, got %v", displaced)
	}
	if got, _ := r.HandleFor(1); got != h2 {
		t.Fatalf("expected h2, got %v", got.ID())
	}

	// Stale disconnect of the first connection.
	if _, removed := r.Unregister(h1); removed {
		t.Fatalf("stale handle must not be removed")
	}
	if got, ok := r.HandleFor(1); !ok || got != h2 {
		t.Fatalf("expected account 1 to stay on h2")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 online account, got %d", r.Len())
	}
}

func TestRegistryReRegisterSameHandle(t *testing.T) {
	r := NewRegistry()
	h := &stubHandle{id: "h1"}

	r.Register(1, h)
	if displaced := r.Register(1, h); displaced != nil {
		t.Fatalf("re-registering the same handle must not displace it")
	}
	if got, _ := r.HandleFor(1); got != h {
		t.Fatalf("expected h1 to stay registered")
	}
}

func TestRegistryHandleSwitchesAccount(t *testing.T) {
	r := NewRegistry()
	h := &stubHandle{id: "h1"}

	r.Register(1, h)
	r.Register(2, h)

	if r.IsOnline(1) {
		t.Fatalf("account 1 must lose the handle once it authenticates as account 2")
	}
	if !r.IsOnline(2) {
		t.Fatalf("expected account 2 online")
	}

	if id, removed := r.Unregister(h); !removed || id != 2 {
		t.Fatalf("expected account 2 removed, got %d %v", id, removed)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistryConcurrentReconnects(t *testing.T) {
	r := NewRegistry()

	const accounts = 50
	const rounds = 20

	var wg sync.WaitGroup
	for a := int64(1); a <= accounts; a++ {
		wg.Add(1)
		go func(account int64) {
			defer wg.Done()
			var last *stubHandle
			for i := 0; i < rounds; i++ {
				next := &stubHandle{id: fmt.Sprintf("%d-%d", account, i)}
				r.Register(account, next)
				if last != nil {
					// Disconnect of the previous connection arrives after the new one registered.
					r.Unregister(last)
				}
				last = next
			}
		}(a)
	}
	wg.Wait()

	if r.Len() != accounts {
		t.Fatalf("expected %d online accounts, got %d", accounts, r.Len())
	}
	for a := int64(1); a <= accounts; a++ {
		h, ok := r.HandleFor(a)
		if !ok {
			t.Fatalf("account %d went offline", a)
		}
		if want := fmt.Sprintf("%d-%d", a, rounds-1); h.ID() != want {
			t.Fatalf("account %d: expected %s, got %s", a, want, h.ID())
		}
	}
}

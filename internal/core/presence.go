package core

import "sync"

// Registry maps account IDs to the connection handle currently registered
// for them. An account has at most one handle; a handle belongs to at most
// one account. All access goes through a single lock.
type Registry struct {
	mu        sync.Mutex
	byAccount map[int64]Handle
	byHandle  map[Handle]int64
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		byAccount: make(map[int64]Handle),
		byHandle:  make(map[Handle]int64),
	}
}

// Register associates accountID with h, replacing any earlier handle for
// that account. The displaced handle, if any, is returned so the caller can
// decide what to do with its connection; the registry never closes it.
func (r *Registry) Register(accountID int64, h Handle) (displaced Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// h re-authenticated as a different account.
	if prevAccount, ok := r.byHandle[h]; ok && prevAccount != accountID {
		if r.byAccount[prevAccount] == h {
			delete(r.byAccount, prevAccount)
		}
	}

	if prev, ok := r.byAccount[accountID]; ok && prev != h {
		delete(r.byHandle, prev)
		displaced = prev
	}

	r.byAccount[accountID] = h
	r.byHandle[h] = accountID
	return displaced
}

// Unregister removes h from whichever account currently holds it.
// It is a no-op for handles that were replaced or never registered.
func (r *Registry) Unregister(h Handle) (accountID int64, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accountID, ok := r.byHandle[h]
	if !ok {
		return 0, false
	}
	delete(r.byHandle, h)
	if r.byAccount[accountID] == h {
		delete(r.byAccount, accountID)
	}
	return accountID, true
}

// IsOnline reports whether accountID has a registered handle.
func (r *Registry) IsOnline(accountID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byAccount[accountID]
	return ok
}

// HandleFor returns the handle registered for accountID.
func (r *Registry) HandleFor(accountID int64) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.byAccount[accountID]
	return h, ok
}

// Len returns the number of online accounts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byAccount)
}

// Package presence tracks which users have at least one live connection.
//
// A Registry is not safe for concurrent use. The gateway hub goroutine owns
// it and is its only caller.
package presence

// Transition describes what a mutation did to a user's online status.
type Transition int

const (
	// Unchanged means the user's online status did not flip.
	Unchanged Transition = iota
	// WentOnline means the user had no connection before this one.
	WentOnline
	// WentOffline means the user's last connection just closed.
	WentOffline
)

// Registry maps a user ID to the set of connection handles currently open for it.
type Registry struct {
	conns map[uint64]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uint64]map[string]struct{})}
}

// MarkOnline records handle for userID. Re-adding a known handle is a no-op.
func (r *Registry) MarkOnline(userID uint64, handle string) Transition {
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{}, 1)
		r.conns[userID] = set
	}
	if _, dup := set[handle]; dup {
		return Unchanged
	}
	set[handle] = struct{}{}
	if len(set) == 1 {
		return WentOnline
	}
	return Unchanged
}

// MarkOffline removes handle for userID. The user goes offline only when the
// last handle is removed; unknown handles are ignored.
func (r *Registry) MarkOffline(userID uint64, handle string) Transition {
	set, ok := r.conns[userID]
	if !ok {
		return Unchanged
	}
	if _, known := set[handle]; !known {
		return Unchanged
	}
	delete(set, handle)
	if len(set) == 0 {
		delete(r.conns, userID)
		return WentOffline
	}
	return Unchanged
}

// IsOnline reports whether userID has any open connection.
func (r *Registry) IsOnline(userID uint64) bool {
	return len(r.conns[userID]) > 0
}

// Connections returns how many handles userID currently holds.
func (r *Registry) Connections(userID uint64) int {
	return len(r.conns[userID])
}

// Online returns the number of distinct online users.
func (r *Registry) Online() int {
	return len(r.conns)
}

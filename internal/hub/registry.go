package hub

import (
	"sort"
	"sync"
)

// Registry tracks which connections belong to which owner group.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]map[string]struct{}
	// reverse index so a closing connection can leave every group it joined
	byConn map[string]map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join adds connID to the owner's group. Joining twice is a no-op.
func (r *Registry) Join(ownerID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.groups[ownerID] == nil {
		r.groups[ownerID] = make(map[string]struct{})
	}
	r.groups[ownerID][connID] = struct{}{}

	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[string]struct{})
	}
	r.byConn[connID][ownerID] = struct{}{}
}

// Leave removes connID from the owner's group. Empty groups are dropped.
func (r *Registry) Leave(ownerID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(ownerID, connID)
}

func (r *Registry) leave(ownerID, connID string) {
	if members, ok := r.groups[ownerID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.groups, ownerID)
		}
	}
	if owners, ok := r.byConn[connID]; ok {
		delete(owners, ownerID)
		if len(owners) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// RemoveConnection drops connID from every group it is a member of.
func (r *Registry) RemoveConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ownerID := range r.byConn[connID] {
		r.leave(ownerID, connID)
	}
}

// Members returns the connection IDs in the owner's group, sorted.
func (r *Registry) Members(ownerID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.groups[ownerID]))
	for id := range r.groups[ownerID] {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// GroupCount returns the number of non-empty groups.
func (r *Registry) GroupCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}

package runtime

import (
	"sync"

	"github.com/google/uuid"

	"chat-core/contract"
)

type Set map[string]struct{}

// Registry tracks which live subscribers follow which session. A participant
// (a visitor tab, an agent dashboard) registers one sink; membership maps a
// session to the participants watching it.
type Registry struct {
	mu             sync.RWMutex
	subscribers    map[string]contract.EventSink
	sessionMembers map[uuid.UUID]Set
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		subscribers:    make(map[string]contract.EventSink),
		sessionMembers: make(map[uuid.UUID]Set),
	}
}

// GetSinksForSession retrieves the active sinks watching one session.
// Two-step lookup: member ids first, then their sinks. A participant watching
// several sessions keeps a single sink entry.
// Returns nil when the session has no watchers.
func (r *Registry) GetSinksForSession(sessionID uuid.UUID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.sessionMembers[sessionID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for participantID := range members {
		if sink, exists := r.subscribers[participantID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Subscribe registers a participant's sink and attaches them to a session.
func (r *Registry) Subscribe(participantID string, sessionID uuid.UUID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers[participantID] = sink

	if _, ok := r.sessionMembers[sessionID]; !ok {
		r.sessionMembers[sessionID] = make(Set)
	}
	r.sessionMembers[sessionID][participantID] = struct{}{}
}

// Unsubscribe removes a participant from the registry and from the session.
// Empty member sets are removed so long-running processes don't accumulate
// entries for finished sessions.
func (r *Registry) Unsubscribe(participantID string, sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subscribers, participantID)

	if members, ok := r.sessionMembers[sessionID]; ok {
		delete(members, participantID)

		if len(members) == 0 {
			delete(r.sessionMembers, sessionID)
		}
	}
}

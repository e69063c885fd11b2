// Package session owns the session lifecycle and its arbitration. All
// mutating operations on one session run inside that session's exclusive
// critical section; sessions never contend with each other.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
)

// entry is the independently lockable unit of the single-writer discipline:
// one mutex guards both the session record and its message sequence counter.
type entry struct {
	mu      sync.Mutex
	sess    domain.Session
	nextSeq uint64
}

// NextSeqFunc recovers a session's message sequence counter from storage
// when the session is not resident (after a restart).
type NextSeqFunc func(sessionID uuid.UUID) (uint64, error)

type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry

	repo    contract.SessionRepository
	nextSeq NextSeqFunc
	log     *slog.Logger
}

var _ contract.SessionState = (*Registry)(nil)

func NewRegistry(repo contract.SessionRepository, nextSeq NextSeqFunc, log *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]*entry),
		repo:    repo,
		nextSeq: nextSeq,
		log:     log,
	}
}

// Create inserts a new resident session and persists it.
func (r *Registry) Create(_ context.Context, s domain.Session) error {
	r.mu.Lock()
	if _, ok := r.entries[s.ID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("session %s already registered", s.ID)
	}
	e := &entry{sess: s, nextSeq: 1}
	r.entries[s.ID] = e
	r.mu.Unlock()

	if err := r.repo.Save(s); err != nil {
		// Keep memory and storage in step: an unpersisted session must not
		// stay resident.
		r.evict(s.ID)
		return fmt.Errorf("persist session %s: %w", s.ID, err)
	}
	return nil
}

// Update runs fn inside the session's critical section. fn mutates a working
// copy; the copy is persisted and committed only when fn returns nil, so a
// rejected transition leaves both memory and storage untouched.
func (r *Registry) Update(_ context.Context, id uuid.UUID, fn func(s *domain.Session, nextSeq *uint64) error) (domain.Session, error) {
	e, err := r.resident(id)
	if err != nil {
		return domain.Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.sess
	seq := e.nextSeq
	if err := fn(&working, &seq); err != nil {
		return e.sess, err
	}
	if err := r.repo.Save(working); err != nil {
		return e.sess, fmt.Errorf("persist session %s: %w", id, err)
	}
	e.sess = working
	e.nextSeq = seq
	return working, nil
}

// View returns a copy of the current session state.
func (r *Registry) View(_ context.Context, id uuid.UUID) (domain.Session, error) {
	e, err := r.resident(id)
	if err != nil {
		return domain.Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess, nil
}

// resident returns the in-memory entry, loading it from storage on first
// touch after a restart. The sequence counter is recovered from the message
// log so appended messages keep a gap-free total order across restarts.
func (r *Registry) resident(id uuid.UUID) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	sess, err := r.repo.Get(id)
	if err != nil {
		return nil, err
	}
	seq, err := r.nextSeq(id)
	if err != nil {
		return nil, fmt.Errorf("recover sequence for session %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another goroutine may have loaded it while we were reading storage.
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	e = &entry{sess: sess, nextSeq: seq}
	r.entries[id] = e
	r.log.Debug("session loaded from storage", "session_id", id, "next_seq", seq)
	return e, nil
}

// evict drops a terminal session from memory. Storage keeps the record.
func (r *Registry) evict(id uuid.UUID) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Package message owns the transcript of a session: ordered append, per-party
// read state, and visibility of private agent notes. It reads session state
// only to validate liveness and to borrow the session's critical section for
// sequence assignment.
package message

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
	"chat-core/moderation"
)

// AppendRequest carries one message submission. Payload is only inspected
// for file/image messages, to record the detected media type; the bytes
// themselves are stored elsewhere by the upload collaborator.
type AppendRequest struct {
	SessionID  uuid.UUID
	Type       domain.MessageType
	Content    string
	AuthorType domain.AuthorType
	AuthorID   *uuid.UUID
	AuthorName string
	IsPrivate  bool
	Metadata   map[string]string
	Payload    []byte
}

// Caller identifies who is asking for a transcript. Private notes are
// visible to agents only; the role is passed in explicitly, never inferred.
type Caller struct {
	Party   domain.Party
	AgentID *uuid.UUID
}

type Store struct {
	sessions contract.SessionState
	repo     contract.MessageRepository
	masker   *moderation.Masker
	bus      contract.EventPublisher
	log      *slog.Logger
}

func NewStore(sessions contract.SessionState, repo contract.MessageRepository,
	masker *moderation.Masker, bus contract.EventPublisher, log *slog.Logger) *Store {
	return &Store{sessions: sessions, repo: repo, masker: masker, bus: bus, log: log}
}

// Append stores a message at the next per-session sequence number. The
// sequence is taken and the record persisted inside the session's critical
// section: interleaved visitor and agent submissions get distinct, gap-free,
// strictly increasing sequence numbers, and wall-clock ties cannot reorder
// them. Fails with SessionClosed once the session has ended.
func (st *Store) Append(ctx context.Context, req AppendRequest) (domain.Message, error) {
	msg := domain.Message{
		ID:         uuid.New(),
		SessionID:  req.SessionID,
		Type:       req.Type,
		Content:    req.Content,
		AuthorType: req.AuthorType,
		AuthorID:   req.AuthorID,
		AuthorName: req.AuthorName,
		Metadata:   cloneMetadata(req.Metadata),
		IsPrivate:  req.IsPrivate,
	}
	st.enrich(&msg, req.Payload)

	var assignedAgent *uuid.UUID
	sess, err := st.sessions.Update(ctx, req.SessionID, func(s *domain.Session, nextSeq *uint64) error {
		if s.Terminal() {
			return fmt.Errorf("append message: %w", errors.ErrSessionClosed)
		}
		now := time.Now().UTC()
		msg.TenantID = s.TenantID
		msg.ProjectID = s.ProjectID
		msg.Seq = *nextSeq
		msg.CreatedAt = now
		if err := st.repo.Store(msg); err != nil {
			return fmt.Errorf("persist message %s: %w", msg.ID, err)
		}
		*nextSeq++
		s.LastActivityAt = now
		assignedAgent = s.AssignedAgentID
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}

	st.publish(ctx, event.MessageAppended{
		MessageID:       msg.ID,
		SessionID:       msg.SessionID,
		TenantID:        sess.TenantID,
		ProjectID:       sess.ProjectID,
		Seq:             msg.Seq,
		AuthorType:      msg.AuthorType,
		AuthorName:      msg.AuthorName,
		Content:         msg.Content,
		IsPrivate:       msg.IsPrivate,
		AssignedAgentID: assignedAgent,
		Time:            msg.CreatedAt,
	})
	return msg, nil
}

// MarkRead acknowledges messages up to and including upToSeq for the given
// party. Only messages authored by the other side are affected: a party
// cannot read its own messages, and re-marking an already-read range is a
// no-op. Returns the number of newly marked messages.
func (st *Store) MarkRead(ctx context.Context, sessionID uuid.UUID, party domain.Party, upToSeq uint64) (int, error) {
	marked := 0
	_, err := st.sessions.Update(ctx, sessionID, func(s *domain.Session, _ *uint64) error {
		msgs, err := st.repo.ListBySession(sessionID, true)
		if err != nil {
			return fmt.Errorf("load transcript %s: %w", sessionID, err)
		}
		now := time.Now().UTC()
		for _, m := range msgs {
			if m.Seq > upToSeq || !party.Reads(m.AuthorType) || m.ReadBy(party) {
				continue
			}
			switch party {
			case domain.PartyVisitor:
				m.ReadByVisitor = true
			case domain.PartyAgent:
				m.ReadByAgent = true
			}
			if m.ReadAt == nil {
				m.ReadAt = &now
			}
			if err := st.repo.Store(m); err != nil {
				return fmt.Errorf("persist read state %s: %w", m.ID, err)
			}
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		st.log.Debug("messages marked read", "session_id", sessionID, "party", party, "count", marked)
	}
	return marked, nil
}

// List returns the transcript in append order. Private notes are included
// only for agent callers.
func (st *Store) List(ctx context.Context, sessionID uuid.UUID, caller Caller) ([]domain.Message, error) {
	if _, err := st.sessions.View(ctx, sessionID); err != nil {
		return nil, err
	}
	includePrivate := caller.Party == domain.PartyAgent
	return st.repo.ListBySession(sessionID, includePrivate)
}

// Page returns the transcript newest-first with cursor pagination, for
// agent dashboard views.
func (st *Store) Page(ctx context.Context, sessionID uuid.UUID, caller Caller, cursor *string) ([]domain.Message, *string, error) {
	if caller.Party != domain.PartyAgent {
		return nil, nil, fmt.Errorf("transcript pagination is agent-only")
	}
	if _, err := st.sessions.View(ctx, sessionID); err != nil {
		return nil, nil, err
	}
	return st.repo.Page(sessionID, cursor)
}

// enrich applies moderation to visitor text and records detected language
// and media type in the metadata. Runs before the critical section; it is
// pure CPU work.
func (st *Store) enrich(msg *domain.Message, payload []byte) {
	if msg.AuthorType == domain.AuthorVisitor && msg.Type == domain.MessageText && st.masker != nil {
		masked, hits := st.masker.Mask(msg.Content)
		if len(hits) > 0 {
			msg.Content = masked
			msg.Metadata["moderated"] = "true"
		}
	}
	if msg.Type == domain.MessageText {
		if lang := moderation.DetectLanguage(msg.Content); lang != "" {
			msg.Metadata["lang"] = lang
		}
	}
	if (msg.Type == domain.MessageFile || msg.Type == domain.MessageImage) && len(payload) > 0 {
		msg.Metadata["mime"] = mimetype.Detect(payload).String()
	}
}

func cloneMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (st *Store) publish(ctx context.Context, e event.DomainEvent) {
	if err := st.bus.Publish(ctx, e); err != nil {
		st.log.Warn("event publication failed", "event", e.Name(), "error", err)
	}
}

package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
)

var (
	_ contract.Worker    = (*SLAMonitor)(nil)
	_ contract.EventSink = (*SLAMonitor)(nil)
)

// slaState tracks one session waiting on an agent response. gen is a
// generation counter: every re-arm or disarm bumps it, so a timer fire
// carrying a stale generation is ignored instead of raced against.
type slaState struct {
	gen         uint64
	tenantID    uuid.UUID
	projectID   uuid.UUID
	agent       *uuid.UUID
	warned      bool
	warnTimer   *time.Timer
	breachTimer *time.Timer
}

type timerFire struct {
	sessionID uuid.UUID
	gen       uint64
	breach    bool
}

// SLAMonitor watches sessions for two conditions: a session nobody has
// claimed, and a visitor message nobody has answered. Either arms a pair of
// timers; crossing the first threshold emits a warning notification, crossing
// the second a breach. Assignment or an agent reply disarms. All state lives
// on the monitor goroutine, so the event handlers and timer fires never need
// a lock: timers only send on the fires channel.
type SLAMonitor struct {
	notifier        contract.Notifier
	warnAfter       time.Duration
	breachAfter     time.Duration
	escalationAgent uuid.UUID
	log             *slog.Logger

	inbox chan event.DomainEvent
	fires chan timerFire

	sessions map[uuid.UUID]*slaState
}

func NewSLAMonitor(notifier contract.Notifier, warnAfter, breachAfter time.Duration,
	escalationAgent uuid.UUID, bufferSize int, log *slog.Logger) (*SLAMonitor, error) {
	if breachAfter <= warnAfter {
		return nil, fmt.Errorf("breach threshold %s must exceed warning threshold %s", breachAfter, warnAfter)
	}
	return &SLAMonitor{
		notifier:        notifier,
		warnAfter:       warnAfter,
		breachAfter:     breachAfter,
		escalationAgent: escalationAgent,
		log:             log,
		inbox:           make(chan event.DomainEvent, bufferSize),
		fires:           make(chan timerFire, bufferSize),
		sessions:        make(map[uuid.UUID]*slaState),
	}, nil
}

// Consume hands an event to the monitor goroutine.
func (m *SLAMonitor) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case m.inbox <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SLAMonitor) Run(ctx context.Context) error {
	defer m.disarmAll()
	for {
		select {
		case <-ctx.Done():
			m.log.Debug("stopping SLA monitor")
			return nil
		case e := <-m.inbox:
			m.handleEvent(e)
		case fire := <-m.fires:
			m.handleFire(ctx, fire)
		}
	}
}

func (m *SLAMonitor) handleEvent(e event.DomainEvent) {
	switch ev := e.(type) {
	case event.SessionCreated:
		// A fresh session has no agent; the clock starts immediately.
		m.arm(ev.SessionID, ev.TenantID, ev.ProjectID, nil)
	case event.AssignmentChanged:
		if ev.NewAgentID != nil {
			m.disarm(ev.SessionID)
		} else {
			// A release returns the session to the unassigned pool. The
			// previous assignee walked away, so the escalation contact is
			// the target, same as for a fresh session.
			m.arm(ev.SessionID, ev.TenantID, ev.ProjectID, nil)
		}
	case event.SessionTransferred:
		// Transfer returns the session to arbitration; nobody answers until
		// someone claims it again.
		m.arm(ev.SessionID, ev.TenantID, ev.ProjectID, nil)
	case event.SessionEnded:
		m.disarm(ev.SessionID)
		delete(m.sessions, ev.SessionID)
	case event.MessageAppended:
		if ev.IsPrivate {
			return
		}
		switch ev.AuthorType {
		case domain.AuthorVisitor:
			// A visitor message on an assigned session starts the
			// unanswered clock against the assignee. On an unassigned
			// session the unclaimed clock is already running.
			if ev.AssignedAgentID != nil {
				m.arm(ev.SessionID, ev.TenantID, ev.ProjectID, ev.AssignedAgentID)
			}
		case domain.AuthorAgent:
			m.disarm(ev.SessionID)
		}
	}
}

// arm starts (or restarts) the warning and breach timers for a session.
func (m *SLAMonitor) arm(sessionID, tenantID, projectID uuid.UUID, agent *uuid.UUID) {
	state, ok := m.sessions[sessionID]
	if !ok {
		state = &slaState{}
		m.sessions[sessionID] = state
	}
	state.stopTimers()
	state.gen++
	state.tenantID = tenantID
	state.projectID = projectID
	state.agent = agent
	state.warned = false

	gen := state.gen
	state.warnTimer = time.AfterFunc(m.warnAfter, func() {
		m.fire(timerFire{sessionID: sessionID, gen: gen, breach: false})
	})
	state.breachTimer = time.AfterFunc(m.breachAfter, func() {
		m.fire(timerFire{sessionID: sessionID, gen: gen, breach: true})
	})
}

func (m *SLAMonitor) disarm(sessionID uuid.UUID) {
	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	state.stopTimers()
	state.gen++
}

func (m *SLAMonitor) disarmAll() {
	for _, state := range m.sessions {
		state.stopTimers()
	}
}

func (s *slaState) stopTimers() {
	if s.warnTimer != nil {
		s.warnTimer.Stop()
		s.warnTimer = nil
	}
	if s.breachTimer != nil {
		s.breachTimer.Stop()
		s.breachTimer = nil
	}
}

// fire is called from timer goroutines; it never blocks them. A full fires
// channel means the monitor is drowning and a warning beats a deadlock.
func (m *SLAMonitor) fire(f timerFire) {
	select {
	case m.fires <- f:
	default:
		m.log.Warn("SLA fire dropped, channel full", "session_id", f.sessionID)
	}
}

func (m *SLAMonitor) handleFire(ctx context.Context, f timerFire) {
	state, ok := m.sessions[f.sessionID]
	if !ok || state.gen != f.gen {
		return
	}
	if f.breach {
		// Never report a breach whose warning was lost.
		if !state.warned {
			m.emit(ctx, f.sessionID, state, domain.NotifSLAWarning)
			state.warned = true
		}
		m.emit(ctx, f.sessionID, state, domain.NotifSLABreach)
		// The pair fired; a new qualifying event must re-arm.
		state.gen++
		return
	}
	if state.warned {
		return
	}
	state.warned = true
	m.emit(ctx, f.sessionID, state, domain.NotifSLAWarning)
}

func (m *SLAMonitor) emit(ctx context.Context, sessionID uuid.UUID, state *slaState, t domain.NotificationType) {
	target := m.escalationAgent
	if state.agent != nil {
		target = *state.agent
	}
	title := "Response time warning"
	body := fmt.Sprintf("Session %s has been waiting for a reply for over %s", sessionID, m.warnAfter)
	if t == domain.NotifSLABreach {
		title = "Response time breached"
		body = fmt.Sprintf("Session %s has had no reply for over %s", sessionID, m.breachAfter)
	}
	actionURL := fmt.Sprintf("/chat/session/%s", sessionID)
	projectID := state.projectID
	_, err := m.notifier.Notify(ctx, contract.NotifyInput{
		TenantID:  state.tenantID,
		ProjectID: &projectID,
		AgentID:   target,
		Type:      t,
		Title:     title,
		Message:   body,
		ActionURL: &actionURL,
		Metadata:  map[string]string{"session_id": sessionID.String()},
	})
	if err != nil {
		m.log.Error("SLA notification failed",
			"type", t, "session_id", sessionID, "error", err)
	}
}

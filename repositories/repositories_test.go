package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	options := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testSession(tenantID uuid.UUID) domain.Session {
	now := time.Now().UTC()
	return domain.Session{
		ID:             uuid.New(),
		TenantID:       tenantID,
		ProjectID:      uuid.New(),
		WidgetID:       uuid.New(),
		Token:          "tok",
		Status:         domain.SessionActive,
		StartedAt:      now,
		LastActivityAt: now,
	}
}

func TestSessionRepository_RoundTrip(t *testing.T) {
	req := require.New(t)
	repo := NewSessionRepository(openTestDB(t), slog.Default())

	agent := uuid.New()
	sess := testSession(uuid.New())
	sess.AssignedAgentID = &agent
	sess.VisitorInfo = map[string]string{"name": "Dana", "email": "dana@example.com"}

	req.NoError(repo.Save(sess))
	loaded, err := repo.Get(sess.ID)
	req.NoError(err)
	req.Equal(sess.ID, loaded.ID)
	req.Equal(sess.Status, loaded.Status)
	req.Equal(agent, *loaded.AssignedAgentID)
	req.Equal("Dana", loaded.VisitorInfo["name"])

	_, err = repo.Get(uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestSessionRepository_ListFilters(t *testing.T) {
	req := require.New(t)
	repo := NewSessionRepository(openTestDB(t), slog.Default())
	tenant := uuid.New()
	agent := uuid.New()

	active := testSession(tenant)
	req.NoError(repo.Save(active))

	assigned := testSession(tenant)
	assigned.AssignedAgentID = &agent
	req.NoError(repo.Save(assigned))

	ended := testSession(tenant)
	ended.Status = domain.SessionEnded
	req.NoError(repo.Save(ended))

	otherTenant := testSession(uuid.New())
	req.NoError(repo.Save(otherTenant))

	all, err := repo.List(tenant, contract.SessionFilter{})
	req.NoError(err)
	req.Len(all, 3, "other tenants never leak into the listing")

	activeOnly, err := repo.List(tenant, contract.SessionFilter{Status: domain.SessionActive})
	req.NoError(err)
	req.Len(activeOnly, 2)

	mine, err := repo.List(tenant, contract.SessionFilter{AssignedAgentID: &agent})
	req.NoError(err)
	req.Len(mine, 1)
	req.Equal(assigned.ID, mine[0].ID)

	widget, err := repo.List(tenant, contract.SessionFilter{WidgetID: &active.WidgetID})
	req.NoError(err)
	req.Len(widget, 1)

	limited, err := repo.List(tenant, contract.SessionFilter{Limit: 2})
	req.NoError(err)
	req.Len(limited, 2)
}

func testMessage(sessionID uuid.UUID, seq uint64, author domain.AuthorType) domain.Message {
	return domain.Message{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		SessionID:  sessionID,
		Seq:        seq,
		Type:       domain.MessageText,
		Content:    fmt.Sprintf("message %d", seq),
		AuthorType: author,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestMessageRepository_OrderAndPrivateFilter(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	sessionID := uuid.New()

	// Store out of order; the key layout must restore sequence order.
	for _, seq := range []uint64{3, 1, 2} {
		req.NoError(repo.Store(testMessage(sessionID, seq, domain.AuthorVisitor)))
	}
	note := testMessage(sessionID, 4, domain.AuthorAgent)
	note.IsPrivate = true
	req.NoError(repo.Store(note))

	public, err := repo.ListBySession(sessionID, false)
	req.NoError(err)
	req.Len(public, 3)
	for i, m := range public {
		req.Equal(uint64(i+1), m.Seq)
	}

	full, err := repo.ListBySession(sessionID, true)
	req.NoError(err)
	req.Len(full, 4)

	other, err := repo.ListBySession(uuid.New(), true)
	req.NoError(err)
	req.Empty(other)
}

func TestMessageRepository_StoreOverwritesSameMessage(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	sessionID := uuid.New()

	m := testMessage(sessionID, 1, domain.AuthorVisitor)
	req.NoError(repo.Store(m))

	now := time.Now().UTC()
	m.ReadByAgent = true
	m.ReadAt = &now
	req.NoError(repo.Store(m))

	msgs, err := repo.ListBySession(sessionID, true)
	req.NoError(err)
	req.Len(msgs, 1, "a read-flag rewrite must not duplicate the record")
	req.True(msgs[0].ReadByAgent)
}

func TestMessageRepository_PageNewestFirst(t *testing.T) {
	req := require.New(t)
	pageSize := 2
	repo := NewMessageRepository(openTestDB(t), slog.Default(), &pageSize)
	sessionID := uuid.New()

	for seq := uint64(1); seq <= 5; seq++ {
		req.NoError(repo.Store(testMessage(sessionID, seq, domain.AuthorVisitor)))
	}

	page1, cursor, err := repo.Page(sessionID, nil)
	req.NoError(err)
	req.Len(page1, 2)
	req.Equal(uint64(5), page1[0].Seq)
	req.Equal(uint64(4), page1[1].Seq)
	req.NotNil(cursor)

	page2, cursor, err := repo.Page(sessionID, cursor)
	req.NoError(err)
	req.Len(page2, 2)
	req.Equal(uint64(3), page2[0].Seq)
	req.Equal(uint64(2), page2[1].Seq)

	page3, _, err := repo.Page(sessionID, cursor)
	req.NoError(err)
	req.Len(page3, 1)
	req.Equal(uint64(1), page3[0].Seq)
}

func TestMessageRepository_NextSeqRecovery(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	sessionID := uuid.New()

	// Empty transcript starts at 1.
	next, err := repo.NextSeq(sessionID)
	req.NoError(err)
	req.Equal(uint64(1), next)

	for seq := uint64(1); seq <= 7; seq++ {
		req.NoError(repo.Store(testMessage(sessionID, seq, domain.AuthorVisitor)))
	}
	next, err = repo.NextSeq(sessionID)
	req.NoError(err)
	req.Equal(uint64(8), next)

	// Another session's transcript has no effect.
	next, err = repo.NextSeq(uuid.New())
	req.NoError(err)
	req.Equal(uint64(1), next)
}

func testNotification(tenantID, agentID uuid.UUID, createdAt time.Time) domain.Notification {
	return domain.Notification{
		ID:        uuid.New(),
		TenantID:  tenantID,
		AgentID:   agentID,
		Type:      domain.NotifSessionAssigned,
		Title:     "title",
		Message:   "message",
		Priority:  domain.PriorityNormal,
		Channels:  []domain.Channel{domain.ChannelWeb},
		CreatedAt: createdAt,
	}
}

func TestNotificationRepository_FeedNewestFirst(t *testing.T) {
	req := require.New(t)
	repo := NewNotificationRepository(openTestDB(t), slog.Default())
	tenant := uuid.New()
	agent := uuid.New()
	base := time.Now().UTC()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n := testNotification(tenant, agent, base.Add(time.Duration(i)*time.Second))
		ids = append(ids, n.ID)
		req.NoError(repo.Save(n))
	}
	req.NoError(repo.Save(testNotification(tenant, uuid.New(), base)))

	feed, err := repo.ListByAgent(tenant, agent, contract.NotificationFilter{})
	req.NoError(err)
	req.Len(feed, 3)
	req.Equal(ids[2], feed[0].ID)
	req.Equal(ids[0], feed[2].ID)

	limited, err := repo.ListByAgent(tenant, agent, contract.NotificationFilter{Limit: 1})
	req.NoError(err)
	req.Len(limited, 1)
	req.Equal(ids[2], limited[0].ID)
}

func TestNotificationRepository_GetByIDAndFilters(t *testing.T) {
	req := require.New(t)
	repo := NewNotificationRepository(openTestDB(t), slog.Default())
	tenant := uuid.New()
	agent := uuid.New()

	urgent := testNotification(tenant, agent, time.Now().UTC())
	urgent.Priority = domain.PriorityUrgent
	req.NoError(repo.Save(urgent))

	read := testNotification(tenant, agent, time.Now().UTC().Add(time.Second))
	read.IsRead = true
	req.NoError(repo.Save(read))

	loaded, err := repo.Get(urgent.ID)
	req.NoError(err)
	req.Equal(domain.PriorityUrgent, loaded.Priority)

	_, err = repo.Get(uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)

	unread, err := repo.ListByAgent(tenant, agent, contract.NotificationFilter{UnreadOnly: true})
	req.NoError(err)
	req.Len(unread, 1)
	req.Equal(urgent.ID, unread[0].ID)

	urgentOnly, err := repo.ListByAgent(tenant, agent, contract.NotificationFilter{MinPriority: domain.PriorityUrgent})
	req.NoError(err)
	req.Len(urgentOnly, 1)
}

func TestNotificationRepository_ExpiryAndSweep(t *testing.T) {
	req := require.New(t)
	repo := NewNotificationRepository(openTestDB(t), slog.Default())
	tenant := uuid.New()
	agent := uuid.New()
	now := time.Now().UTC()

	expired := testNotification(tenant, agent, now.Add(-time.Hour))
	past := now.Add(-time.Minute)
	expired.ExpiresAt = &past
	req.NoError(repo.Save(expired))

	alive := testNotification(tenant, agent, now)
	future := now.Add(time.Hour)
	alive.ExpiresAt = &future
	req.NoError(repo.Save(alive))

	forever := testNotification(tenant, agent, now.Add(time.Second))
	req.NoError(repo.Save(forever))

	// Expired records are hidden before any sweep runs.
	feed, err := repo.ListByAgent(tenant, agent, contract.NotificationFilter{})
	req.NoError(err)
	req.Len(feed, 2)

	swept, err := repo.SweepExpired(now)
	req.NoError(err)
	req.Equal(1, swept)
	_, err = repo.Get(expired.ID)
	req.ErrorIs(err, errors.ErrNotFound)

	// Still-valid and non-expiring records survive, sweep is idempotent.
	swept, err = repo.SweepExpired(now)
	req.NoError(err)
	req.Zero(swept)
	_, err = repo.Get(alive.ID)
	req.NoError(err)
	_, err = repo.Get(forever.ID)
	req.NoError(err)
}

func TestSettingsRepository_DefaultsAndRoundTrip(t *testing.T) {
	req := require.New(t)
	repo := NewSettingsRepository(openTestDB(t), slog.Default())
	agent := uuid.New()

	// Unsaved agents get the defaults: everything enabled.
	settings, err := repo.GetSettings(agent)
	req.NoError(err)
	req.Equal(agent, settings.AgentID)
	req.True(settings.EmailEnabled)
	req.True(settings.PushEnabled)
	req.Empty(settings.Disabled)

	settings.SMSEnabled = false
	settings.Disabled[domain.NotifSessionEnded] = true
	req.NoError(repo.SaveSettings(settings))

	loaded, err := repo.GetSettings(agent)
	req.NoError(err)
	req.False(loaded.SMSEnabled)
	req.True(loaded.Disabled[domain.NotifSessionEnded])
	req.True(loaded.EmailEnabled)
}

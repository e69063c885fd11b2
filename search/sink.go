package search

import (
	"context"
	"log/slog"

	"chat-core/contract"
	"chat-core/domain/event"
)

var _ contract.EventSink = (*IndexSink)(nil)

// IndexSink feeds the transcript index from the event stream. Private notes
// never reach the index: search results go to dashboards and exports where
// visitor-facing filtering would be a second, easy-to-miss step.
type IndexSink struct {
	index *TranscriptIndex
	log   *slog.Logger
}

func NewIndexSink(index *TranscriptIndex, log *slog.Logger) *IndexSink {
	return &IndexSink{index: index, log: log}
}

func (s *IndexSink) Consume(_ context.Context, e event.DomainEvent) error {
	appended, ok := e.(event.MessageAppended)
	if !ok || appended.IsPrivate {
		return nil
	}
	err := s.index.Index(appended.MessageID, appended.SessionID, appended.TenantID,
		appended.Seq, appended.AuthorName, appended.Content, appended.Time)
	if err != nil {
		s.log.Warn("transcript indexing failed", "message_id", appended.MessageID, "error", err)
		return err
	}
	return nil
}

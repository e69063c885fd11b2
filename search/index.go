// Package search maintains a full-text index over message transcripts. The
// index is a projection: badger stays the source of truth, and the index can
// be rebuilt from it.
package search

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type TranscriptIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Hit is one search result. Content is stored in the index so hits can be
// shown without a badger round-trip.
type Hit struct {
	MessageID  uuid.UUID
	SessionID  uuid.UUID
	Seq        uint64
	AuthorName string
	Content    string
	At         time.Time
}

func NewTranscriptIndex(writer *bluge.Writer, log *slog.Logger) *TranscriptIndex {
	return &TranscriptIndex{writer: writer, log: log}
}

// Index adds or replaces one message document. Private notes are the
// caller's concern; the index stores whatever it is given.
func (t *TranscriptIndex) Index(messageID, sessionID, tenantID uuid.UUID,
	seq uint64, authorName, content string, at time.Time) error {
	doc := bluge.NewDocument(messageID.String()).
		AddField(bluge.NewKeywordField("session_id", sessionID.String()).StoreValue()).
		AddField(bluge.NewKeywordField("tenant_id", tenantID.String())).
		AddField(bluge.NewKeywordField("seq", strconv.FormatUint(seq, 10)).StoreValue()).
		AddField(bluge.NewTextField("author", authorName).StoreValue()).
		AddField(bluge.NewTextField("content", content).StoreValue()).
		AddField(bluge.NewKeywordField("at", at.UTC().Format(time.RFC3339Nano)).StoreValue())

	return t.writer.Update(doc.ID(), doc)
}

// Search runs a match query over message content, scoped to one tenant and
// optionally to one session.
func (t *TranscriptIndex) Search(ctx context.Context, tenantID uuid.UUID,
	sessionID *uuid.UUID, text string, limit int) ([]Hit, error) {
	reader, err := t.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			t.log.Warn("index reader close failed", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(text).SetField("content")).
		AddMust(bluge.NewTermQuery(tenantID.String()).SetField("tenant_id"))
	if sessionID != nil {
		query.AddMust(bluge.NewTermQuery(sessionID.String()).SetField("session_id"))
	}

	request := bluge.NewTopNSearch(limit, query).SortBy([]string{"-_score"})
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	match, err := iterator.Next()
	for err == nil && match != nil {
		var hit Hit
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID, _ = uuid.Parse(string(value))
			case "session_id":
				hit.SessionID, _ = uuid.Parse(string(value))
			case "seq":
				hit.Seq, _ = strconv.ParseUint(string(value), 10, 64)
			case "author":
				hit.AuthorName = string(value)
			case "content":
				hit.Content = string(value)
			case "at":
				if at, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					hit.At = at
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}

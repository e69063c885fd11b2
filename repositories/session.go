// Package repositories persists the core's records in BadgerDB. Values are
// CBOR-encoded; keys embed zero-padded ordering components so lexicographic
// key order equals domain order and range scans need no sorting.
package repositories

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/errors"
)

type SessionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

var _ contract.SessionRepository = SessionRepository{}

func NewSessionRepository(db *badger.DB, log *slog.Logger) SessionRepository {
	return SessionRepository{db: db, log: log}
}

func sessionKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("sess:%s", id))
}

func (r SessionRepository) Save(s domain.Session) error {
	bytes, err := cbor.Marshal(s)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(s.ID), bytes)
	})
}

func (r SessionRepository) Get(id uuid.UUID) (domain.Session, error) {
	var sess domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("session %s: %w", id, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return cbor.Unmarshal(v, &sess)
		})
	})
	return sess, err
}

// List scans every session of the tenant and applies the filter. Sessions
// are tenant-scoped on read because the key is id-based: the id is the only
// handle the rest of the core uses.
func (r SessionRepository) List(tenantID uuid.UUID, filter contract.SessionFilter) ([]domain.Session, error) {
	var out []domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("sess:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if filter.Limit > 0 && len(out) == filter.Limit {
				break
			}
			var sess domain.Session
			err := it.Item().Value(func(v []byte) error {
				return cbor.Unmarshal(v, &sess)
			})
			if err != nil {
				return err
			}
			if sess.TenantID != tenantID {
				continue
			}
			if filter.Status != "" && sess.Status != filter.Status {
				continue
			}
			if filter.AssignedAgentID != nil &&
				(sess.AssignedAgentID == nil || *sess.AssignedAgentID != *filter.AssignedAgentID) {
				continue
			}
			if filter.WidgetID != nil && sess.WidgetID != *filter.WidgetID {
				continue
			}
			out = append(out, sess)
		}
		return nil
	})
	return out, err
}

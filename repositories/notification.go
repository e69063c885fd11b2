package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/errors"
)

type NotificationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

var _ contract.NotificationRepository = NotificationRepository{}

func NewNotificationRepository(db *badger.DB, log *slog.Logger) NotificationRepository {
	return NotificationRepository{db: db, log: log}
}

// notificationKey orders an agent's feed by creation time:
// "notif:{tenant}:{agent}:{unixnano_padded}:{uuid}". A secondary index
// "idx:notif:{uuid}" points at the primary key so read-acknowledgement can
// find a record by id alone.
func notificationKey(n domain.Notification) []byte {
	return []byte(fmt.Sprintf("notif:%s:%s:%019d:%s",
		n.TenantID, n.AgentID, n.CreatedAt.UnixNano(), n.ID))
}

func notificationIndexKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("idx:notif:%s", id))
}

func (r NotificationRepository) Save(n domain.Notification) error {
	bytes, err := cbor.Marshal(n)
	if err != nil {
		return err
	}
	key := notificationKey(n)
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(notificationIndexKey(n.ID), key)
	})
}

func (r NotificationRepository) Get(id uuid.UUID) (domain.Notification, error) {
	var notif domain.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		idx, err := txn.Get(notificationIndexKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("notification %s: %w", id, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var key []byte
		if err := idx.Value(func(v []byte) error {
			key = append([]byte{}, v...)
			return nil
		}); err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("notification %s: %w", id, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return cbor.Unmarshal(v, &notif)
		})
	})
	return notif, err
}

// ListByAgent walks the agent's feed newest-first. Expired records are
// hidden even before the sweep physically removes them.
func (r NotificationRepository) ListByAgent(tenantID, agentID uuid.UUID, filter contract.NotificationFilter) ([]domain.Notification, error) {
	now := time.Now().UTC()
	var out []domain.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("notif:%s:%s:", tenantID, agentID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if filter.Limit > 0 && len(out) == filter.Limit {
				break
			}
			var notif domain.Notification
			err := it.Item().Value(func(v []byte) error {
				return cbor.Unmarshal(v, &notif)
			})
			if err != nil {
				return err
			}
			if notif.Expired(now) {
				continue
			}
			if filter.UnreadOnly && notif.IsRead {
				continue
			}
			if filter.MinPriority != "" && !notif.Priority.AtLeast(filter.MinPriority) {
				continue
			}
			out = append(out, notif)
		}
		return nil
	})
	return out, err
}

// SweepExpired removes every notification past its expiry, index entries
// included. Records without an expiry are never touched.
func (r NotificationRepository) SweepExpired(now time.Time) (int, error) {
	type doomed struct {
		key []byte
		id  uuid.UUID
	}
	var victims []doomed

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("notif:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var notif domain.Notification
			err := item.Value(func(v []byte) error {
				return cbor.Unmarshal(v, &notif)
			})
			if err != nil {
				return err
			}
			if notif.Expired(now) {
				victims = append(victims, doomed{
					key: item.KeyCopy(nil),
					id:  notif.ID,
				})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, v := range victims {
		err := r.db.Update(func(txn *badger.Txn) error {
			if err := txn.Delete(v.key); err != nil {
				return err
			}
			return txn.Delete(notificationIndexKey(v.id))
		})
		if err != nil {
			return 0, err
		}
	}
	if len(victims) > 0 {
		r.log.Debug("expired notifications swept", "count", len(victims))
	}
	return len(victims), nil
}

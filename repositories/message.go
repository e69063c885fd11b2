package repositories

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
)

type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	pageSize *int
}

var _ contract.MessageRepository = MessageRepository{}

func NewMessageRepository(db *badger.DB, log *slog.Logger, pageSize *int) MessageRepository {
	return MessageRepository{db: db, log: log, pageSize: pageSize}
}

// messageKey is "msg:{session}:{seq_padded}:{uuid}". The 19-digit zero
// padding makes lexicographic order equal sequence order; the uuid suffix
// keeps keys unique and lets a read-state rewrite target the same key.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.SessionID, m.Seq, m.ID))
}

func sessionPrefix(sessionID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", sessionID))
}

// Store writes the message under its ordering key. Storing an existing
// message (same session, seq, id) overwrites it; the message store uses
// this for read-flag updates, the only legal mutation.
func (r MessageRepository) Store(m domain.Message) error {
	bytes, err := cbor.Marshal(m)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(m), bytes)
	})
}

// ListBySession returns the transcript in sequence order. Private notes are
// skipped unless includePrivate is set.
func (r MessageRepository) ListBySession(sessionID uuid.UUID, includePrivate bool) ([]domain.Message, error) {
	var out []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := sessionPrefix(sessionID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var msg domain.Message
			err := it.Item().Value(func(v []byte) error {
				return cbor.Unmarshal(v, &msg)
			})
			if err != nil {
				return err
			}
			if msg.IsPrivate && !includePrivate {
				continue
			}
			out = append(out, msg)
		}
		return nil
	})
	return out, err
}

// Page walks the transcript newest-first. The cursor is the key suffix of
// the last returned message; passing it back resumes the scan just past it.
func (r MessageRepository) Page(sessionID uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	var out []domain.Message
	var lastKey string
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := sessionPrefix(sessionID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the highest possible sequence, then walk back.
			seekKey = append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		default:
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.pageSize != nil && len(out) == *r.pageSize {
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			var msg domain.Message
			err := item.Value(func(v []byte) error {
				return cbor.Unmarshal(v, &msg)
			})
			if err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, &lastKey, nil
}

// NextSeq returns one past the highest stored sequence for the session, or 1
// when the transcript is empty. Used to recover the in-memory counter.
func (r MessageRepository) NextSeq(sessionID uuid.UUID) (uint64, error) {
	next := uint64(1)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := sessionPrefix(sessionID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		it.Seek(seekKey)
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		suffix := string(it.Item().Key()[len(prefix):])
		seqPart, _, ok := strings.Cut(suffix, ":")
		if !ok {
			return fmt.Errorf("malformed message key %q", string(it.Item().Key()))
		}
		seq, err := strconv.ParseUint(seqPart, 10, 64)
		if err != nil {
			return fmt.Errorf("malformed sequence in key %q: %w", string(it.Item().Key()), err)
		}
		next = seq + 1
		return nil
	})
	return next, err
}

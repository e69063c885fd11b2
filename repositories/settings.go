package repositories

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
)

type SettingsRepository struct {
	db  *badger.DB
	log *slog.Logger
}

var _ contract.SettingsRepository = SettingsRepository{}

func NewSettingsRepository(db *badger.DB, log *slog.Logger) SettingsRepository {
	return SettingsRepository{db: db, log: log}
}

func settingsKey(agentID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("nset:%s", agentID))
}

func (r SettingsRepository) SaveSettings(s domain.NotificationSettings) error {
	bytes, err := cbor.Marshal(s)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(settingsKey(s.AgentID), bytes)
	})
}

// GetSettings falls back to the defaults (everything enabled) for agents
// that never saved preferences.
func (r SettingsRepository) GetSettings(agentID uuid.UUID) (domain.NotificationSettings, error) {
	settings := domain.DefaultNotificationSettings(agentID)
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(settingsKey(agentID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return cbor.Unmarshal(v, &settings)
		})
	})
	return settings, err
}

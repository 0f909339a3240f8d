package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type SettingsStore struct {
	db *sqlx.DB
}

func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) GetInt(ctx context.Context, key string) (int, bool, error) {
	query := s.db.Rebind(`SELECT value FROM settings WHERE key = ?`)

	var value int
	err := sqlx.GetContext(ctx, executor(ctx, s.db), &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (s *SettingsStore) PutInt(ctx context.Context, key string, value int) error {
	query := s.db.Rebind(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`)

	_, err := executor(ctx, s.db).ExecContext(ctx, query, key, value, time.Now().UTC())
	return err
}

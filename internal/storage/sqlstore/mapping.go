package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"media_syndicator/internal/domain"
)

type MappingStore struct {
	db *sqlx.DB
}

func NewMappingStore(db *sqlx.DB) *MappingStore {
	return &MappingStore{db: db}
}

func (s *MappingStore) Upsert(ctx context.Context, m domain.Mapping) error {
	query := s.db.Rebind(`
		INSERT INTO source_mappings (source_id, destination_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			destination_id = EXCLUDED.destination_id,
			updated_at = EXCLUDED.updated_at`)

	_, err := executor(ctx, s.db).ExecContext(ctx, query, m.SourceID, m.DestinationID, time.Now().UTC())
	return err
}

func (s *MappingStore) Delete(ctx context.Context, sourceID string) (bool, error) {
	query := s.db.Rebind(`DELETE FROM source_mappings WHERE source_id = ?`)

	res, err := executor(ctx, s.db).ExecContext(ctx, query, sourceID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MappingStore) List(ctx context.Context) ([]domain.Mapping, error) {
	query := `SELECT source_id, destination_id FROM source_mappings ORDER BY source_id`

	var mappings []domain.Mapping
	err := sqlx.SelectContext(ctx, executor(ctx, s.db), &mappings, query)
	return mappings, err
}

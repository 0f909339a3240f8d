package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Ledger records delivered item ids. Rows are never deleted.
type Ledger struct {
	db *sqlx.DB
}

func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Delivered(ctx context.Context, itemIDs []string) (map[string]struct{}, error) {
	result := make(map[string]struct{})
	if len(itemIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT item_id FROM delivered_items WHERE item_id IN (?)`, itemIDs)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := sqlx.SelectContext(ctx, executor(ctx, l.db), &ids, l.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	for _, id := range ids {
		result[id] = struct{}{}
	}
	return result, nil
}

func (l *Ledger) MarkDelivered(ctx context.Context, itemID string) error {
	query := l.db.Rebind(`
		INSERT INTO delivered_items (item_id, delivered_at)
		VALUES (?, ?)
		ON CONFLICT (item_id) DO NOTHING`)

	_, err := executor(ctx, l.db).ExecContext(ctx, query, itemID, time.Now().UTC())
	return err
}

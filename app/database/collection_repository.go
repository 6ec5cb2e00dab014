package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Collections registers collection configurations in the store so their
// state is inspectable next to the records they hold.
type Collections struct {
	db *DB
}

func NewCollections(db *DB) *Collections {
	return &Collections{db: db}
}

var _ CollectionRepository = (*Collections)(nil)

func (r *Collections) UpsertCollection(name string, maxItems, sourceCount int, enabled bool) error {
	_, err := r.db.Exec(`
		INSERT INTO collections (name, max_items, source_count, enabled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			max_items = excluded.max_items,
			source_count = excluded.source_count,
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP
	`, name, maxItems, sourceCount, enabled)
	if err != nil {
		return fmt.Errorf("failed to upsert collection: %w", err)
	}
	return nil
}

func (r *Collections) UpdateLastCycle(name string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE collections
		SET last_cycle_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, at.UTC(), name)
	if err != nil {
		return fmt.Errorf("failed to update last cycle time: %w", err)
	}
	return nil
}

func (r *Collections) GetCollection(name string) (*Collection, error) {
	var c Collection
	err := r.db.QueryRow(`
		SELECT name, max_items, source_count, enabled, last_cycle_at, created_at, updated_at
		FROM collections
		WHERE name = ?
	`, name).Scan(&c.Name, &c.MaxItems, &c.SourceCount, &c.Enabled, &c.LastCycleAt, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return &c, nil
}

func (r *Collections) GetCollections() ([]Collection, error) {
	rows, err := r.db.Query(`
		SELECT name, max_items, source_count, enabled, last_cycle_at, created_at, updated_at
		FROM collections
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get collections: %w", err)
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.Name, &c.MaxItems, &c.SourceCount, &c.Enabled, &c.LastCycleAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		collections = append(collections, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection rows: %w", err)
	}

	return collections, nil
}

func (r *Collections) GetCollectionCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM collections`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection count: %w", err)
	}
	return count, nil
}

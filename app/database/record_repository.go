package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pattayaone/tidal/app/content"
)

const recordColumns = `id, collection, dedup_key, title, summary, body, link,
	source_name, source_type, platform, author, category, trust_tier,
	moderation_status, media_url, media_alt, mention, filter_reason,
	is_breaking, is_featured, published_at, created_at`

// Records handles database operations for canonical records.
type Records struct {
	db *DB
}

func NewRecords(db *DB) *Records {
	return &Records{db: db}
}

var _ RecordRepository = (*Records)(nil)

func (r *Records) FindByDedupKey(collection, dedupKey string) (*content.Record, error) {
	row := r.db.QueryRow(`
		SELECT `+recordColumns+`
		FROM records
		WHERE collection = ? AND dedup_key = ?
		LIMIT 1
	`, collection, dedupKey)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find record by dedup key: %w", err)
	}

	return record, nil
}

// Insert persists a record, assigning its ID and CreatedAt. The unique
// (collection, dedup_key) constraint backs the dedup gate against the
// narrow check-then-insert race.
func (r *Records) Insert(record *content.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	var mediaURL, mediaAlt string
	if record.Media != nil {
		mediaURL = record.Media.URL
		mediaAlt = record.Media.Alt
	}

	_, err := r.db.Exec(`
		INSERT INTO records (
			id, collection, dedup_key, title, summary, body, link,
			source_name, source_type, platform, author, category, trust_tier,
			moderation_status, media_url, media_alt, mention, filter_reason,
			is_breaking, is_featured, published_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.Collection, record.DedupKey, record.Title, record.Summary,
		record.Body, record.Link, record.SourceName, record.SourceType, record.Platform,
		record.Author, record.Category, string(record.TrustTier), string(record.ModerationStatus),
		mediaURL, mediaAlt, record.Mention, record.FilterReason,
		record.IsBreaking, record.IsFeatured, record.PublishedAt.UTC(), record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

func (r *Records) CountApproved(collection string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM records
		WHERE collection = ? AND moderation_status = ?
	`, collection, string(content.StatusApproved)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count approved records: %w", err)
	}
	return count, nil
}

// FindOldestApproved returns up to limit approved records ordered by
// ingestion time ascending, i.e. the rolling window's eviction candidates.
func (r *Records) FindOldestApproved(collection string, limit int) ([]content.Record, error) {
	rows, err := r.db.Query(`
		SELECT `+recordColumns+`
		FROM records
		WHERE collection = ? AND moderation_status = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, collection, string(content.StatusApproved), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find oldest approved records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *Records) Delete(collection, id string) error {
	_, err := r.db.Exec(`
		DELETE FROM records WHERE collection = ? AND id = ?
	`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// FindModeratedBefore returns records in any of the given moderation
// statuses created before cutoff. Used by the purge policy, which is
// independent of the rolling window.
func (r *Records) FindModeratedBefore(collection string, statuses []content.ModerationStatus, cutoff time.Time) ([]content.Record, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := []interface{}{collection}
	for i, status := range statuses {
		placeholders[i] = "?"
		args = append(args, string(status))
	}
	args = append(args, cutoff.UTC())

	rows, err := r.db.Query(`
		SELECT `+recordColumns+`
		FROM records
		WHERE collection = ?
		  AND moderation_status IN (`+strings.Join(placeholders, ", ")+`)
		  AND created_at < ?
		ORDER BY created_at ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find moderated records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// GetRecords returns records for a collection, newest first. An empty
// status returns all records regardless of moderation state.
func (r *Records) GetRecords(collection string, status content.ModerationStatus, limit int) ([]content.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM records
		WHERE collection = ?`
	args := []interface{}{collection}

	if status != "" {
		query += ` AND moderation_status = ?`
		args = append(args, string(status))
	}

	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *Records) GetStats(collection string) (RecordStats, error) {
	var stats RecordStats
	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN moderation_status = 'approved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN moderation_status = 'pending_review' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN moderation_status = 'quarantined' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN moderation_status = 'rejected' THEN 1 ELSE 0 END), 0)
		FROM records
		WHERE collection = ?
	`, collection).Scan(&stats.Total, &stats.Approved, &stats.Pending, &stats.Quarantined, &stats.Rejected)

	if err != nil {
		return RecordStats{}, fmt.Errorf("failed to get record stats: %w", err)
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*content.Record, error) {
	var record content.Record
	var trustTier, moderationStatus, mediaURL, mediaAlt string

	err := row.Scan(
		&record.ID, &record.Collection, &record.DedupKey, &record.Title,
		&record.Summary, &record.Body, &record.Link, &record.SourceName,
		&record.SourceType, &record.Platform, &record.Author, &record.Category,
		&trustTier, &moderationStatus, &mediaURL, &mediaAlt,
		&record.Mention, &record.FilterReason, &record.IsBreaking,
		&record.IsFeatured, &record.PublishedAt, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.TrustTier = content.TrustTier(trustTier)
	record.ModerationStatus = content.ModerationStatus(moderationStatus)
	if mediaURL != "" {
		record.Media = &content.Media{URL: mediaURL, Alt: mediaAlt}
	}

	return &record, nil
}

func collectRecords(rows *sql.Rows) ([]content.Record, error) {
	var records []content.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}

	return records, nil
}

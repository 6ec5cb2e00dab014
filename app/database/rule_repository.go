package database

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pattayaone/tidal/app/content"
)

// Rules handles database operations for operator-managed ingestion rules.
type Rules struct {
	db *DB
}

func NewRules(db *DB) *Rules {
	return &Rules{db: db}
}

var _ RuleRepository = (*Rules)(nil)

func (r *Rules) GetBannedEntities() ([]content.BannedEntity, error) {
	rows, err := r.db.Query(`SELECT platform, handle FROM banned_entities ORDER BY platform, handle`)
	if err != nil {
		return nil, fmt.Errorf("failed to get banned entities: %w", err)
	}
	defer rows.Close()

	var entities []content.BannedEntity
	for rows.Next() {
		var e content.BannedEntity
		if err := rows.Scan(&e.Platform, &e.Handle); err != nil {
			return nil, fmt.Errorf("failed to scan banned entity: %w", err)
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banned entities: %w", err)
	}

	return entities, nil
}

func (r *Rules) GetTrustedEntities() ([]content.TrustedEntity, error) {
	rows, err := r.db.Query(`SELECT platform, handle, trust_level FROM trusted_entities ORDER BY platform, handle`)
	if err != nil {
		return nil, fmt.Errorf("failed to get trusted entities: %w", err)
	}
	defer rows.Close()

	var entities []content.TrustedEntity
	for rows.Next() {
		var e content.TrustedEntity
		if err := rows.Scan(&e.Platform, &e.Handle, &e.TrustLevel); err != nil {
			return nil, fmt.Errorf("failed to scan trusted entity: %w", err)
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trusted entities: %w", err)
	}

	return entities, nil
}

func (r *Rules) GetSafetyKeywords() ([]content.SafetyKeyword, error) {
	rows, err := r.db.Query(`SELECT term, case_sensitive, severity FROM safety_keywords ORDER BY term`)
	if err != nil {
		return nil, fmt.Errorf("failed to get safety keywords: %w", err)
	}
	defer rows.Close()

	var keywords []content.SafetyKeyword
	for rows.Next() {
		var kw content.SafetyKeyword
		if err := rows.Scan(&kw.Term, &kw.CaseSensitive, &kw.Severity); err != nil {
			return nil, fmt.Errorf("failed to scan safety keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating safety keywords: %w", err)
	}

	return keywords, nil
}

func (r *Rules) AddBannedEntity(platform, handle string) error {
	_, err := r.db.Exec(`
		INSERT INTO banned_entities (id, platform, handle)
		VALUES (?, ?, ?)
		ON CONFLICT (platform, handle) DO NOTHING
	`, uuid.NewString(), platform, handle)
	if err != nil {
		return fmt.Errorf("failed to add banned entity: %w", err)
	}
	return nil
}

func (r *Rules) AddTrustedEntity(platform, handle string, trustLevel int) error {
	_, err := r.db.Exec(`
		INSERT INTO trusted_entities (id, platform, handle, trust_level)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (platform, handle) DO UPDATE SET trust_level = excluded.trust_level
	`, uuid.NewString(), platform, handle, trustLevel)
	if err != nil {
		return fmt.Errorf("failed to add trusted entity: %w", err)
	}
	return nil
}

func (r *Rules) AddSafetyKeyword(term string, caseSensitive bool, severity string) error {
	_, err := r.db.Exec(`
		INSERT INTO safety_keywords (id, term, case_sensitive, severity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (term) DO UPDATE SET case_sensitive = excluded.case_sensitive, severity = excluded.severity
	`, uuid.NewString(), term, caseSensitive, severity)
	if err != nil {
		return fmt.Errorf("failed to add safety keyword: %w", err)
	}
	return nil
}

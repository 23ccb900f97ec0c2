package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "editorial-cache/internal/common/errors"
	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/common/validation"
	"editorial-cache/internal/storage"
)

const (
	manuscriptColumns = `manuscript_id, journal, title, status, authors, submission_date, last_updated,
	extraction_date, data_hash, referee_count, has_version_history, full_data`

	// how long a cached manuscript is trusted before ShouldUpdateManuscript asks for a re-extraction
	activeFreshness    = 24 * time.Hour
	completedFreshness = 30 * 24 * time.Hour
)

// GetManuscript returns the manuscript stored under (id, journal).
func (a *Adapter) GetManuscript(ctx context.Context, id, journal string) (*storage.Manuscript, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getManuscript(ctx, strings.TrimSpace(id), strings.TrimSpace(journal))
}

func (a *Adapter) getManuscript(ctx context.Context, id, journal string) (*storage.Manuscript, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT `+manuscriptColumns+` FROM manuscripts WHERE manuscript_id = ? AND journal = ?`, id, journal)
	m, err := scanManuscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manuscript %s/%s: %w", journal, id, err)
	}
	return m, nil
}

// UpdateManuscript replaces the stored row for (record.ID, journal) with a fresh
// one stamped with the current extraction date. The result's Changed flag is
// false when the fingerprint matches the stored one, which is how callers
// detect a no-op re-extraction.
//
// When the record carries no FullData, the record itself is stored as the
// payload so the referee list comes back from GetManuscript.
func (a *Adapter) UpdateManuscript(ctx context.Context, record storage.Manuscript, journal string) (storage.UpsertResult, error) {
	record.ID = strings.TrimSpace(record.ID)
	if journal = strings.TrimSpace(journal); journal != "" {
		record.Journal = journal
	}
	if err := validation.Struct(record); err != nil {
		return storage.UpsertResult{}, err
	}

	if record.Authors == nil {
		record.Authors = []string{}
	}
	if len(record.Referees) > 0 {
		record.RefereeCount = len(record.Referees)
	}
	record.DataHash = ManuscriptFingerprint(record)
	if len(record.FullData) == 0 {
		payload, err := json.Marshal(record)
		if err != nil {
			return storage.UpsertResult{}, fmt.Errorf("failed to encode manuscript payload: %w", err)
		}
		record.FullData = payload
	}

	authors, err := json.Marshal(record.Authors)
	if err != nil {
		return storage.UpsertResult{}, fmt.Errorf("failed to encode authors: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var previousHash string
	err = a.db.QueryRowContext(ctx, `SELECT data_hash FROM manuscripts WHERE manuscript_id = ? AND journal = ?`,
		record.ID, record.Journal).Scan(&previousHash)

	var result storage.UpsertResult
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result = storage.UpsertResult{Created: true, Changed: true}
	case err != nil:
		return storage.UpsertResult{}, fmt.Errorf("failed to read manuscript hash: %w", err)
	default:
		result.Changed = previousHash != record.DataHash
	}

	record.ExtractionDate = a.now().UTC()

	_, err = a.db.ExecContext(ctx, `INSERT OR REPLACE INTO manuscripts (`+manuscriptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Journal, record.Title, record.Status, string(authors),
		record.SubmissionDate, record.LastUpdated, formatTime(record.ExtractionDate),
		record.DataHash, record.RefereeCount, record.HasVersionHistory, nullableJSON(record.FullData),
	)
	if err != nil {
		return storage.UpsertResult{}, apperrors.StorageError("failed to upsert manuscript", err).
			WithContext("manuscript_id", record.ID).
			WithContext("journal", record.Journal)
	}

	a.logger.Debug("Manuscript stored",
		logging.String("manuscript_id", record.ID),
		logging.String("journal", record.Journal),
		logging.Bool("changed", result.Changed),
	)
	return result, nil
}

// ShouldUpdateManuscript reports whether a caller should re-extract a
// manuscript. It never writes. The answer is true when nothing is cached, when
// a non-empty status or lastUpdated differs from the cached value, or when the
// cached row is older than 30 days for completed manuscripts or 1 day otherwise.
func (a *Adapter) ShouldUpdateManuscript(ctx context.Context, id, journal, status, lastUpdated string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var cachedStatus, cachedLastUpdated, extraction string
	err := a.db.QueryRowContext(ctx,
		`SELECT status, last_updated, extraction_date FROM manuscripts WHERE manuscript_id = ? AND journal = ?`,
		strings.TrimSpace(id), strings.TrimSpace(journal),
	).Scan(&cachedStatus, &cachedLastUpdated, &extraction)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read manuscript freshness: %w", err)
	}

	if status != "" && status != cachedStatus {
		return true, nil
	}
	if lastUpdated != "" && lastUpdated != cachedLastUpdated {
		return true, nil
	}

	extractedAt, err := parseTime(extraction)
	if err != nil {
		return true, nil
	}

	maxAge := activeFreshness
	if strings.Contains(strings.ToLower(cachedStatus), "complete") {
		maxAge = completedFreshness
	}
	return a.now().Sub(extractedAt) > maxAge, nil
}

// ListManuscripts returns manuscripts ordered by journal and id.
func (a *Adapter) ListManuscripts(ctx context.Context, filter storage.ManuscriptFilter) ([]*storage.Manuscript, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listManuscripts(ctx, filter)
}

func (a *Adapter) listManuscripts(ctx context.Context, filter storage.ManuscriptFilter) ([]*storage.Manuscript, error) {
	query := `SELECT ` + manuscriptColumns + ` FROM manuscripts`
	var args []interface{}
	if filter.Journal != "" {
		query += ` WHERE journal = ?`
		args = append(args, filter.Journal)
	}
	query += ` ORDER BY journal, manuscript_id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list manuscripts: %w", err)
	}
	defer rows.Close()

	var manuscripts []*storage.Manuscript
	for rows.Next() {
		m, err := scanManuscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manuscript: %w", err)
		}
		manuscripts = append(manuscripts, m)
	}
	return manuscripts, rows.Err()
}

// Journals returns the distinct journal codes that have cached manuscripts.
func (a *Adapter) Journals(ctx context.Context) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.db.QueryContext(ctx, `SELECT DISTINCT journal FROM manuscripts ORDER BY journal`)
	if err != nil {
		return nil, fmt.Errorf("failed to list journals: %w", err)
	}
	defer rows.Close()

	var journals []string
	for rows.Next() {
		var j string
		if err := rows.Scan(&j); err != nil {
			return nil, err
		}
		journals = append(journals, j)
	}
	return journals, rows.Err()
}

func scanManuscript(row rowScanner) (*storage.Manuscript, error) {
	var (
		m          storage.Manuscript
		authors    string
		extraction string
		fullData   sql.NullString
	)
	err := row.Scan(&m.ID, &m.Journal, &m.Title, &m.Status, &authors, &m.SubmissionDate, &m.LastUpdated,
		&extraction, &m.DataHash, &m.RefereeCount, &m.HasVersionHistory, &fullData)
	if err != nil {
		return nil, err
	}

	if m.ExtractionDate, err = parseTime(extraction); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(authors), &m.Authors); err != nil {
		return nil, fmt.Errorf("invalid authors for %s/%s: %w", m.Journal, m.ID, err)
	}
	if fullData.Valid && fullData.String != "" {
		m.FullData = json.RawMessage(fullData.String)
		m.Referees = storedReferees(m.FullData)
	}
	return &m, nil
}

// storedReferees recovers the referee list when the payload is the stored
// record itself. Caller-supplied payloads rarely carry one and yield nil.
func storedReferees(payload json.RawMessage) []storage.ManuscriptReferee {
	var stored struct {
		Referees []storage.ManuscriptReferee `json:"referees"`
	}
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil
	}
	return stored.Referees
}

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
	"editorial-cache/internal/common/utils"
	"editorial-cache/internal/common/validation"
	"editorial-cache/internal/storage"
)

const refereeColumns = `email, name, institution, department, country, orcid,
	last_seen, last_updated, journals_seen, affiliations_history, data_hash`

// GetReferee returns the referee with the given email (case-insensitive).
func (a *Adapter) GetReferee(ctx context.Context, email string) (*storage.Referee, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getReferee(ctx, utils.NormalizeEmail(email))
}

func (a *Adapter) getReferee(ctx context.Context, email string) (*storage.Referee, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+refereeColumns+` FROM referees WHERE email = ?`, email)
	ref, err := scanReferee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referee %s: %w", email, err)
	}
	return ref, nil
}

// UpdateReferee merges record into the stored referee:
//   - a non-empty incoming field that differs from the stored one replaces it;
//   - when the institution/department pair changes, the previous pair is pushed
//     onto the affiliation history, tagged with the journal it was last seen under;
//   - journal is added to journals_seen if missing;
//   - last_seen is always bumped, last_updated only when something changed.
func (a *Adapter) UpdateReferee(ctx context.Context, record storage.Referee, journal string) (storage.UpsertResult, error) {
	email := utils.NormalizeEmail(record.Email)
	if err := validation.Var(email, "required,email"); err != nil {
		return storage.UpsertResult{}, apperrors.ValidationError("referee email is missing or invalid").
			WithContext("email", record.Email)
	}
	journal = strings.TrimSpace(journal)

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now().UTC()
	existing, err := a.getReferee(ctx, email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return storage.UpsertResult{}, err
	}

	var (
		ref    *storage.Referee
		result storage.UpsertResult
	)

	if existing == nil {
		ref = &storage.Referee{
			Email:               email,
			Name:                strings.TrimSpace(record.Name),
			Institution:         strings.TrimSpace(record.Institution),
			Department:          strings.TrimSpace(record.Department),
			Country:             strings.TrimSpace(record.Country),
			ORCID:               strings.TrimSpace(record.ORCID),
			LastSeen:            now,
			LastUpdated:         now,
			JournalsSeen:        []string{},
			AffiliationsHistory: []storage.Affiliation{},
		}
		if journal != "" {
			ref.JournalsSeen = append(ref.JournalsSeen, journal)
		}
		result = storage.UpsertResult{Created: true, Changed: true}
	} else {
		ref = existing
		result.Changed = mergeReferee(ref, record, journal, now)
		ref.LastSeen = now
		if result.Changed {
			ref.LastUpdated = now
		}
	}

	ref.DataHash = refereeFingerprint(ref)
	if err := a.putReferee(ctx, ref); err != nil {
		return storage.UpsertResult{}, err
	}

	if result.Changed {
		a.logger.Debug("Referee updated",
			logging.String("email", email),
			logging.String("journal", journal),
			logging.Bool("created", result.Created),
		)
	}
	return result, nil
}

func mergeReferee(ref *storage.Referee, in storage.Referee, journal string, now time.Time) bool {
	changed := false

	setIfChanged := func(dst *string, incoming string) {
		incoming = strings.TrimSpace(incoming)
		if incoming != "" && incoming != *dst {
			*dst = incoming
			changed = true
		}
	}

	setIfChanged(&ref.Name, in.Name)
	setIfChanged(&ref.Country, in.Country)
	setIfChanged(&ref.ORCID, in.ORCID)

	institution := strings.TrimSpace(in.Institution)
	department := strings.TrimSpace(in.Department)
	institutionMoved := institution != "" && institution != ref.Institution
	departmentMoved := department != "" && department != ref.Department

	if institutionMoved || departmentMoved {
		if ref.Institution != "" || ref.Department != "" {
			ref.AffiliationsHistory = append(ref.AffiliationsHistory, storage.Affiliation{
				Institution: ref.Institution,
				Department:  ref.Department,
				Timestamp:   now,
				Journal:     lastJournal(ref.JournalsSeen),
			})
		}
		if institutionMoved {
			// the old department belonged to the old institution
			ref.Institution = institution
			ref.Department = department
		} else {
			ref.Department = department
		}
		changed = true
	}

	if journal != "" && !containsString(ref.JournalsSeen, journal) {
		ref.JournalsSeen = append(ref.JournalsSeen, journal)
		changed = true
	}

	return changed
}

func (a *Adapter) putReferee(ctx context.Context, ref *storage.Referee) error {
	journals, err := json.Marshal(ref.JournalsSeen)
	if err != nil {
		return fmt.Errorf("failed to encode journals_seen: %w", err)
	}
	history, err := json.Marshal(ref.AffiliationsHistory)
	if err != nil {
		return fmt.Errorf("failed to encode affiliations_history: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `INSERT OR REPLACE INTO referees (`+refereeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.Email, ref.Name, ref.Institution, ref.Department, ref.Country, ref.ORCID,
		formatTime(ref.LastSeen), formatTime(ref.LastUpdated),
		string(journals), string(history), ref.DataHash,
	)
	if err != nil {
		return apperrors.StorageError("failed to upsert referee", err).WithContext("email", ref.Email)
	}
	return nil
}

// ListReferees returns every referee, or only those seen in journal, ordered by email.
func (a *Adapter) ListReferees(ctx context.Context, journal string) ([]*storage.Referee, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.db.QueryContext(ctx, `SELECT `+refereeColumns+` FROM referees ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list referees: %w", err)
	}
	defer rows.Close()

	var referees []*storage.Referee
	for rows.Next() {
		ref, err := scanReferee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referee: %w", err)
		}
		if journal != "" && !containsString(ref.JournalsSeen, journal) {
			continue
		}
		referees = append(referees, ref)
	}
	return referees, rows.Err()
}

func scanReferee(row rowScanner) (*storage.Referee, error) {
	var (
		ref                   storage.Referee
		lastSeen, lastUpdated string
		journals, history     string
	)
	err := row.Scan(&ref.Email, &ref.Name, &ref.Institution, &ref.Department, &ref.Country, &ref.ORCID,
		&lastSeen, &lastUpdated, &journals, &history, &ref.DataHash)
	if err != nil {
		return nil, err
	}

	if ref.LastSeen, err = parseTime(lastSeen); err != nil {
		return nil, err
	}
	if ref.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(journals), &ref.JournalsSeen); err != nil {
		return nil, fmt.Errorf("invalid journals_seen for %s: %w", ref.Email, err)
	}
	if err := json.Unmarshal([]byte(history), &ref.AffiliationsHistory); err != nil {
		return nil, fmt.Errorf("invalid affiliations_history for %s: %w", ref.Email, err)
	}
	if ref.JournalsSeen == nil {
		ref.JournalsSeen = []string{}
	}
	if ref.AffiliationsHistory == nil {
		ref.AffiliationsHistory = []storage.Affiliation{}
	}
	return &ref, nil
}

func lastJournal(journals []string) string {
	if len(journals) == 0 {
		return ""
	}
	return journals[len(journals)-1]
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

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

// DefaultMetricsValidity applies when SaveRefereeMetrics is called without a window.
const DefaultMetricsValidity = 7 * 24 * time.Hour

// SaveRefereeMetrics stores a metrics blob for email, valid for validFor from now.
func (a *Adapter) SaveRefereeMetrics(ctx context.Context, email string, metrics json.RawMessage, validFor time.Duration) error {
	email = utils.NormalizeEmail(email)
	if err := validation.Var(email, "required,email"); err != nil {
		return apperrors.ValidationError("referee email is missing or invalid").WithContext("email", email)
	}
	if !json.Valid(metrics) {
		return apperrors.ValidationError("metrics must be valid JSON").WithContext("email", email)
	}
	if validFor <= 0 {
		validFor = DefaultMetricsValidity
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	_, err := a.db.ExecContext(ctx, `INSERT OR REPLACE INTO referee_performance_cache
		(referee_email, metrics, calculated_at, valid_until) VALUES (?, ?, ?, ?)`,
		email, string(metrics), formatTime(now), formatTime(now.Add(validFor)),
	)
	if err != nil {
		return apperrors.StorageError("failed to save referee metrics", err).WithContext("email", email)
	}
	return nil
}

// GetRefereeMetrics returns the metrics for email. An expired row is deleted
// and reported as storage.ErrNotFound.
func (a *Adapter) GetRefereeMetrics(ctx context.Context, email string) (*storage.RefereeMetrics, error) {
	email = utils.NormalizeEmail(email)

	a.mu.Lock()
	defer a.mu.Unlock()

	var (
		m                      storage.RefereeMetrics
		metrics                string
		calculated, validUntil string
	)
	err := a.db.QueryRowContext(ctx, `SELECT referee_email, metrics, calculated_at, valid_until
		FROM referee_performance_cache WHERE referee_email = ?`, email,
	).Scan(&m.Email, &metrics, &calculated, &validUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referee metrics: %w", err)
	}

	if m.CalculatedAt, err = parseTime(calculated); err != nil {
		return nil, err
	}
	if m.ValidUntil, err = parseTime(validUntil); err != nil {
		return nil, err
	}

	if !a.now().Before(m.ValidUntil) {
		if _, err := a.db.ExecContext(ctx, `DELETE FROM referee_performance_cache WHERE referee_email = ?`, email); err != nil {
			return nil, fmt.Errorf("failed to delete expired referee metrics: %w", err)
		}
		a.logger.Debug("Expired referee metrics removed", logging.String("email", email))
		return nil, storage.ErrNotFound
	}

	m.Metrics = json.RawMessage(metrics)
	return &m, nil
}

// SaveJournalStatistics inserts or replaces the statistics for one journal period.
func (a *Adapter) SaveJournalStatistics(ctx context.Context, stats storage.JournalStatistics) error {
	if err := validation.Struct(stats); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saveJournalStatistics(ctx, stats)
}

func (a *Adapter) saveJournalStatistics(ctx context.Context, stats storage.JournalStatistics) error {
	_, err := a.db.ExecContext(ctx, `INSERT OR REPLACE INTO journal_statistics
		(journal_id, period_start, period_end, total_submissions, average_review_time, acceptance_rate, desk_rejection_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stats.JournalID, formatTime(stats.PeriodStart), formatTime(stats.PeriodEnd),
		stats.TotalSubmissions, stats.AverageReviewTime, stats.AcceptanceRate, stats.DeskRejectionRate,
	)
	if err != nil {
		return apperrors.StorageError("failed to save journal statistics", err).WithContext("journal", stats.JournalID)
	}
	return nil
}

const statisticsColumns = `journal_id, period_start, period_end, total_submissions,
	average_review_time, acceptance_rate, desk_rejection_rate`

// GetJournalStatistics returns the statistics stored for exactly [start, end].
func (a *Adapter) GetJournalStatistics(ctx context.Context, journal string, start, end time.Time) (*storage.JournalStatistics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	row := a.db.QueryRowContext(ctx, `SELECT `+statisticsColumns+` FROM journal_statistics
		WHERE journal_id = ? AND period_start = ? AND period_end = ?`,
		journal, formatTime(start), formatTime(end))
	stats, err := scanStatistics(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get journal statistics: %w", err)
	}
	return stats, nil
}

// ListJournalStatistics returns every stored period, newest first. An empty
// journal lists all journals.
func (a *Adapter) ListJournalStatistics(ctx context.Context, journal string) ([]*storage.JournalStatistics, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	query := `SELECT ` + statisticsColumns + ` FROM journal_statistics`
	var args []interface{}
	if journal != "" {
		query += ` WHERE journal_id = ?`
		args = append(args, journal)
	}
	query += ` ORDER BY journal_id, period_start DESC`

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal statistics: %w", err)
	}
	defer rows.Close()

	var result []*storage.JournalStatistics
	for rows.Next() {
		stats, err := scanStatistics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal statistics: %w", err)
		}
		result = append(result, stats)
	}
	return result, rows.Err()
}

// ComputeJournalStatistics derives statistics for [start, end] from the cached
// manuscripts of journal and stores them.
//
// A manuscript belongs to the period when its submission date falls inside it;
// when the submission date cannot be parsed the extraction date is used.
// Statuses mentioning "accept" count as accepted, those mentioning "desk" and
// "reject" as desk rejections. Review time is the span between submission and
// last update of manuscripts that reached a decision.
func (a *Adapter) ComputeJournalStatistics(ctx context.Context, journal string, start, end time.Time) (*storage.JournalStatistics, error) {
	stats := storage.JournalStatistics{
		JournalID:   strings.TrimSpace(journal),
		PeriodStart: start.UTC(),
		PeriodEnd:   end.UTC(),
	}
	if err := validation.Struct(stats); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	manuscripts, err := a.listManuscripts(ctx, storage.ManuscriptFilter{Journal: stats.JournalID})
	if err != nil {
		return nil, err
	}

	var (
		accepted, deskRejected, reviewed int
		reviewDays                       float64
	)
	for _, m := range manuscripts {
		submitted, ok := utils.ParseSiteDate(m.SubmissionDate)
		if !ok {
			submitted = m.ExtractionDate
		}
		if submitted.Before(stats.PeriodStart) || submitted.After(stats.PeriodEnd) {
			continue
		}
		stats.TotalSubmissions++

		status := strings.ToLower(m.Status)
		isAccepted := strings.Contains(status, "accept")
		isDeskRejected := strings.Contains(status, "desk") && strings.Contains(status, "reject")
		if isAccepted {
			accepted++
		}
		if isDeskRejected {
			deskRejected++
		}

		if !ok || !(isAccepted || strings.Contains(status, "reject")) {
			continue
		}
		if decided, ok := utils.ParseSiteDate(m.LastUpdated); ok && !decided.Before(submitted) {
			reviewDays += decided.Sub(submitted).Hours() / 24
			reviewed++
		}
	}

	if stats.TotalSubmissions > 0 {
		stats.AcceptanceRate = float64(accepted) / float64(stats.TotalSubmissions)
		stats.DeskRejectionRate = float64(deskRejected) / float64(stats.TotalSubmissions)
	}
	if reviewed > 0 {
		stats.AverageReviewTime = reviewDays / float64(reviewed)
	}

	if err := a.saveJournalStatistics(ctx, stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanStatistics(row rowScanner) (*storage.JournalStatistics, error) {
	var (
		stats      storage.JournalStatistics
		start, end string
	)
	err := row.Scan(&stats.JournalID, &start, &end, &stats.TotalSubmissions,
		&stats.AverageReviewTime, &stats.AcceptanceRate, &stats.DeskRejectionRate)
	if err != nil {
		return nil, err
	}
	if stats.PeriodStart, err = parseTime(start); err != nil {
		return nil, err
	}
	if stats.PeriodEnd, err = parseTime(end); err != nil {
		return nil, err
	}
	return &stats, nil
}

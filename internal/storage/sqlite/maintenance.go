package sqlite

import (
	"context"
	"fmt"

	apperrors "editorial-cache/internal/common/errors"
	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/storage"
)

// Purge deletes manuscripts whose extraction date and extraction runs whose
// start time are older than opts.OlderThan, optionally limited to one journal.
// Referees, institutions and statistics are kept.
func (a *Adapter) Purge(ctx context.Context, opts storage.PurgeOptions) (storage.PurgeResult, error) {
	age := opts.OlderThan
	if age <= 0 {
		age = storage.DefaultPurgeAge
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := formatTime(a.now().Add(-age))

	manuscriptQuery := `DELETE FROM manuscripts WHERE extraction_date < ?`
	runQuery := `DELETE FROM extraction_runs WHERE start_time < ?`
	args := []interface{}{cutoff}
	if opts.Journal != "" {
		manuscriptQuery += ` AND journal = ?`
		runQuery += ` AND journal = ?`
		args = append(args, opts.Journal)
	}

	var result storage.PurgeResult

	res, err := a.db.ExecContext(ctx, manuscriptQuery, args...)
	if err != nil {
		return result, apperrors.StorageError("failed to purge manuscripts", err)
	}
	result.Manuscripts, _ = res.RowsAffected()

	res, err = a.db.ExecContext(ctx, runQuery, args...)
	if err != nil {
		return result, apperrors.StorageError("failed to purge extraction runs", err)
	}
	result.ExtractionRuns, _ = res.RowsAffected()

	a.logger.Info("Purged old cache rows",
		logging.String("cutoff", cutoff),
		logging.String("journal", opts.Journal),
		logging.Int64("manuscripts", result.Manuscripts),
		logging.Int64("extraction_runs", result.ExtractionRuns),
	)
	return result, nil
}

// Counts returns the number of rows in every table.
func (a *Adapter) Counts(ctx context.Context) (storage.Counts, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var counts storage.Counts
	tables := []struct {
		name string
		dst  *int
	}{
		{"referees", &counts.Referees},
		{"manuscripts", &counts.Manuscripts},
		{"institutions", &counts.Institutions},
		{"referee_performance_cache", &counts.RefereeMetrics},
		{"journal_statistics", &counts.JournalStatistics},
		{"extraction_runs", &counts.ExtractionRuns},
	}
	for _, table := range tables {
		if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table.name).Scan(table.dst); err != nil {
			return counts, fmt.Errorf("failed to count %s: %w", table.name, err)
		}
	}
	return counts, nil
}

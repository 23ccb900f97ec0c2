package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "editorial-cache/internal/common/errors"
	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/storage"
)

const runColumns = `run_id, journal, start_time, end_time, manuscripts_extracted, new_manuscripts,
	updated_manuscripts, new_referees, errors, metadata`

// StartExtractionRun records the start of a scraping pass over journal.
func (a *Adapter) StartExtractionRun(ctx context.Context, journal string) (*storage.ExtractionRun, error) {
	journal = strings.TrimSpace(journal)
	if journal == "" {
		return nil, apperrors.ValidationError("journal is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	run := &storage.ExtractionRun{
		RunID:     uuid.New().String(),
		Journal:   journal,
		StartTime: a.now().UTC(),
	}
	_, err := a.db.ExecContext(ctx, `INSERT INTO extraction_runs (run_id, journal, start_time) VALUES (?, ?, ?)`,
		run.RunID, run.Journal, formatTime(run.StartTime))
	if err != nil {
		return nil, apperrors.StorageError("failed to start extraction run", err).WithContext("journal", journal)
	}

	a.logger.Info("Extraction run started",
		logging.String("run_id", run.RunID),
		logging.String("journal", journal),
	)
	return run, nil
}

// FinishExtractionRun stores the counters of run and stamps its end time.
func (a *Adapter) FinishExtractionRun(ctx context.Context, run *storage.ExtractionRun) error {
	if run == nil || run.RunID == "" {
		return apperrors.ValidationError("run id is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	end := a.now().UTC()
	res, err := a.db.ExecContext(ctx, `UPDATE extraction_runs SET end_time = ?, manuscripts_extracted = ?,
		new_manuscripts = ?, updated_manuscripts = ?, new_referees = ?, errors = ?, metadata = ?
		WHERE run_id = ?`,
		formatTime(end), run.ManuscriptsExtracted, run.NewManuscripts, run.UpdatedManuscripts,
		run.NewReferees, run.Errors, nullableJSON(run.Metadata), run.RunID,
	)
	if err != nil {
		return apperrors.StorageError("failed to finish extraction run", err).WithContext("run_id", run.RunID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	run.EndTime = &end

	a.logger.Info("Extraction run finished",
		logging.String("run_id", run.RunID),
		logging.String("journal", run.Journal),
		logging.Int("manuscripts", run.ManuscriptsExtracted),
		logging.Int("errors", run.Errors),
		logging.Duration("duration", end.Sub(run.StartTime)),
	)
	return nil
}

// ListExtractionRuns returns runs newest first, optionally for one journal.
func (a *Adapter) ListExtractionRuns(ctx context.Context, journal string, limit int) ([]*storage.ExtractionRun, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	query := `SELECT ` + runColumns + ` FROM extraction_runs`
	var args []interface{}
	if journal != "" {
		query += ` WHERE journal = ?`
		args = append(args, journal)
	}
	query += ` ORDER BY start_time DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list extraction runs: %w", err)
	}
	defer rows.Close()

	var runs []*storage.ExtractionRun
	for rows.Next() {
		var (
			run      storage.ExtractionRun
			start    string
			end      sql.NullString
			metadata sql.NullString
		)
		if err := rows.Scan(&run.RunID, &run.Journal, &start, &end, &run.ManuscriptsExtracted,
			&run.NewManuscripts, &run.UpdatedManuscripts, &run.NewReferees, &run.Errors, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan extraction run: %w", err)
		}
		if run.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if end.Valid && end.String != "" {
			t, err := parseTime(end.String)
			if err != nil {
				return nil, err
			}
			run.EndTime = &t
		}
		if metadata.Valid && metadata.String != "" {
			run.Metadata = []byte(metadata.String)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Package storage defines the records kept by the editorial cache and the
// relational store that is their system of record.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups with no matching row.
var ErrNotFound = errors.New("record not found")

// DefaultPurgeAge is used by Purge when PurgeOptions.OlderThan is zero.
const DefaultPurgeAge = 90 * 24 * time.Hour

// Store is the relational system of record.
type Store interface {
	Close() error
	Health() error

	// Referees
	GetReferee(ctx context.Context, email string) (*Referee, error)
	UpdateReferee(ctx context.Context, record Referee, journal string) (UpsertResult, error)
	ListReferees(ctx context.Context, journal string) ([]*Referee, error)

	// Manuscripts
	GetManuscript(ctx context.Context, id, journal string) (*Manuscript, error)
	UpdateManuscript(ctx context.Context, record Manuscript, journal string) (UpsertResult, error)
	ShouldUpdateManuscript(ctx context.Context, id, journal, status, lastUpdated string) (bool, error)
	ListManuscripts(ctx context.Context, filter ManuscriptFilter) ([]*Manuscript, error)
	Journals(ctx context.Context) ([]string, error)

	// Institutions
	GetInstitution(ctx context.Context, domain string) (*Institution, error)
	SaveInstitution(ctx context.Context, inst Institution) error
	InstitutionForEmail(ctx context.Context, email string) (*Institution, error)

	// Auxiliary caches
	SaveRefereeMetrics(ctx context.Context, email string, metrics json.RawMessage, validFor time.Duration) error
	GetRefereeMetrics(ctx context.Context, email string) (*RefereeMetrics, error)
	SaveJournalStatistics(ctx context.Context, stats JournalStatistics) error
	GetJournalStatistics(ctx context.Context, journal string, start, end time.Time) (*JournalStatistics, error)
	ListJournalStatistics(ctx context.Context, journal string) ([]*JournalStatistics, error)
	ComputeJournalStatistics(ctx context.Context, journal string, start, end time.Time) (*JournalStatistics, error)

	// Extraction runs
	StartExtractionRun(ctx context.Context, journal string) (*ExtractionRun, error)
	FinishExtractionRun(ctx context.Context, run *ExtractionRun) error
	ListExtractionRuns(ctx context.Context, journal string, limit int) ([]*ExtractionRun, error)

	// Maintenance
	Purge(ctx context.Context, opts PurgeOptions) (PurgeResult, error)
	Counts(ctx context.Context) (Counts, error)
}

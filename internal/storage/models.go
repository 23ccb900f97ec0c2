package storage

import (
	"encoding/json"
	"time"
)

// Affiliation is a previous institution/department of a referee, recorded when
// the referee was seen under a different one.
type Affiliation struct {
	Institution string    `json:"institution"`
	Department  string    `json:"department,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Journal     string    `json:"journal,omitempty"`
}

// Referee is keyed by normalized email. Identity never changes; content is
// merged on every UpdateReferee.
type Referee struct {
	Email               string        `json:"email" validate:"required,email"`
	Name                string        `json:"name,omitempty"`
	Institution         string        `json:"institution,omitempty"`
	Department          string        `json:"department,omitempty"`
	Country             string        `json:"country,omitempty"`
	ORCID               string        `json:"orcid,omitempty"`
	LastSeen            time.Time     `json:"last_seen"`
	LastUpdated         time.Time     `json:"last_updated"`
	JournalsSeen        []string      `json:"journals_seen"`
	AffiliationsHistory []Affiliation `json:"affiliations_history"`
	DataHash            string        `json:"data_hash,omitempty"`
}

// ManuscriptReferee is a referee as listed on a manuscript page. Only the fields
// that take part in the manuscript fingerprint are typed.
type ManuscriptReferee struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Status string `json:"status,omitempty"`
}

// Manuscript is keyed by (ID, Journal) and replaced whole on every update.
// SubmissionDate and LastUpdated are kept verbatim as scraped from the site.
type Manuscript struct {
	ID                string              `json:"manuscript_id" validate:"required"`
	Journal           string              `json:"journal" validate:"required,journal_code"`
	Title             string              `json:"title,omitempty"`
	Status            string              `json:"status,omitempty"`
	Authors           []string            `json:"authors"`
	Referees          []ManuscriptReferee `json:"referees,omitempty"`
	SubmissionDate    string              `json:"submission_date,omitempty"`
	LastUpdated       string              `json:"last_updated,omitempty"`
	ExtractionDate    time.Time           `json:"extraction_date"`
	DataHash          string              `json:"data_hash,omitempty"`
	RefereeCount      int                 `json:"referee_count"`
	HasVersionHistory bool                `json:"has_version_history"`
	FullData          json.RawMessage     `json:"full_data,omitempty"`
}

// Institution maps an email domain to an institution.
type Institution struct {
	Domain      string    `json:"domain" validate:"required"`
	Name        string    `json:"institution_name"`
	Country     string    `json:"country,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// RefereeMetrics is a derived metrics blob with its own validity window.
type RefereeMetrics struct {
	Email        string          `json:"referee_email" validate:"required,email"`
	Metrics      json.RawMessage `json:"metrics"`
	CalculatedAt time.Time       `json:"calculated_at"`
	ValidUntil   time.Time       `json:"valid_until"`
}

// JournalStatistics covers one journal over [PeriodStart, PeriodEnd].
type JournalStatistics struct {
	JournalID         string    `json:"journal_id" validate:"required,journal_code"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end" validate:"gtefield=PeriodStart"`
	TotalSubmissions  int       `json:"total_submissions"`
	AverageReviewTime float64   `json:"average_review_time"` // days
	AcceptanceRate    float64   `json:"acceptance_rate"`
	DeskRejectionRate float64   `json:"desk_rejection_rate"`
}

// ExtractionRun records one scraping pass over a journal.
type ExtractionRun struct {
	RunID                string          `json:"run_id"`
	Journal              string          `json:"journal"`
	StartTime            time.Time       `json:"start_time"`
	EndTime              *time.Time      `json:"end_time,omitempty"`
	ManuscriptsExtracted int             `json:"manuscripts_extracted"`
	NewManuscripts       int             `json:"new_manuscripts"`
	UpdatedManuscripts   int             `json:"updated_manuscripts"`
	NewReferees          int             `json:"new_referees"`
	Errors               int             `json:"errors"`
	Metadata             json.RawMessage `json:"metadata,omitempty"`
}

// UpsertResult reports what an upsert did.
type UpsertResult struct {
	Created bool `json:"created"`
	Changed bool `json:"changed"`
}

// PurgeOptions selects the rows removed by Purge.
type PurgeOptions struct {
	OlderThan time.Duration // zero means the 90 day default
	Journal   string        // empty means every journal
}

// PurgeResult counts rows removed by Purge.
type PurgeResult struct {
	Manuscripts    int64 `json:"manuscripts"`
	ExtractionRuns int64 `json:"extraction_runs"`
}

// Counts is the row count of every table.
type Counts struct {
	Referees          int `json:"referees"`
	Manuscripts       int `json:"manuscripts"`
	Institutions      int `json:"institutions"`
	RefereeMetrics    int `json:"referee_metrics"`
	JournalStatistics int `json:"journal_statistics"`
	ExtractionRuns    int `json:"extraction_runs"`
}

// ManuscriptFilter narrows ListManuscripts.
type ManuscriptFilter struct {
	Journal string
	Limit   int // zero means no limit
}

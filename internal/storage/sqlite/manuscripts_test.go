package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "editorial-cache/internal/common/errors"
	"editorial-cache/internal/storage"
)

func sampleManuscript() storage.Manuscript {
	return storage.Manuscript{
		ID:      "M12345",
		Title:   "Optimal control of stochastic systems",
		Status:  "Under Review",
		Authors: []string{"A. Author", "B. Author"},
		Referees: []storage.ManuscriptReferee{
			{Name: "R One", Email: "r1@uni.edu", Status: "Agreed"},
		},
		SubmissionDate: "2024-01-10",
		LastUpdated:    "2024-02-01",
	}
}

func TestUpdateManuscript_CreateThenNoOp(t *testing.T) {
	adapter, clock := setupAdapter(t)
	ctx := context.Background()

	res, err := adapter.UpdateManuscript(ctx, sampleManuscript(), "SICON")
	require.NoError(t, err)
	assert.Equal(t, storage.UpsertResult{Created: true, Changed: true}, res)

	clock.Advance(time.Hour)
	res, err = adapter.UpdateManuscript(ctx, sampleManuscript(), "SICON")
	require.NoError(t, err)
	assert.Equal(t, storage.UpsertResult{}, res)

	m, err := adapter.GetManuscript(ctx, "M12345", "SICON")
	require.NoError(t, err)
	assert.True(t, m.ExtractionDate.Equal(clock.now), "extraction date refreshed on every write")
	assert.Equal(t, 1, m.RefereeCount)
	assert.Equal(t, ManuscriptFingerprint(sampleManuscript()), m.DataHash)
	assert.Equal(t, []string{"A. Author", "B. Author"}, m.Authors)
}

func TestUpdateManuscript_FingerprintFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *storage.Manuscript)
		changed bool
	}{
		{"status", func(m *storage.Manuscript) { m.Status = "Accepted" }, true},
		{"title", func(m *storage.Manuscript) { m.Title = "New title" }, true},
		{"authors", func(m *storage.Manuscript) { m.Authors = m.Authors[:1] }, true},
		{"referee status", func(m *storage.Manuscript) { m.Referees[0].Status = "Report submitted" }, true},
		{"last updated only", func(m *storage.Manuscript) { m.LastUpdated = "2024-03-01" }, false},
		{"version history only", func(m *storage.Manuscript) { m.HasVersionHistory = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, _ := setupAdapter(t)
			ctx := context.Background()

			_, err := adapter.UpdateManuscript(ctx, sampleManuscript(), "SICON")
			require.NoError(t, err)

			m := sampleManuscript()
			tt.mutate(&m)
			res, err := adapter.UpdateManuscript(ctx, m, "SICON")
			require.NoError(t, err)
			assert.False(t, res.Created)
			assert.Equal(t, tt.changed, res.Changed)

			stored, err := adapter.GetManuscript(ctx, "M12345", "SICON")
			require.NoError(t, err)
			assert.Equal(t, m.LastUpdated, stored.LastUpdated, "row is replaced whole")
			assert.Equal(t, m.HasVersionHistory, stored.HasVersionHistory)
		})
	}
}

func TestUpdateManuscript_KeyIncludesJournal(t *testing.T) {
	adapter, _ := setupAdapter(t)
	ctx := context.Background()

	_, err := adapter.UpdateManuscript(ctx, sampleManuscript(), "SICON")
	require.NoError(t, err)
	res, err := adapter.UpdateManuscript(ctx, sampleManuscript(), "SIFIN")
	require.NoError(t, err)
	assert.True(t, res.Created)

	journals, err := adapter.Journals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SICON", "SIFIN"}, journals)

	list, err := adapter.ListManuscripts(ctx, storage.ManuscriptFilter{Journal: "SIFIN"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "SIFIN", list[0].Journal)
}

func TestUpdateManuscript_FullData(t *testing.T) {
	adapter, _ := setupAdapter(t)
	ctx := context.Background()

	_, err := adapter.UpdateManuscript(ctx, sampleManuscript(), "SICON")
	require.NoError(t, err)
	m, err := adapter.GetManuscript(ctx, "M12345", "SICON")
	require.NoError(t, err)

	var decoded storage.Manuscript
	require.NoError(t, json.Unmarshal(m.FullData, &decoded))
	assert.Equal(t, sampleManuscript().Referees, decoded.Referees)
	assert.Equal(t, sampleManuscript().Referees, m.Referees, "referees come back from the stored record")

	custom := sampleManuscript()
	custom.FullData = json.RawMessage(`{"raw":true}`)
	_, err = adapter.UpdateManuscript(ctx, custom, "SICON")
	require.NoError(t, err)
	m, err = adapter.GetManuscript(ctx, "M12345", "SICON")
	require.NoError(t, err)
	assert.JSONEq(t, `{"raw":true}`, string(m.FullData))
	assert.Empty(t, m.Referees, "a caller payload without referees yields none")
}

func TestUpdateManuscript_Validation(t *testing.T) {
	adapter, _ := setupAdapter(t)

	_, err := adapter.UpdateManuscript(context.Background(), storage.Manuscript{Title: "no id"}, "SICON")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = adapter.UpdateManuscript(context.Background(), sampleManuscript(), "bad journal!")
	require.Error(t, err)
}

func TestShouldUpdateManuscript(t *testing.T) {
	tests := []struct {
		name        string
		stored      string // status of the cached row, "" for no row
		age         time.Duration
		status      string
		lastUpdated string
		want        bool
	}{
		{"no row", "", 0, "", "", true},
		{"fresh and unchanged", "Under Review", time.Hour, "Under Review", "2024-02-01", false},
		{"empty hints ignored", "Under Review", time.Hour, "", "", false},
		{"status differs", "Under Review", time.Hour, "Accepted", "", true},
		{"last updated differs", "Under Review", time.Hour, "", "2024-02-15", true},
		{"active older than a day", "Under Review", 25 * time.Hour, "", "", true},
		{"complete younger than 30 days", "Review Complete", 20 * 24 * time.Hour, "", "", false},
		{"complete older than 30 days", "Review Complete", 31 * 24 * time.Hour, "", "", true},
		{"complete matched case-insensitively", "COMPLETED", 2 * 24 * time.Hour, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, clock := setupAdapter(t)
			ctx := context.Background()

			if tt.stored != "" {
				m := sampleManuscript()
				m.Status = tt.stored
				_, err := adapter.UpdateManuscript(ctx, m, "SICON")
				require.NoError(t, err)
				clock.Advance(tt.age)
			}

			got, err := adapter.ShouldUpdateManuscript(ctx, "M12345", "SICON", tt.status, tt.lastUpdated)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldUpdateManuscript_DoesNotWrite(t *testing.T) {
	adapter, clock := setupAdapter(t)
	ctx := context.Background()

	_, err := adapter.UpdateManuscript(ctx, sampleManuscript(), "SICON")
	require.NoError(t, err)
	before, err := adapter.GetManuscript(ctx, "M12345", "SICON")
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	should, err := adapter.ShouldUpdateManuscript(ctx, "M12345", "SICON", "Accepted", "")
	require.NoError(t, err)
	assert.True(t, should)

	after, err := adapter.GetManuscript(ctx, "M12345", "SICON")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGetManuscript_NotFound(t *testing.T) {
	adapter, _ := setupAdapter(t)

	_, err := adapter.GetManuscript(context.Background(), "nope", "SICON")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"editorial-cache/internal/storage"
)

func TestPurge_AgeBoundary(t *testing.T) {
	adapter, clock := setupAdapter(t)
	ctx := context.Background()

	old := sampleManuscript()
	old.ID = "OLD"
	_, err := adapter.UpdateManuscript(ctx, old, "SICON")
	require.NoError(t, err)
	_, err = adapter.StartExtractionRun(ctx, "SICON")
	require.NoError(t, err)

	clock.Advance(2 * 24 * time.Hour)
	recent := sampleManuscript()
	recent.ID = "RECENT"
	_, err = adapter.UpdateManuscript(ctx, recent, "SICON")
	require.NoError(t, err)
	_, err = adapter.UpdateReferee(ctx, storage.Referee{Email: "a@b.com"}, "SICON")
	require.NoError(t, err)

	// OLD is now 91 days old, RECENT 89
	clock.Advance(89 * 24 * time.Hour)
	result, err := adapter.Purge(ctx, storage.PurgeOptions{})
	require.NoError(t, err)
	assert.Equal(t, storage.PurgeResult{Manuscripts: 1, ExtractionRuns: 1}, result)

	_, err = adapter.GetManuscript(ctx, "OLD", "SICON")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = adapter.GetManuscript(ctx, "RECENT", "SICON")
	assert.NoError(t, err)
	_, err = adapter.GetReferee(ctx, "a@b.com")
	assert.NoError(t, err, "referees are never purged")
}

func TestPurge_JournalFilter(t *testing.T) {
	adapter, clock := setupAdapter(t)
	ctx := context.Background()

	_, err := adapter.UpdateManuscript(ctx, sampleManuscript(), "SICON")
	require.NoError(t, err)
	_, err = adapter.UpdateManuscript(ctx, sampleManuscript(), "SIFIN")
	require.NoError(t, err)

	clock.Advance(10 * 24 * time.Hour)
	result, err := adapter.Purge(ctx, storage.PurgeOptions{OlderThan: 7 * 24 * time.Hour, Journal: "SIFIN"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Manuscripts)

	journals, err := adapter.Journals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SICON"}, journals)
}

func TestExtractionRuns(t *testing.T) {
	adapter, clock := setupAdapter(t)
	ctx := context.Background()

	run, err := adapter.StartExtractionRun(ctx, "SICON")
	require.NoError(t, err)
	assert.NotEmpty(t, run.RunID)
	assert.Nil(t, run.EndTime)

	clock.Advance(10 * time.Minute)
	run.ManuscriptsExtracted = 5
	run.NewManuscripts = 2
	run.Errors = 1
	run.Metadata = json.RawMessage(`{"mode":"full"}`)
	require.NoError(t, adapter.FinishExtractionRun(ctx, run))
	require.NotNil(t, run.EndTime)

	clock.Advance(time.Minute)
	_, err = adapter.StartExtractionRun(ctx, "SIFIN")
	require.NoError(t, err)

	runs, err := adapter.ListExtractionRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "SIFIN", runs[0].Journal, "newest first")

	runs, err = adapter.ListExtractionRuns(ctx, "SICON", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 5, runs[0].ManuscriptsExtracted)
	assert.JSONEq(t, `{"mode":"full"}`, string(runs[0].Metadata))
	require.NotNil(t, runs[0].EndTime)
	assert.True(t, runs[0].EndTime.Equal(clock.now.Add(-time.Minute)))

	assert.ErrorIs(t, adapter.FinishExtractionRun(ctx, &storage.ExtractionRun{RunID: "missing"}), storage.ErrNotFound)
	_, err = adapter.StartExtractionRun(ctx, " ")
	assert.Error(t, err)
}

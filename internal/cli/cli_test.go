package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"editorial-cache/internal/app"
	"editorial-cache/internal/cache"
	"editorial-cache/internal/config"
	"editorial-cache/internal/storage"
	"editorial-cache/internal/storage/sqlite"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CACHE_DIR", "DATABASE_PATH", "BLOB_DIR", "TESTING", "REDIS_ADDRESS", "REDIS_KEY_PREFIX", "LOG_FILE"} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--cache-dir", root, "--log-level", "error"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// seed opens the database the CLI will use and runs fn against it.
func seed(t *testing.T, root string, fn func(ctx context.Context, store *sqlite.Adapter)) {
	t.Helper()

	store, err := sqlite.NewAdapter(&sqlite.Config{DatabasePath: filepath.Join(root, "journal_cache.db")})
	require.NoError(t, err)
	defer store.Close()

	fn(context.Background(), store)
}

func seedRecords(t *testing.T, root string) {
	seed(t, root, func(ctx context.Context, store *sqlite.Adapter) {
		_, err := store.UpdateReferee(ctx, storage.Referee{
			Email:       "jane.doe@uni.edu",
			Name:        "Jane Doe",
			Institution: "Uni A",
		}, "SICON")
		require.NoError(t, err)
		_, err = store.UpdateReferee(ctx, storage.Referee{
			Email:       "jane.doe@uni.edu",
			Institution: "Uni B",
		}, "SIFIN")
		require.NoError(t, err)
		_, err = store.UpdateReferee(ctx, storage.Referee{Email: "bob@lab.org", Name: "Bob"}, "SIFIN")
		require.NoError(t, err)

		_, err = store.UpdateManuscript(ctx, storage.Manuscript{
			ID:       "M-100",
			Title:    "Optimal Control of Things",
			Status:   "Accepted",
			Authors:  []string{"A. Author"},
			Referees: []storage.ManuscriptReferee{{Name: "Jane Doe", Email: "jane.doe@uni.edu", Status: "Report submitted"}},
			FullData: json.RawMessage(`{"abstract":"long text"}`),
		}, "SICON")
		require.NoError(t, err)
		_, err = store.UpdateManuscript(ctx, storage.Manuscript{
			ID:       "M-101",
			Title:    "Stochastic Things",
			Status:   "Under Review",
			Referees: []storage.ManuscriptReferee{{Name: "Bob", Email: "bob@lab.org", Status: "Agreed"}},
		}, "SICON")
		require.NoError(t, err)
	})
}

func TestStatsCommand(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	seedRecords(t, root)

	out, err := execute(t, root, "stats")
	require.NoError(t, err)

	assert.Contains(t, out, "Journals: SICON")
	assert.Contains(t, out, "Promotion TTL: 5m, purge after: 90.0d")
	assert.Contains(t, out, "referees")
	assert.Contains(t, out, "manuscripts")
	assert.Contains(t, out, "memory")
	assert.Contains(t, out, "disabled")
}

func TestRefereeCommand(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	seedRecords(t, root)

	out, err := execute(t, root, "referee", "Jane.Doe@uni.edu")
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Doe")
	assert.Contains(t, out, "Uni B")
	assert.Contains(t, out, "SICON, SIFIN")
	assert.Contains(t, out, "Previous affiliations")
	assert.Contains(t, out, "Uni A")

	_, err = execute(t, root, "referee", "nobody@nowhere.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not cached")

	_, err = execute(t, root, "referee")
	assert.Error(t, err, "email argument is required")
}

func TestManuscriptCommand(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	seedRecords(t, root)

	out, err := execute(t, root, "manuscript", "M-100", "--journal", "SICON")
	require.NoError(t, err)
	assert.Contains(t, out, "Optimal Control of Things")
	assert.NotContains(t, out, "Report submitted", "a custom payload carries no referee list")

	out, err = execute(t, root, "manuscript", "M-101", "--journal", "SICON")
	require.NoError(t, err)
	assert.Contains(t, out, "Stochastic Things")
	assert.Contains(t, out, "bob@lab.org")
	assert.Contains(t, out, "Agreed")

	out, err = execute(t, root, "manuscript", "M-100", "--journal", "SICON", "--full")
	require.NoError(t, err)
	var full map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &full))
	assert.Equal(t, "long text", full["abstract"])

	out, err = execute(t, root, "manuscript", "M-101", "-j", "SICON", "--full")
	require.NoError(t, err)
	var record storage.Manuscript
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, "M-101", record.ID)
	require.Len(t, record.Referees, 1)
	assert.Equal(t, "Bob", record.Referees[0].Name)

	_, err = execute(t, root, "manuscript", "M-100", "--journal", "SIFIN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not cached")

	_, err = execute(t, root, "manuscript", "M-100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal")
}

func TestClearCommand_EmptiesCacheTiers(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	cfg := config.Load()
	a, err := app.New(cfg, app.Options{StorageRoot: root})
	require.NoError(t, err)
	err = a.Cache.Set(context.Background(), cache.NamespaceLargeDocument,
		cache.Components{"url": "https://example.org/paper.pdf"}, map[string]string{"text": "body"}, time.Hour)
	require.NoError(t, err)
	blobDir := a.BlobDir
	a.Cleanup()

	files, _ := filepath.Glob(filepath.Join(blobDir, "*.json"))
	require.Len(t, files, 1)

	out, err := execute(t, root, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "1 blob files")

	files, _ = filepath.Glob(filepath.Join(blobDir, "*.json"))
	assert.Empty(t, files)
}

func TestRemoteTierCommands(t *testing.T) {
	clearEnv(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	t.Setenv("REDIS_ADDRESS", mr.Addr())

	require.NoError(t, mr.Set("editorial-cache:api_response:abc", `{"ok":true}`))
	require.NoError(t, mr.Set("other-app:key", "keep"))
	root := t.TempDir()

	out, err := execute(t, root, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "1 keys")

	out, err = execute(t, root, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "1 remote keys")
	assert.False(t, mr.Exists("editorial-cache:api_response:abc"))
	assert.True(t, mr.Exists("other-app:key"))
}

func TestClearCommand_PurgeFilters(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	seedRecords(t, root)

	out, err := execute(t, root, "clear", "--days", "1", "--journal", "SICON")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 manuscripts")

	seed(t, root, func(ctx context.Context, store *sqlite.Adapter) {
		counts, err := store.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts.Manuscripts, "fresh manuscripts survive the purge")
	})

	_, err = execute(t, root, "clear", "--days", "0")
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	seedRecords(t, root)

	tests := []struct {
		name            string
		journal         string
		wantReferees    int
		wantManuscripts int
	}{
		{name: "everything", wantReferees: 2, wantManuscripts: 2},
		{name: "one journal", journal: "SIFIN", wantReferees: 2, wantManuscripts: 0},
		{name: "unknown journal", journal: "MF", wantReferees: 0, wantManuscripts: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "export.json")
			args := []string{"export", "-o", file}
			if tt.journal != "" {
				args = append(args, "--journal", tt.journal)
			}

			out, err := execute(t, root, args...)
			require.NoError(t, err)
			assert.Contains(t, out, file)

			raw, err := os.ReadFile(file)
			require.NoError(t, err)

			var doc exportDocument
			require.NoError(t, json.Unmarshal(raw, &doc))
			assert.Equal(t, tt.journal, doc.Journal)
			assert.Len(t, doc.Referees, tt.wantReferees)
			assert.Len(t, doc.Manuscripts, tt.wantManuscripts)
		})
	}

	t.Run("stdout", func(t *testing.T) {
		out, err := execute(t, root, "export")
		require.NoError(t, err)

		var doc exportDocument
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Len(t, doc.Manuscripts, 2)
	})
}

func TestPopulateStatsCommand(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	out, err := execute(t, root, "populate-stats")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to compute")

	seedRecords(t, root)

	out, err = execute(t, root, "populate-stats", "--days", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "SICON")
	assert.Contains(t, out, "50.0%")

	seed(t, root, func(ctx context.Context, store *sqlite.Adapter) {
		stats, err := store.ListJournalStatistics(ctx, "SICON")
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, 2, stats[0].TotalSubmissions)
	})

	_, err = execute(t, root, "populate-stats", "--days", "0")
	assert.Error(t, err)
}

func TestSweepCommand(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	blobDir := filepath.Join(root, "blobs")
	require.NoError(t, os.MkdirAll(blobDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blobDir, "large_document_broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(blobDir, "notes.txt"), []byte("keep"), 0o644))

	out, err := execute(t, root, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 expired blob files")

	assert.NoFileExists(t, filepath.Join(blobDir, "large_document_broken.json"))
	assert.FileExists(t, filepath.Join(blobDir, "notes.txt"))
}

func TestServeCommand_StopsWithContext(t *testing.T) {
	clearEnv(t)

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--isolated", "--log-level", "error", "serve", "--addr", "127.0.0.1:0"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	assert.NoError(t, cmd.ExecuteContext(ctx))
}

func TestIsolatedFlag(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	_, err := execute(t, root, "--isolated", "stats")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(root, "journal_cache.db"), "isolated runs never touch the cache dir")
}

func TestInvalidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEMORY_MAX_ENTRIES", "zero")

	_, err := execute(t, t.TempDir(), "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEMORY_MAX_ENTRIES")
}

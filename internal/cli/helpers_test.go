package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/keywarden/internal/clock"
	"github.com/roach88/keywarden/internal/config"
	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/store"
	"github.com/roach88/keywarden/internal/testutil"
)

// Command tests drive the real subcommands against the wire-protocol
// fake server, with every file confined to a temp dir and the clock
// frozen so output filenames are predictable.

// testDay is the frozen provisioning date shared by command tests.
var testDay = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// stamp is testDay in output-filename form.
const stamp = "20260301_000000"

const classRoster = `first_name,last_name,email,mq_id,budget,limit_reset
Chaeyeon,Kim,chaeyeon.kim@example.com,60853425,3,weekly
Dasol,Kim,dasol.kim@example.com,60853379,5,
`

// testConfig points every configured file into dir and the remote
// service at baseURL.
func testConfig(dir, baseURL string) *config.Config {
	return &config.Config{
		Remote: config.RemoteConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
		Pacing: config.PacingConfig{Interval: time.Millisecond},
		Files: config.FilesConfig{
			Roster:            filepath.Join(dir, "roster.csv"),
			Limits:            filepath.Join(dir, "limits.csv"),
			Database:          filepath.Join(dir, "keys.db"),
			SnapshotPrefix:    filepath.Join(dir, "snapshot"),
			ExportPrefix:      filepath.Join(dir, "api_keys"),
			PlaceholderDomain: "@FIXME.mq.edu.au",
		},
		Log: config.LogConfig{Level: "info"},
	}
}

// newRootOptions hands a subcommand the state the root command would
// normally populate, with a frozen clock.
func newRootOptions(cfg *config.Config) *RootOptions {
	return &RootOptions{
		Cfg:   cfg,
		Clock: clock.NewFakeClock(testDay),
	}
}

// setupRemote builds the fake account, serves it, and returns a config
// rooted in a fresh temp dir pointing at the server.
func setupRemote(t *testing.T, initial ...keys.RemoteKey) (*config.Config, *testutil.Account) {
	t.Helper()
	account := testutil.NewAccount(initial...)
	srv := testutil.Serve(t, account)
	cfg := testConfig(t.TempDir(), srv.URL)
	t.Setenv("OPENROUTER_PROVISIONING_KEY", "sk-or-test-provisioning")
	return cfg, account
}

// initDatabase applies the audit schema the way init-db would.
func initDatabase(t *testing.T, cfg *config.Config) {
	t.Helper()
	st, _, err := store.Create(cfg.Files.Database)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// classKeys returns remote keys for the classRoster students, provisioned
// on an earlier day.
func classKeys() []keys.RemoteKey {
	return []keys.RemoteKey{
		{
			Hash:    "hash-a",
			Name:    "20260220_Chaeyeon Kim_60853425",
			Label:   "sk-or-v1-aaaa",
			Limit:   keys.LimitOf(25),
			Usage:   1.25,
			Cadence: keys.CadenceWeekly,
		},
		{
			Hash:  "hash-b",
			Name:  "20260220_Dasol Kim_60853379",
			Label: "sk-or-v1-bbbb",
			Limit: keys.Unlimited(),
			Usage: 0.5,
		},
	}
}

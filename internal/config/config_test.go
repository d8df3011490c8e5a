package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Sam")
	cfg.BankAccounts = []BankAccount{
		{Name: "Everyday", BankID: "commbank", AccountID: "everyday", LastFour: "4821", Template: "commbank_auto_debit_credit"},
	}
	cfg.TemplatesFile = "templates.yaml"

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Sam")

	assert.Equal(t, "Sam", cfg.Owner)
	assert.Equal(t, "AUD", cfg.Defaults.Currency)
	assert.InDelta(t, 0.70, cfg.Thresholds.LowConfidence, 0.001)
	assert.InDelta(t, 0.80, cfg.Thresholds.TransferConfidence, 0.001)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Git.AutoCommit)
	assert.Empty(t, cfg.BankAccounts)
	require.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"threshold", "thresholds:\n  low_confidence: 1.5\n", "thresholds.low_confidence"},
		{"driver", "storage:\n  driver: sqlite\n", "storage.driver"},
		{"duplicate account", "bank_accounts:\n  - name: A\n  - name: a\n", "duplicate bank account"},
		{"unnamed account", "bank_accounts:\n  - bank_id: x\n", "without a name"},
		{"bad yaml", "owner: [", "parsing config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Sam")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "owner: Sam")
	assert.Contains(t, contents, "low_confidence: 0.7")
	assert.Contains(t, contents, "driver: file")
	assert.Contains(t, contents, "auto_commit: true")
	assert.NotContains(t, contents, "templates_file")
}

func TestAccountLookup(t *testing.T) {
	cfg := Default("Sam")
	cfg.BankAccounts = []BankAccount{
		{Name: "Everyday", AccountID: "everyday", LastFour: "4821"},
		{Name: "Savings", AccountID: "savings"},
	}

	a, ok := cfg.Account("SAVINGS")
	require.True(t, ok)
	assert.Equal(t, "savings", a.AccountID)

	a, ok = cfg.AccountForFile("statement-4821-2024-01.txt")
	require.True(t, ok)
	assert.Equal(t, "everyday", a.AccountID)

	a, ok = cfg.AccountForFile("savings_jan.txt")
	require.True(t, ok)
	assert.Equal(t, "savings", a.AccountID)

	_, ok = cfg.AccountForFile("other.txt")
	assert.False(t, ok)
}

func TestStorageDSN(t *testing.T) {
	t.Setenv("LEDGERLENS_TEST_DSN", "postgres://localhost/x")
	assert.Equal(t, "postgres://localhost/x", StorageConfig{DSNEnv: "LEDGERLENS_TEST_DSN"}.DSN())
	assert.Empty(t, StorageConfig{}.DSN())
}

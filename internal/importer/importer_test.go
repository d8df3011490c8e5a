package importer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

func TestScan_FindsStatements(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(importDir, "jan.txt"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "FEB.TXT"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "mar.pdf"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "bank.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "FEB.TXT", files[0].Name)
	assert.Equal(t, "jan.txt", files[1].Name)
	assert.Equal(t, "mar.pdf", files[2].Name)
	assert.Equal(t, int64(4), files[1].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	processedDir := filepath.Join(importDir, "processed")
	require.NoError(t, os.MkdirAll(processedDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(importDir, "new.txt"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processedDir, "old.txt"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, "new.txt", files[0].Name)
}

func TestScan_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	files, err := Scan(dir)
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestReadStatement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffDate Description\n"), 0o644))

	text, ok, err := ReadStatement(path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Date Description\n", text)

	text, ok, err = ReadStatement(filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestReadStatement_PDF(t *testing.T) {
	text, ok, err := ReadStatement(filepath.Join("..", "extract", "testdata", "statement.pdf"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, text, "Date Transaction details Amount Balance\n")

	_, ok, err = ReadStatement(filepath.Join(t.TempDir(), "missing.pdf"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "jan.txt"), []byte("data"), 0o644))

	err := MarkProcessed(dir, "jan.txt")
	require.NoError(t, err)

	// Source gone.
	_, err = os.Stat(filepath.Join(importDir, "jan.txt"))
	assert.True(t, os.IsNotExist(err))

	// Destination exists.
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "jan.txt"))
	assert.NoError(t, err)
}

func TestMarkProcessed_Missing(t *testing.T) {
	err := MarkProcessed(t.TempDir(), "nope.txt")
	assert.ErrorContains(t, err, "moving nope.txt to processed")
}

func TestParsedFileCache(t *testing.T) {
	dir := t.TempDir()

	files, err := ReadParsedFiles(dir)
	require.NoError(t, err)
	assert.Nil(t, files)

	f := model.ParsedFile{
		FileID:     "b-file",
		FileHash:   "abc",
		TemplateID: "commbank_manual_amount_balance",
		ParsedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Transactions: []model.ParsedTransaction{{
			Date:    "03 Jan 2024",
			ISODate: "2024-01-03",
			Amount:  decimal.RequireFromString("-4.50"),
			Balance: decimal.NewNullDecimal(decimal.RequireFromString("95.50")),
		}},
		Warnings: []model.ParseWarning{model.DocumentWarning(model.WarningMissingPeriod, "", "", 0)},
	}
	require.NoError(t, WriteParsedFile(dir, f))
	require.NoError(t, WriteParsedFile(dir, model.ParsedFile{FileID: "a-file"}))

	files, err = ReadParsedFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a-file", files[0].FileID)

	got := files[1]
	assert.Equal(t, f.ParsedAt, got.ParsedAt)
	assert.Equal(t, "-4.50", got.Transactions[0].Amount.StringFixed(2))
	assert.Equal(t, "95.50", got.Transactions[0].Balance.Decimal.StringFixed(2))
	assert.Equal(t, model.NoRow, got.Warnings[0].RowIndex)

	assert.Error(t, WriteParsedFile(dir, model.ParsedFile{}))
}

func TestReadParsedFiles_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ParsedDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ParsedDir, "x.json"), []byte("{"), 0o644))

	_, err := ReadParsedFiles(dir)
	assert.ErrorContains(t, err, "parsing x.json")
}

func TestLedger_DeduplicatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	txn := func(id, key string) model.NormalizedTransaction {
		return model.NormalizedTransaction{ID: id, DedupeKey: key, Amount: decimal.RequireFromString("-1.00")}
	}

	require.NoError(t, WriteLedger(dir, "a", []model.NormalizedTransaction{txn("txn_1", "dk_x"), txn("txn_2", "dk_y")}))
	require.NoError(t, WriteLedger(dir, "b", []model.NormalizedTransaction{txn("txn_3", "dk_y"), txn("txn_4", "dk_z")}))
	require.NoError(t, WriteLedger(dir, "c", nil))

	ledger, err := ReadLedger(dir)
	require.NoError(t, err)
	var ids []string
	for _, l := range ledger {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"txn_1", "txn_2", "txn_4"}, ids)
}

func TestLedger_EarlierImportKeepsItsIDs(t *testing.T) {
	dir := t.TempDir()
	txn := func(id, key string) model.NormalizedTransaction {
		return model.NormalizedTransaction{ID: id, DedupeKey: key, Amount: decimal.RequireFromString("-1.00")}
	}
	ids := func() []string {
		t.Helper()
		ledger, err := ReadLedger(dir)
		require.NoError(t, err)
		var out []string
		for _, l := range ledger {
			out = append(out, l.ID)
		}
		return out
	}

	// The later, overlapping file sorts first by name.
	require.NoError(t, WriteLedger(dir, "ffff-first-import", []model.NormalizedTransaction{txn("txn_jan", "dk_jan")}))
	require.Equal(t, []string{"txn_jan"}, ids())

	require.NoError(t, WriteLedger(dir, "0000-second-import", []model.NormalizedTransaction{
		txn("txn_jan_again", "dk_jan"),
		txn("txn_feb", "dk_feb"),
	}))
	assert.Equal(t, []string{"txn_jan", "txn_feb"}, ids())

	// Re-importing the first file keeps its place.
	require.NoError(t, WriteLedger(dir, "ffff-first-import", []model.NormalizedTransaction{txn("txn_jan", "dk_jan")}))
	assert.Equal(t, []string{"txn_jan", "txn_feb"}, ids())

	data, err := os.ReadFile(filepath.Join(dir, LedgerDir, ledgerOrder))
	require.NoError(t, err)
	assert.Equal(t, "ffff-first-import\n0000-second-import\n", string(data))
}

func TestLedger_UnlistedFilesFollowInNameOrder(t *testing.T) {
	dir := t.TempDir()
	txn := func(id, key string) model.NormalizedTransaction {
		return model.NormalizedTransaction{ID: id, DedupeKey: key}
	}
	require.NoError(t, WriteLedger(dir, "m", []model.NormalizedTransaction{txn("txn_m", "dk_x")}))
	// Written without an order entry, as older caches were.
	require.NoError(t, writeJSON(filepath.Join(dir, LedgerDir), "a", []model.NormalizedTransaction{txn("txn_a", "dk_x"), txn("txn_b", "dk_y")}))

	ledger, err := ReadLedger(dir)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	assert.Equal(t, "txn_m", ledger[0].ID)
	assert.Equal(t, "txn_b", ledger[1].ID)
}

package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/commands"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/importer"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/runlog"
)

func runLedgerlens(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := commands.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

// newRepo initializes a repo without git.
func newRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runLedgerlens(t, "init", dir, "--owner", "Sam", "--no-git")
	require.NoError(t, err)
	return dir
}

func addStatement(t *testing.T, repo, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "commbank_manual.txt"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(repo, "import", name), data, 0o644))
}

type inboxJSON struct {
	Items            []model.InboxItem `json:"items"`
	SuppressedByRule int               `json:"suppressedByRule"`
}

func readInbox(t *testing.T, repo string, args ...string) inboxJSON {
	t.Helper()
	out, err := runLedgerlens(t, append([]string{"inbox", "--repo", repo, "--json"}, args...)...)
	require.NoError(t, err)
	var v inboxJSON
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	return v
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := newRepo(t)

	for _, d := range []string{"import", filepath.Join("import", "processed"), "logs", "review"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "Sam", cfg.Owner)
	assert.False(t, cfg.Git.AutoCommit)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), ".cache/parsed/")
	assert.Contains(t, string(data), "review/.lock")
}

func TestInit_RequiresOwner(t *testing.T) {
	_, err := runLedgerlens(t, "init", t.TempDir(), "--no-git")
	require.Error(t, err, "init without --owner should fail")
}

func TestInit_RefusesExistingRepo(t *testing.T) {
	dir := newRepo(t)
	_, err := runLedgerlens(t, "init", dir, "--owner", "Sam", "--no-git")
	assert.ErrorContains(t, err, "already exists")
}

func TestInit_GitRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	out, err := runLedgerlens(t, "init", dir, "--owner", "Sam")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized ledgerlens repository")

	log := exec.Command("git", "log", "--format=%s|%an", "-1")
	log.Dir = dir
	gitOut, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(gitOut), "init: ledgerlens repository for Sam|ledgerlens")
}

func TestVersion(t *testing.T) {
	out, err := runLedgerlens(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "parser: stmt-parser/")
}

func TestTemplates(t *testing.T) {
	out, err := runLedgerlens(t, "templates", "--repo", t.TempDir())
	require.NoError(t, err)
	for _, id := range []string{"commbank_manual_amount_balance", "commbank_auto_debit_credit", "commbank_summary_infer"} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "infer_from_last_numbers")
}

func TestTemplates_CustomFile(t *testing.T) {
	dir := newRepo(t)
	tpl := `templates:
  - id: westpac_basic
    bank: westpac
    header_anchors: ["Date Narrative Debit Credit Balance"]
    parse:
      date_pattern: '^(\d{2}/\d{2}/\d{4})'
      date_layouts: ["02/01/2006"]
      strategy: debit_credit_balance
      has_debit_credit_columns: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates.yaml"), []byte(tpl), 0o644))
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	cfg.TemplatesFile = "templates.yaml"
	require.NoError(t, config.Save(filepath.Join(dir, config.FileName), cfg))

	out, err := runLedgerlens(t, "templates", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "westpac_basic")
}

func TestDetect(t *testing.T) {
	out, err := runLedgerlens(t, "detect", "--repo", t.TempDir(), filepath.Join("testdata", "commbank_manual.txt"))
	require.NoError(t, err)
	assert.Equal(t, "commbank_manual_amount_balance (anchor)\n", out)

	other := filepath.Join(t.TempDir(), "other.txt")
	require.NoError(t, os.WriteFile(other, []byte("nothing here"), 0o644))
	out, err = runLedgerlens(t, "detect", other)
	require.NoError(t, err)
	assert.Equal(t, "unknown\n", out)

	_, err = runLedgerlens(t, "detect", filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "no statement text")
}

func TestParse(t *testing.T) {
	out, err := runLedgerlens(t, "parse", "--repo", t.TempDir(), filepath.Join("testdata", "commbank_manual.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "template commbank_manual_amount_balance")
	assert.Contains(t, out, "continuity passed (5/5)")
	assert.Contains(t, out, "EFTPOS COFFEE HOUSE 123")

	out, err = runLedgerlens(t, "parse", "--json", filepath.Join("testdata", "commbank_manual.txt"))
	require.NoError(t, err)
	var res struct {
		Transactions []model.NormalizedTransaction
		File         model.ParsedFile
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Transactions, 6)
	assert.Equal(t, "commbank", res.File.BankID)
}

func TestParse_UnknownAccount(t *testing.T) {
	dir := newRepo(t)
	_, err := runLedgerlens(t, "parse", "--repo", dir, "--account", "nope", filepath.Join("testdata", "commbank_manual.txt"))
	assert.ErrorContains(t, err, `unknown bank account "nope"`)
}

func TestImport_Nothing(t *testing.T) {
	dir := newRepo(t)
	out, err := runLedgerlens(t, "import", "--repo", dir)
	require.NoError(t, err)
	assert.Equal(t, "Nothing to import.\n", out)
}

func TestImport_RequiresRepo(t *testing.T) {
	_, err := runLedgerlens(t, "import", "--repo", t.TempDir())
	assert.ErrorContains(t, err, "not a ledgerlens repo")
}

func TestImport_ParsesAndCaches(t *testing.T) {
	dir := newRepo(t)
	addStatement(t, dir, "jan.txt")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "junk.txt"), []byte("hello"), 0o644))

	out, err := runLedgerlens(t, "import", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "jan.txt: 6 rows, 0 warnings (commbank_manual_amount_balance)")
	assert.Contains(t, out, "Imported 1 files (6 rows), 1 skipped, 0 need review.")

	// imported file moved, unknown one left for a new template
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "jan.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "import", "junk.txt"))
	assert.NoError(t, err)

	files, err := importer.ReadParsedFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "jan.txt", files[0].FileName)

	entries, err := runlog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "passed", entries[0].Continuity)

	// the same statement under another name adds nothing to the ledger
	addStatement(t, dir, "jan-copy.txt")
	_, err = runLedgerlens(t, "import", "--repo", dir)
	require.NoError(t, err)
	ledger, err := importer.ReadLedger(dir)
	require.NoError(t, err)
	assert.Len(t, ledger, 6)
}

func TestInboxAndReview(t *testing.T) {
	dir := newRepo(t)
	addStatement(t, dir, "jan.txt")
	_, err := runLedgerlens(t, "import", "--repo", dir)
	require.NoError(t, err)

	v := readInbox(t, dir)
	require.Len(t, v.Items, 7)
	kinds := map[model.InboxKind]int{}
	for _, it := range v.Items {
		kinds[it.Kind]++
	}
	assert.Equal(t, 6, kinds[model.KindUnknownMerchant])
	assert.Equal(t, 1, kinds[model.KindUncertainTransfer])

	out, err := runLedgerlens(t, "review", "suppress", "unknown_merchant", "coffee house", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `UNKNOWN_MERCHANT suppressed "coffee house"`)

	v = readInbox(t, dir)
	assert.Len(t, v.Items, 6)
	assert.Equal(t, 1, v.SuppressedByRule)

	target := v.Items[0].ID
	_, err = runLedgerlens(t, "review", "resolve", target, "--note", "fine", "--repo", dir)
	require.NoError(t, err)
	v = readInbox(t, dir)
	assert.Len(t, v.Items, 5)
	for _, it := range v.Items {
		assert.NotEqual(t, target, it.ID)
	}

	all := readInbox(t, dir, "--all")
	assert.Len(t, all.Items, 7)

	transfers := readInbox(t, dir, "--kind", "uncertain_transfer")
	require.Len(t, transfers.Items, 1)
	assert.Equal(t, "out:savings", transfers.Items[0].Metadata[model.MetaTransferSignature])

	_, err = runLedgerlens(t, "review", "unresolve", target, "--repo", dir)
	require.NoError(t, err)
	_, err = runLedgerlens(t, "review", "unsuppress", "UNKNOWN_MERCHANT", "coffee house", "--repo", dir)
	require.NoError(t, err)
	assert.Len(t, readInbox(t, dir).Items, 7)

	out, err = runLedgerlens(t, "inbox", "--repo", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "7 open, 0 resolved, 0 suppressed")
	assert.True(t, strings.HasPrefix(out, "ID"))
}

func TestReview_Errors(t *testing.T) {
	dir := newRepo(t)

	_, err := runLedgerlens(t, "review", "resolve", "bogus", "--repo", dir)
	assert.ErrorContains(t, err, "invalid id")

	_, err = runLedgerlens(t, "review", "suppress", "LOW_CONFIDENCE", "x", "--repo", dir)
	assert.ErrorContains(t, err, "unknown inbox kind")
}

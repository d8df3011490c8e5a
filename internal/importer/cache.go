package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/normalize"
)

// Cache directories, relative to the repo root.
const (
	ParsedDir = ".cache/parsed"
	LedgerDir = ".cache/ledger"
)

// ledgerOrder lists ledger file ids, one per line, in the order they were
// first imported.
const ledgerOrder = "order"

// WriteParsedFile stores f as .cache/parsed/<file id>.json, replacing any
// earlier parse of the same file.
func WriteParsedFile(repoRoot string, f model.ParsedFile) error {
	if f.FileID == "" {
		return fmt.Errorf("parsed file has no id")
	}
	return writeJSON(filepath.Join(repoRoot, ParsedDir), f.FileID, f)
}

// ReadParsedFiles returns every cached parse record ordered by file id.
func ReadParsedFiles(repoRoot string) ([]model.ParsedFile, error) {
	var out []model.ParsedFile
	err := readJSONDir(filepath.Join(repoRoot, ParsedDir), func(name string, data []byte) error {
		var f model.ParsedFile
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}
		out = append(out, f)
		return nil
	})
	return out, err
}

// WriteLedger stores the normalized rows of one file and records its import
// position. Re-importing a file keeps its original position.
func WriteLedger(repoRoot, fileID string, txns []model.NormalizedTransaction) error {
	if fileID == "" {
		return fmt.Errorf("ledger rows have no file id")
	}
	if txns == nil {
		txns = []model.NormalizedTransaction{}
	}
	dir := filepath.Join(repoRoot, LedgerDir)
	if err := writeJSON(dir, fileID, txns); err != nil {
		return err
	}
	return appendOrder(dir, fileID)
}

// ReadLedger rebuilds the ledger from every cached file in import order,
// dropping rows already reported by an earlier file. Rows kept by earlier
// imports therefore keep their ids when a later file overlaps them. Files
// missing from the order list follow in name order.
func ReadLedger(repoRoot string) ([]model.NormalizedTransaction, error) {
	dir := filepath.Join(repoRoot, LedgerDir)
	byID := make(map[string][]model.NormalizedTransaction)
	var names []string
	err := readJSONDir(dir, func(name string, data []byte) error {
		var txns []model.NormalizedTransaction
		if err := json.Unmarshal(data, &txns); err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}
		id := strings.TrimSuffix(name, ".json")
		byID[id] = txns
		names = append(names, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	order, err := readOrder(dir)
	if err != nil {
		return nil, err
	}

	files := make([][]model.NormalizedTransaction, 0, len(names))
	for _, id := range append(order, names...) {
		if txns, ok := byID[id]; ok {
			files = append(files, txns)
			delete(byID, id)
		}
	}
	return normalize.Merge(nil, files...), nil
}

func readOrder(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ledgerOrder))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ledger order: %w", err)
	}
	return strings.Fields(string(data)), nil
}

func appendOrder(dir, fileID string) error {
	order, err := readOrder(dir)
	if err != nil {
		return err
	}
	if slices.Contains(order, fileID) {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, ledgerOrder), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger order: %w", err)
	}
	if _, err := f.WriteString(fileID + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("writing ledger order: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing ledger order: %w", err)
	}
	return nil
}

func writeJSON(dir, fileID string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", fileID, err)
	}
	path := filepath.Join(dir, fileID+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// readJSONDir calls fn for each .json file in dir in name order. A missing
// dir is empty.
func readJSONDir(dir string, fn func(name string, data []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if err := fn(name, data); err != nil {
			return err
		}
	}
	return nil
}

// Package importer manages the import directory and the parse cache of a
// ledgerlens repo.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/extract"
)

// FileInfo describes a statement text file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// importDir is the subdirectory for extracted statement texts.
const importDir = "import"

// processedDir is the subdirectory for imported statements.
const processedDir = "import/processed"

// Statement file extensions. PDFs are read through their text layer.
const (
	textExt = ".txt"
	pdfExt  = ".pdf"
)

// Scan returns statement files in <repoRoot>/import/, sorted by name.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case textExt, pdfExt:
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// ReadStatement returns the text at path. A missing file is reported with
// ok=false and no error.
func ReadStatement(path string) (text string, ok bool, err error) {
	if strings.EqualFold(filepath.Ext(path), pdfExt) {
		return readPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading statement: %w", err)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), true, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

func readPDF(path string) (string, bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", false, nil
	}
	text, err := extract.PDFText(path)
	if errors.Is(err, extract.ErrNoText) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

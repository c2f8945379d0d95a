package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"slideposarea/pkg/workbook"
)

// FileIssues pairs one input workbook with its validation issues.
type FileIssues struct {
	Path   string
	Issues []Issue
}

// FindWorkbooks lists the input workbooks in a directory, sorted by name.
// Spreadsheet lock files ("~$...") and processed outputs are skipped.
func FindWorkbooks(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}
	entries, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, path := range entries {
		name := filepath.Base(path)
		if strings.HasPrefix(name, "~$") || workbook.IsProcessed(name) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// ValidateAll runs the validator over every workbook and reports whether
// the whole batch is clean. All files are checked before any processing
// decision, so users see every problem in one pass.
func (v *Validator) ValidateAll(paths []string) ([]FileIssues, bool) {
	results := make([]FileIssues, 0, len(paths))
	clean := true
	for _, path := range paths {
		issues := v.Validate(path)
		if len(issues) > 0 {
			clean = false
		}
		results = append(results, FileIssues{Path: path, Issues: issues})
	}
	return results, clean
}

// ProcessFile runs the engine over one validated workbook and writes the
// processed output into outDir, returning the output path.
func (e *Engine) ProcessFile(path, outDir string) (string, error) {
	doc, err := workbook.Read(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	metrics, err := e.Process(&doc.Descriptor)
	if err != nil {
		return "", fmt.Errorf("processing %s: %w", path, err)
	}
	return workbook.WriteProcessed(doc, metrics, outDir)
}

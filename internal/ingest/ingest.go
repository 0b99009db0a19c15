// Package ingest turns CSV, TSV and XLSX files into typed datasets.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
)

// DefaultMaxFileSize is the upload limit applied when none is configured.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// Options controls how a file is read.
type Options struct {
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, sniffs among ',', ';', '\t' from the header line.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// SheetName selects an XLSX sheet by name; otherwise SheetIndex (1-based).
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns the limits used by the CLI and server.
func DefaultOptions() Options {
	return Options{MaxRows: 100000}
}

// Result is a loaded dataset plus facts about how it was read.
type Result struct {
	Dataset   *dataset.Dataset
	Encoding  string
	Delimiter rune
	// TotalRows counts data rows in the file, including rows dropped by MaxRows.
	TotalRows int
	Warnings  []string
}

// CheckFile rejects files with an unsupported extension or above maxBytes.
// A maxBytes of 0 disables the size check.
func CheckFile(name string, size, maxBytes int64) error {
	if lookup(name) == nil {
		return invalid(KindExtension, "Invalid file format. Please upload a .csv file.")
	}
	if maxBytes > 0 && size > maxBytes {
		return invalid(KindSize, "File size exceeds the %s limit.", formatMB(maxBytes))
	}
	return nil
}

func formatMB(n int64) string {
	mb := float64(n) / (1024 * 1024)
	if mb == float64(int64(mb)) {
		return fmt.Sprintf("%d MB", int64(mb))
	}
	return fmt.Sprintf("%.1f MB", mb)
}

// LoadFile reads path and parses it with the loader registered for its extension.
func LoadFile(path string, opt Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Load(filepath.Base(path), data, opt)
}

// Load parses data as the file named name.
func Load(name string, data []byte, opt Options) (*Result, error) {
	l := lookup(name)
	if l == nil {
		return nil, invalid(KindExtension, "Invalid file format. Please upload a .csv file.")
	}
	res, err := l.Load(name, data, opt)
	if err != nil {
		return nil, err
	}
	if n := res.Dataset.NumRows(); n < res.TotalRows {
		res.Warnings = append(res.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", n, res.TotalRows))
	}
	return res, nil
}

// Loader parses one family of tabular formats.
type Loader interface {
	CanLoad(filename string) bool
	Load(name string, data []byte, opt Options) (*Result, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func lookup(name string) Loader {
	for _, l := range registry {
		if l.CanLoad(name) {
			return l
		}
	}
	return nil
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}

func hasExt(name string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

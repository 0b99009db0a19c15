package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/csvscope-cli/internal/ingest"
	"github.com/KaramelBytes/csvscope-cli/internal/logging"
	"github.com/spf13/cobra"
)

// loadFlags are the file-reading flags shared by every command that takes a
// dataset path.
type loadFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	maxRows    int
	sheetName  string
	sheetIndex int
}

func (lf *loadFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	f.StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	f.StringVar(&lf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	f.IntVar(&lf.maxRows, "max-rows", -1, "maximum rows to process (0 = unlimited, default from config)")
	f.StringVar(&lf.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	f.IntVar(&lf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

// options builds ingest options from the flags, taking unset limits from the
// loaded configuration.
func (lf *loadFlags) options() (ingest.Options, error) {
	opt := ingest.DefaultOptions()
	if c, err := currentConfig(); err == nil {
		opt.MaxRows = c.MaxRows
	}
	if lf.maxRows >= 0 {
		opt.MaxRows = lf.maxRows
	}
	switch lf.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", lf.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(lf.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", lf.decimal)
	}
	switch strings.ToLower(lf.thousands) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", lf.thousands)
	}
	opt.SheetName = lf.sheetName
	opt.SheetIndex = lf.sheetIndex
	return opt, nil
}

// load checks path against the configured size limit and parses it.
func (lf *loadFlags) load(path string) (*ingest.Result, error) {
	opt, err := lf.options()
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	var maxBytes int64
	if c, err := currentConfig(); err == nil {
		maxBytes = c.MaxFileSizeBytes()
	}
	if err := ingest.CheckFile(path, fi.Size(), maxBytes); err != nil {
		return nil, err
	}
	res, err := ingest.LoadFile(path, opt)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		logging.New("ingest").Warn(w, "file", path)
	}
	return res, nil
}

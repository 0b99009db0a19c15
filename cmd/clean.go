package cmd

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
	"github.com/KaramelBytes/csvscope-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	clLoad      loadFlags
	clOutput    string
	clImportant []string
	clThreshold float64
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Drop sparse columns, impute numeric nulls and write the result as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := cleanOptions(clImportant, clThreshold)
		if err != nil {
			return err
		}
		res, err := clLoad.load(args[0])
		if err != nil {
			return err
		}
		clean, cr := analysis.Clean(res.Dataset, opt)
		b, err := encodeCSV(clean)
		if err != nil {
			return err
		}
		if clOutput == "" {
			_, err := cmd.OutOrStdout().Write(b)
			return err
		}
		if err := utils.SafeWriteFile(clOutput, b); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, cleaningText(cr))
		fmt.Fprintf(out, "✓ Wrote %d rows × %d columns to %s\n", clean.NumRows(), clean.NumCols(), clOutput)
		return nil
	},
}

// cleanOptions builds cleaning options; a negative threshold takes the
// configured drop_threshold.
func cleanOptions(important []string, threshold float64) (analysis.CleanOptions, error) {
	opt := analysis.DefaultCleanOptions()
	if threshold < 0 {
		c, err := currentConfig()
		if err != nil {
			return opt, err
		}
		threshold = c.DropThreshold
	}
	if threshold > 1 {
		return opt, fmt.Errorf("--drop-threshold must be within [0,1], got %g", threshold)
	}
	opt.DropThreshold = threshold
	opt.Important = important
	return opt, nil
}

func cleaningText(cr *analysis.CleanResult) string {
	var b strings.Builder
	if len(cr.Dropped) > 0 {
		fmt.Fprintf(&b, "Dropped columns: %s\n", strings.Join(cr.Dropped, ", "))
	}
	for _, f := range cr.Filled {
		fmt.Fprintf(&b, "Filled %d nulls in %s with %s %g\n", f.Count, f.Column, f.Strategy, f.Value)
	}
	if b.Len() == 0 {
		b.WriteString("No missing values handled\n")
	}
	return b.String()
}

func encodeCSV(ds *dataset.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ds.Names()); err != nil {
		return nil, err
	}
	for i := 0; i < ds.NumRows(); i++ {
		if err := w.Write(ds.Row(i)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	clLoad.register(cleanCmd)
	cleanCmd.Flags().StringVarP(&clOutput, "output", "o", "", "path for the cleaned CSV (stdout if omitted)")
	cleanCmd.Flags().StringSliceVar(&clImportant, "important", nil, "columns never dropped (repeatable)")
	cleanCmd.Flags().Float64Var(&clThreshold, "drop-threshold", -1, "drop columns whose null ratio exceeds this (default from config)")
}

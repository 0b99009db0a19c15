package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/KaramelBytes/csvscope-cli/internal/history"
	"github.com/KaramelBytes/csvscope-cli/internal/ingest"
	"github.com/KaramelBytes/csvscope-cli/internal/logging"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
	"github.com/KaramelBytes/csvscope-cli/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	sbLoad      loadFlags
	sbFormat    string
	sbOutputDir string
	sbParallel  int
	sbRecord    bool
	sbQuiet     bool
)

// batchItem is the outcome for one input file; Err is set instead of the
// report when loading or scoring failed.
type batchItem struct {
	Path  string     `json:"path" yaml:"path"`
	Score *scoreView `json:"score,omitempty" yaml:"score,omitempty"`
	Err   string     `json:"error,omitempty" yaml:"error,omitempty"`

	res *ingest.Result
	rep *quality.Report
}

var scoreBatchCmd = &cobra.Command{
	Use:   "score-batch <files...>",
	Short: "Score many files in parallel; identical content is scored once",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(sbFormat)
		if err != nil {
			return err
		}
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		scorer := quality.NewCachedScorer(c.CacheTTL(), c.CacheMaxEntries)
		log := logging.New("score-batch")

		parallel := sbParallel
		if parallel <= 0 {
			parallel = runtime.NumCPU()
		}
		items := make([]batchItem, len(files))
		total := len(files)
		g, ctx := errgroup.WithContext(cmdContext(cmd))
		g.SetLimit(parallel)
		for i, path := range files {
			items[i].Path = path
			g.Go(func() error {
				if ctx.Err() != nil {
					items[i].Err = ctx.Err().Error()
					return nil
				}
				scoreOne(&items[i], scorer)
				log.Debug("scored", "file", path, "index", i+1, "total", total)
				return nil
			})
		}
		_ = g.Wait() // errors captured in batchItem.Err

		record, err := shouldRecord(cmd, sbRecord)
		if err != nil {
			return err
		}
		if record {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			for i := range items {
				it := &items[i]
				if it.rep == nil {
					continue
				}
				run, err := store.Record(cmdContext(cmd), history.NewRun(it.Path, it.res.Dataset, it.rep))
				if err != nil {
					return err
				}
				it.Score.RunID = run.ID
			}
		}

		if sbOutputDir != "" {
			if err := writeBatchReports(cmd, items, format); err != nil {
				return err
			}
		}

		b, err := render(format, items, func() string { return batchText(items) })
		if err != nil {
			return err
		}
		if !sbQuiet || format != formatText {
			if err := emit(cmd, "", b); err != nil {
				return err
			}
		}
		st := scorer.Stats()
		log.Info("batch complete", "files", total, "computed", st.Computes, "cache_hits", st.Hits)

		var failed int
		for _, it := range items {
			if it.Err != "" {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, total)
		}
		return nil
	},
}

func scoreOne(it *batchItem, scorer *quality.CachedScorer) {
	res, err := sbLoad.load(it.Path)
	if err != nil {
		it.Err = err.Error()
		return
	}
	rep, err := scorer.Score(res.Dataset)
	if err != nil {
		it.Err = err.Error()
		return
	}
	v := newScoreView(filepath.Base(it.Path), res.Dataset.NumRows(), res.Dataset.NumCols(), rep)
	it.Score, it.res, it.rep = &v, res, rep
}

// expandInputs resolves globs, keeps literal paths that exist, drops
// duplicates and sorts the result.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func batchText(items []batchItem) string {
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "[%d/%d] %s: ", i+1, len(items), it.Path)
		if it.Err != "" {
			fmt.Fprintf(&b, "✗ %s\n", it.Err)
			continue
		}
		fmt.Fprintf(&b, "%.1f/100 (%s)\n", it.Score.Total, it.Score.Label)
	}
	return b.String()
}

// writeBatchReports stores one report per scored file in --output-dir. Files
// sharing a base name get a __N suffix instead of overwriting each other.
func writeBatchReports(cmd *cobra.Command, items []batchItem, format string) error {
	ext := map[string]string{formatText: ".score.md", formatJSON: ".score.json", formatYAML: ".score.yaml"}[format]
	if err := os.MkdirAll(sbOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, it := range items {
		if it.rep == nil {
			continue
		}
		b, err := render(format, it.Score, it.rep.Markdown)
		if err != nil {
			return err
		}
		out, err := utils.UniquePath(sbOutputDir, utils.Stem(it.Path), ext)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(out, b); err != nil {
			return err
		}
		if !sbQuiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", out)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(scoreBatchCmd)
	sbLoad.register(scoreBatchCmd)
	scoreBatchCmd.Flags().StringVarP(&sbFormat, "format", "f", "", "output format: text|json|yaml (default from config)")
	scoreBatchCmd.Flags().StringVar(&sbOutputDir, "output-dir", "", "write one report per file into this directory")
	scoreBatchCmd.Flags().IntVar(&sbParallel, "parallel", 0, "files scored concurrently (0 = number of CPUs)")
	scoreBatchCmd.Flags().BoolVar(&sbRecord, "record", false, "record each run in the history database (default from config)")
	scoreBatchCmd.Flags().BoolVar(&sbQuiet, "quiet", false, "suppress the text summary and progress output")
}

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/csvscope-cli/internal/history"
	"github.com/KaramelBytes/csvscope-cli/internal/logging"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
	"github.com/spf13/cobra"
)

var (
	scLoad   loadFlags
	scFormat string
	scOutput string
	scRecord bool
)

// scoreView is the structured form of one scoring run.
type scoreView struct {
	File            string           `json:"file" yaml:"file"`
	Rows            int              `json:"rows" yaml:"rows"`
	Cols            int              `json:"cols" yaml:"cols"`
	Total           float64          `json:"total_score" yaml:"total_score"`
	Label           string           `json:"label" yaml:"label"`
	Factors         []quality.Factor `json:"factors" yaml:"factors"`
	Recommendations []string         `json:"recommendations" yaml:"recommendations"`
	RunID           string           `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

func newScoreView(file string, rows, cols int, rep *quality.Report) scoreView {
	recs := rep.Recommendations()
	if recs == nil {
		recs = []string{}
	}
	return scoreView{
		File:            file,
		Rows:            rows,
		Cols:            cols,
		Total:           rep.Total,
		Label:           rep.Label(),
		Factors:         rep.Factors,
		Recommendations: recs,
	}
}

var scoreCmd = &cobra.Command{
	Use:   "score <file>",
	Short: "Rate the quality of a dataset on a 0-100 scale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(scFormat)
		if err != nil {
			return err
		}
		path := args[0]
		res, err := scLoad.load(path)
		if err != nil {
			return err
		}
		rep, err := quality.Score(res.Dataset)
		if err != nil {
			return err
		}
		ds := res.Dataset
		view := newScoreView(filepath.Base(path), ds.NumRows(), ds.NumCols(), rep)
		logging.New("score").Debug("scored", "file", view.File, "total", rep.Total)

		if record, err := shouldRecord(cmd, scRecord); err != nil {
			return err
		} else if record {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			run, err := store.Record(cmdContext(cmd), history.NewRun(path, ds, rep))
			if err != nil {
				return err
			}
			view.RunID = run.ID
		}

		b, err := render(format, view, func() string {
			text := fmt.Sprintf("File: %s (%d rows × %d columns)\n\n%s", view.File, view.Rows, view.Cols, rep.Markdown())
			if view.RunID != "" {
				text += fmt.Sprintf("\nRecorded run %s\n", view.RunID)
			}
			return text
		})
		if err != nil {
			return err
		}
		return emit(cmd, scOutput, b)
	},
}

// shouldRecord applies --record over the history_enabled setting.
func shouldRecord(cmd *cobra.Command, flag bool) (bool, error) {
	if cmd.Flags().Changed("record") {
		return flag, nil
	}
	c, err := currentConfig()
	if err != nil {
		return false, err
	}
	return c.HistoryEnabled, nil
}

func openHistory() (*history.Store, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(c.HistoryDB)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scLoad.register(scoreCmd)
	scoreCmd.Flags().StringVarP(&scFormat, "format", "f", "", "output format: text|json|yaml (default from config)")
	scoreCmd.Flags().StringVarP(&scOutput, "output", "o", "", "optional path to write the report")
	scoreCmd.Flags().BoolVar(&scRecord, "record", false, "record the run in the history database (default from config)")
}

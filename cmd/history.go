package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/csvscope-cli/internal/history"
	"github.com/spf13/cobra"
)

var (
	hiLimit  int
	hiFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded scoring runs, newest first, or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(hiFormat)
		if err != nil {
			return err
		}
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		var runs []history.Run
		if len(args) == 1 {
			r, err := store.Get(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}
			runs = []history.Run{r}
		} else if runs, err = store.List(cmdContext(cmd), hiLimit); err != nil {
			return err
		}
		b, err := render(format, runs, func() string { return runsText(runs) })
		if err != nil {
			return err
		}
		return emit(cmd, "", b)
	},
}

func runsText(runs []history.Run) string {
	if len(runs) == 0 {
		return "No runs recorded\n"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tSOURCE\tSHAPE\tSCORE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d×%d\t%.1f (%s)\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Source, r.Rows, r.Cols, r.Score, r.Label)
	}
	_ = tw.Flush()
	return b.String()
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&hiLimit, "limit", "n", history.DefaultLimit, "maximum runs to list")
	historyCmd.Flags().StringVarP(&hiFormat, "format", "f", "", "output format: text|json|yaml (default from config)")
}

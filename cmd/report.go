package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/KaramelBytes/csvscope-cli/internal/charts"
	"github.com/KaramelBytes/csvscope-cli/internal/export"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
	"github.com/KaramelBytes/csvscope-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	rpLoad   loadFlags
	rpOutput string
	rpCharts []string
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Render a PDF dashboard: summary, quality score, statistics, correlations and charts",
	Long: `Render a PDF dashboard for a dataset. Charts are added with --chart
kind:column[:second], e.g. --chart histogram:price --chart correlation:price:qty.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reqs := make([]charts.Request, 0, len(rpCharts))
		for _, s := range rpCharts {
			req, err := charts.ParseRequest(s)
			if err != nil {
				return err
			}
			reqs = append(reqs, req)
		}
		res, err := rpLoad.load(args[0])
		if err != nil {
			return err
		}
		rep, err := quality.Score(res.Dataset)
		if err != nil {
			return err
		}
		opt, err := cleanOptions(nil, -1)
		if err != nil {
			return err
		}
		clean, cr := analysis.Clean(res.Dataset, opt)

		d := export.Dashboard{
			Source:      args[0],
			Rows:        clean.NumRows(),
			Cols:        clean.NumCols(),
			Quality:     rep,
			Cleaning:    cr,
			Summary:     analysis.Summarize(clean),
			Correlation: analysis.Correlation(clean),
			Generated:   time.Now(),
		}
		for _, req := range reqs {
			c, err := charts.Build(clean, req)
			if err != nil {
				return fmt.Errorf("chart %s: %w", req, err)
			}
			d.Charts = append(d.Charts, c)
		}
		var buf bytes.Buffer
		if err := export.WriteDashboard(&buf, d); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(rpOutput, buf.Bytes()); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s (score %.1f/100, %s)\n", rpOutput, rep.Total, rep.Label())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	rpLoad.register(reportCmd)
	reportCmd.Flags().StringVarP(&rpOutput, "output", "o", "dashboard_summary.pdf", "path for the PDF report")
	reportCmd.Flags().StringArrayVar(&rpCharts, "chart", nil, "chart to include as kind:column[:second] (repeatable)")
}

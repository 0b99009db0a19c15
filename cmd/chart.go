package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/KaramelBytes/csvscope-cli/internal/charts"
	"github.com/spf13/cobra"
)

var (
	chLoad   loadFlags
	chKind   string
	chColumn string
	chSecond string
	chRaw    bool
	chFormat string
	chOutput string
)

var chartCmd = &cobra.Command{
	Use:   "chart <file>",
	Short: "Compute the data behind one chart (bar, pie, histogram, box, ...)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(chFormat)
		if err != nil {
			return err
		}
		kind, err := charts.ParseKind(chKind)
		if err != nil {
			return err
		}
		if chColumn == "" {
			return fmt.Errorf("--column is required")
		}
		res, err := chLoad.load(args[0])
		if err != nil {
			return err
		}
		ds := res.Dataset
		if !chRaw {
			opt, err := cleanOptions(nil, -1)
			if err != nil {
				return err
			}
			ds, _ = analysis.Clean(ds, opt)
		}
		c, err := charts.Build(ds, charts.Request{Kind: kind, Column: chColumn, Second: chSecond})
		if err != nil {
			return err
		}
		b, err := render(format, c, func() string { return chartText(c) })
		if err != nil {
			return err
		}
		return emit(cmd, chOutput, b)
	},
}

func chartText(c *charts.Chart) string {
	var b strings.Builder
	b.WriteString(c.Title)
	b.WriteString("\n\n")
	header, rows := c.Table()
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
	return b.String()
}

func kindNames() string {
	var names []string
	for _, k := range charts.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, "|")
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chLoad.register(chartCmd)
	chartCmd.Flags().StringVarP(&chKind, "kind", "k", "bar", "chart kind: "+kindNames())
	chartCmd.Flags().StringVarP(&chColumn, "column", "c", "", "column to plot")
	chartCmd.Flags().StringVar(&chSecond, "second", "", "second numeric column (scatter, correlation)")
	chartCmd.Flags().BoolVar(&chRaw, "raw", false, "skip missing-value handling")
	chartCmd.Flags().StringVarP(&chFormat, "format", "f", "", "output format: text|json|yaml (default from config)")
	chartCmd.Flags().StringVarP(&chOutput, "output", "o", "", "optional path to write the result")
}

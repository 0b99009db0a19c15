package cmd

import (
	"errors"
	"time"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	inLoad     loadFlags
	inSections []string
	inSeed     int64
	inRaw      bool
	inFormat   string
	inOutput   string
)

var insightsCmd = &cobra.Command{
	Use:   "insights <file>",
	Short: "Print quick exploratory sections (shape, sample, info, describe, ...)",
	Long: `Print quick exploratory sections for a dataset. Sections are selected with
--section (repeatable or comma-separated): shape, sample, info, describe,
null_counts, numeric_columns, categorical_columns, or all. Missing values are
handled first unless --raw is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(inFormat)
		if err != nil {
			return err
		}
		want, err := analysis.ParseSections(inSections)
		if err != nil {
			return err
		}
		if want == 0 {
			return errors.New("no sections selected (use --section)")
		}
		res, err := inLoad.load(args[0])
		if err != nil {
			return err
		}
		ds := res.Dataset
		if !inRaw {
			opt, err := cleanOptions(nil, -1)
			if err != nil {
				return err
			}
			ds, _ = analysis.Clean(ds, opt)
		}
		seed := inSeed
		if !cmd.Flags().Changed("seed") {
			seed = time.Now().UnixNano()
		}
		in := analysis.ComputeInsights(ds, want, seed)
		b, err := render(format, in, in.Markdown)
		if err != nil {
			return err
		}
		return emit(cmd, inOutput, b)
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
	inLoad.register(insightsCmd)
	insightsCmd.Flags().StringSliceVarP(&inSections, "section", "s", []string{"all"}, "sections to show (repeatable)")
	insightsCmd.Flags().Int64Var(&inSeed, "seed", 0, "seed for the random sample (random if omitted)")
	insightsCmd.Flags().BoolVar(&inRaw, "raw", false, "skip missing-value handling")
	insightsCmd.Flags().StringVarP(&inFormat, "format", "f", "", "output format: text|json|yaml (default from config)")
	insightsCmd.Flags().StringVarP(&inOutput, "output", "o", "", "optional path to write the result")
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/crosstab-cli/internal/analysis"
	"github.com/KaramelBytes/crosstab-cli/internal/core"
	"github.com/KaramelBytes/crosstab-cli/internal/export"
	"github.com/KaramelBytes/crosstab-cli/internal/pipeline"
	"github.com/KaramelBytes/crosstab-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	csqMode        string
	csqOutputPath  string
	csqSummaryPath string
	csqFormat      string
	csqDefaultName bool
)

var chisqCmd = &cobra.Command{
	Use:   "chisq <response.csv|.xlsx>",
	Short: "Chi-square test every question of an aggregated response table",
	Long: `Reads an aggregated response table (QID, questions, choices, total and one column
per attribute group), runs a chi-square test of independence per question and writes
the table back with p-value and significance-mark columns.

Marks: *** p<=0.01, ** p<=0.05, * p<=0.10.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		mode, err := pipeline.ParseMode(csqMode)
		if err != nil {
			return err
		}
		format := strings.ToLower(strings.TrimSpace(csqFormat))
		switch format {
		case "csv", "md", "html", "json":
		default:
			return core.NewConfigError("unsupported --format: %s (use csv|md|html|json)", csqFormat)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		p, err := newPipeline()
		if err != nil {
			return err
		}
		res, err := p.Run(pipeline.Input{
			Responses: &pipeline.Source{Name: filepath.Base(path), Data: data},
			Mode:      mode,
		})
		if err != nil {
			return err
		}
		cs := res.ChiSquare
		rep := cs.Report
		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "比較属性: %s\n", strings.Join(rep.Attributes, ", "))
		for _, w := range rep.Warnings {
			fmt.Fprintf(stderr, "⚠ Warning: %s\n", w)
		}

		s := p.Settings()
		annotated := cs.Annotated()
		var body []byte
		switch format {
		case "csv":
			body, err = export.CSV(annotated)
		case "md":
			body = []byte(rep.Markdown(s.Columns()) + "\n" + export.TableMarkdown(annotated))
		case "html":
			md := rep.Markdown(s.Columns()) + "\n" + export.TableMarkdown(annotated)
			body = export.HTML(md, rep.Name)
		case "json":
			body, err = utils.PrettyJSON(export.NewChiSquareJSON(res.RunID, string(cs.Mode), rep, cs.Summary, annotated, s.Untestable))
		}
		if err != nil {
			return err
		}

		out := csqOutputPath
		if out == "" && csqDefaultName {
			out = export.ResultsFileName(res.Started)
		}
		// status lines go to stderr while stdout carries the table
		status := cmd.OutOrStdout()
		if out == "" {
			status = stderr
			if _, err := cmd.OutOrStdout().Write(body); err != nil {
				return err
			}
		} else {
			if err := utils.SafeWriteFile(out, body); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(status, "✓ Wrote annotated table to %s\n", out)
		}

		if cs.Summary != nil && (csqSummaryPath != "" || out != "") {
			sp := csqSummaryPath
			if sp == "" {
				sp = filepath.Join(filepath.Dir(out), export.SummaryFileName(res.Started))
			}
			b, err := export.CSV(cs.Summary)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(sp, b); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			fmt.Fprintf(status, "✓ Wrote summary to %s\n", sp)
		}
		if cs.Summary != nil && csqSummaryPath == "" && out == "" {
			fmt.Fprintln(stderr, "⚠ Warning: summary table not written; pass --summary <path> or --output to save it")
		}
		fmt.Fprintf(status, "✓ Tested %d questions (%d untestable)\n", len(rep.Questions), rep.Count(analysis.Untestable))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chisqCmd)
	chisqCmd.Flags().StringVar(&csqMode, "mode", "flat", "annotation mode: flat (every row) | sparse (summary + one row per question)")
	chisqCmd.Flags().StringVarP(&csqOutputPath, "output", "o", "", "path to write the annotated table (stdout if omitted)")
	chisqCmd.Flags().StringVar(&csqSummaryPath, "summary", "", "sparse mode: path to write the summary table (default next to --output)")
	chisqCmd.Flags().StringVar(&csqFormat, "format", "csv", "output format: csv|md|html|json")
	chisqCmd.Flags().BoolVar(&csqDefaultName, "default-name", false, "write to cross_tab_results_<date>.csv when --output is omitted")
}

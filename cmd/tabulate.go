package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/crosstab-cli/internal/core"
	"github.com/KaramelBytes/crosstab-cli/internal/crosstab"
	"github.com/KaramelBytes/crosstab-cli/internal/export"
	"github.com/KaramelBytes/crosstab-cli/internal/pipeline"
	"github.com/KaramelBytes/crosstab-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	tabDefsPath    string
	tabRowQID      string
	tabColQID      string
	tabOutputPath  string
	tabFormat      string
	tabOrder       string
	tabDefaultName bool
)

var tabulateCmd = &cobra.Command{
	Use:   "tabulate <raw.csv|.xlsx>",
	Short: "Cross-tabulate two questions of a raw response table",
	Long: `Maps the answer codes of two question columns to their labels using a question-definition
document and builds a frequency table (with totals) and a row-percentage table.

With --output (or --default-name) the two tables are written as the sheets "度数表" and
"構成比" of an .xlsx workbook.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if tabDefsPath == "" {
			return core.NewConfigError("--defs is required")
		}
		if tabRowQID == "" || tabColQID == "" {
			return core.NewConfigError("--row and --col are required")
		}
		format := strings.ToLower(strings.TrimSpace(tabFormat))
		switch format {
		case "", "xlsx", "md", "html", "json":
		default:
			return core.NewConfigError("unsupported --format: %s (use xlsx|md|html|json)", tabFormat)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		defs, err := os.ReadFile(tabDefsPath)
		if err != nil {
			return fmt.Errorf("read definitions: %w", err)
		}

		s, err := settings(currentConfig())
		if err != nil {
			return err
		}
		if tabOrder != "" {
			o, err := crosstab.ParseOrder(tabOrder)
			if err != nil {
				return err
			}
			s.Order = o
		}
		res, err := pipeline.New(s, logger).Run(pipeline.Input{
			Raw:         &pipeline.Source{Name: filepath.Base(path), Data: data},
			Definitions: &pipeline.Source{Name: filepath.Base(tabDefsPath), Data: defs},
			RowQID:      tabRowQID,
			ColQID:      tabColQID,
		})
		if err != nil {
			return err
		}
		tab := res.Crosstab

		out := tabOutputPath
		if out == "" && tabDefaultName {
			out = export.WorkbookFileName(tabRowQID, tabColQID)
		}
		if format == "" {
			format = "md"
			if out != "" {
				format = "xlsx"
			}
		}

		var body []byte
		switch format {
		case "xlsx":
			if out == "" {
				return core.NewConfigError("--format xlsx needs --output or --default-name")
			}
			body, err = export.WorkbookBytes(tab)
		case "md":
			body = []byte(export.CrosstabMarkdown(tab))
		case "html":
			body = export.HTML(export.CrosstabMarkdown(tab), "分析結果: "+tab.ColTitle)
		case "json":
			body, err = utils.PrettyJSON(export.NewCrosstabJSON(tab, res.RunID))
		}
		if err != nil {
			return err
		}

		if out == "" {
			_, err := cmd.OutOrStdout().Write(body)
			return err
		}
		if err := utils.SafeWriteFile(out, body); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s x %s (N=%d) to %s\n", tab.RowQID, tab.ColQID, tab.N, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tabulateCmd)
	tabulateCmd.Flags().StringVar(&tabDefsPath, "defs", "", "question-definition document (Markdown with yaml blocks)")
	tabulateCmd.Flags().StringVar(&tabRowQID, "row", "", "question ID for the table rows")
	tabulateCmd.Flags().StringVar(&tabColQID, "col", "", "question ID for the table columns")
	tabulateCmd.Flags().StringVarP(&tabOutputPath, "output", "o", "", "path to write the result (xlsx workbook by default)")
	tabulateCmd.Flags().StringVar(&tabFormat, "format", "", "output format: xlsx|md|html|json (default md on stdout, xlsx with --output)")
	tabulateCmd.Flags().StringVar(&tabOrder, "order", "", "label order: lexical|appearance|definition (overrides config)")
	tabulateCmd.Flags().BoolVar(&tabDefaultName, "default-name", false, "write to crosstab_<row>_<col>.xlsx when --output is omitted")
}

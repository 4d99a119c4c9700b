package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/crosstab-cli/internal/core"
	"github.com/KaramelBytes/crosstab-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	qsDefsPath string
	qsDataPath string
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List the questions that can be cross-tabulated",
	Long: `Parses a question-definition document and lists its question IDs with their titles.
With --data only questions that are also columns of the raw response table are listed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if qsDefsPath == "" {
			return core.NewConfigError("--defs is required")
		}
		defs, err := os.ReadFile(qsDefsPath)
		if err != nil {
			return fmt.Errorf("read definitions: %w", err)
		}
		in := pipeline.Input{Definitions: &pipeline.Source{Name: filepath.Base(qsDefsPath), Data: defs}}
		if qsDataPath != "" {
			data, err := os.ReadFile(qsDataPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			in.Raw = &pipeline.Source{Name: filepath.Base(qsDataPath), Data: data}
		}
		p, err := newPipeline()
		if err != nil {
			return err
		}
		res, err := p.Run(in)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(res.Options) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: no selectable questions found")
			return nil
		}
		for _, o := range res.Options {
			fmt.Fprintln(out, o.Label)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)
	questionsCmd.Flags().StringVar(&qsDefsPath, "defs", "", "question-definition document")
	questionsCmd.Flags().StringVar(&qsDataPath, "data", "", "raw response table to filter against (optional)")
}

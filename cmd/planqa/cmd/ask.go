package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/planqa/internal/answer"
	"github.com/Aman-CERP/planqa/internal/output"
)

func newAskCmd(flags *rootFlags) *cobra.Command {
	var level, format string

	cmd := &cobra.Command{
		Use:   "ask <document> <question>",
		Short: "Ask one question about a document",
		Long: `Answer a question from a document's most relevant excerpts.

The answer cites the pages it draws on and carries a confidence grade.
The question and answer are appended to the document's conversation,
so 'planqa chat' picks up where 'ask' left off.`,
		Example: `  planqa ask gold-plan.pdf "What is my deductible?"
  planqa ask gold-plan.pdf "Do I need a referral?" --level beginner
  planqa ask 3f2a... "Is physical therapy covered?" --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			lvl, err := answer.ParseLevel(level)
			if err != nil {
				return err
			}

			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			doc, err := a.resolveDocument(ctx, args[0])
			if err != nil {
				return err
			}
			ans, err := a.assistant.Ask(ctx, doc.ID, strings.Join(args[1:], " "), lvl)
			if err != nil {
				return err
			}
			return output.New(cmd.OutOrStdout()).WithFormat(f).Answer(ans)
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", "intermediate", "Explanation level: beginner, intermediate, advanced")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func newSummaryCmd(flags *rootFlags) *cobra.Command {
	var level, format string

	cmd := &cobra.Command{
		Use:   "summary <document>",
		Short: "Summarize a plan's key costs and coverage",
		Long: `Summarize a plan document: deductible, out-of-pocket maximum, copays,
coinsurance, and notable coverage or exclusions.`,
		Example: `  planqa summary gold-plan.pdf
  planqa summary gold-plan.pdf --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			lvl, err := answer.ParseLevel(level)
			if err != nil {
				return err
			}

			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			doc, err := a.resolveDocument(ctx, args[0])
			if err != nil {
				return err
			}
			summary, err := a.assistant.Summarize(ctx, doc.ID, lvl)
			if err != nil {
				return err
			}
			return output.New(cmd.OutOrStdout()).WithFormat(f).Summary(summary)
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", "intermediate", "Explanation level: beginner, intermediate, advanced")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

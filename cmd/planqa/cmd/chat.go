package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/planqa/internal/answer"
	"github.com/Aman-CERP/planqa/internal/ui"
)

func newChatCmd(flags *rootFlags) *cobra.Command {
	var (
		level   string
		plain   bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "chat <document>",
		Short: "Chat about a document",
		Long: `Hold a conversation about a document. The latest conversation is
resumed, and every turn is saved.

In a terminal this opens a full-screen chat; with piped input (or --plain)
each input line is one question.

Commands inside the chat:
  /level beginner|intermediate|advanced   change explanation level
  /help                                   show commands
  /quit                                   leave`,
		Example: `  planqa chat gold-plan.pdf
  printf 'What is my deductible?\n' | planqa chat gold-plan.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			conv, err := a.assistant.Conversation(ctx, doc.ID)
			if err != nil {
				return err
			}

			opts := ui.ChatOptions{
				DocumentID: doc.ID,
				Title:      doc.Filename,
				Level:      lvl,
				History:    conv.Messages,
				NoColor:    noColor || ui.DetectNoColor(),
			}
			in, out := cmd.InOrStdin(), cmd.OutOrStdout()
			if !plain && in == os.Stdin && ui.IsInteractive(in, out) {
				return ui.RunChat(ctx, a.assistant, opts)
			}
			return ui.RunREPL(ctx, in, out, a.assistant, opts)
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", "intermediate", "Explanation level: beginner, intermediate, advanced")
	cmd.Flags().BoolVar(&plain, "plain", false, "Line-based chat instead of the full-screen UI")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")

	return cmd
}

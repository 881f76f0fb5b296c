package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/planqa/internal/answer"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
)

// RunREPL runs a line-oriented chat over in and out, for pipes and
// terminals where the full-screen chat is unavailable. It returns when in
// is exhausted, the user quits, or ctx is canceled.
func RunREPL(ctx context.Context, in io.Reader, out io.Writer, asker Asker, opts ChatOptions) error {
	styles := GetStyles(opts.NoColor)
	level := opts.Level
	if level == "" {
		level = answer.LevelIntermediate
	}

	title := opts.Title
	if title == "" {
		title = opts.DocumentID
	}
	_, _ = fmt.Fprintf(out, "%s (level %s)\n", styles.Header.Render("Chatting about "+title), level)
	if n := len(opts.History); n > 0 {
		_, _ = fmt.Fprintf(out, "Resuming conversation with %d earlier messages.\n", n)
	}
	_, _ = fmt.Fprintln(out, styles.Dim.Render(chatHelp))

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if c, ok := parseChatCommand(line); ok {
			switch c.name {
			case "quit", "exit":
				return nil
			case "level":
				l, err := answer.ParseLevel(c.arg)
				if err != nil || c.arg == "" {
					_, _ = fmt.Fprintln(out, styles.Warning.Render("Level must be beginner, intermediate, or advanced"))
					continue
				}
				level = l
				_, _ = fmt.Fprintf(out, "Level set to %s\n", level)
			default:
				_, _ = fmt.Fprintln(out, chatHelp)
			}
			continue
		}

		ans, err := asker.Ask(ctx, opts.DocumentID, line, level)
		if err != nil {
			_, _ = fmt.Fprint(out, styles.Error.Render(planerrors.FormatForCLI(err)))
			continue
		}
		writeAnswer(out, styles, ans)
	}
}

func writeAnswer(out io.Writer, styles Styles, ans *answer.Answer) {
	_, _ = fmt.Fprintln(out, ans.Text)
	for _, c := range ans.Citations {
		_, _ = fmt.Fprintln(out, styles.Citation.Render(fmt.Sprintf("  Page %d: %s", c.PageNumber, c.Snippet)))
	}
	_, _ = fmt.Fprintln(out, styles.Dim.Render("  Confidence: "+string(ans.Confidence)))
	_, _ = fmt.Fprintln(out)
}

package cmd

import (
	"github.com/spf13/cobra"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/output"
)

func newListCmd(flags *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List ingested documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			docs, err := a.store.ListDocuments(cmd.Context())
			if err != nil {
				return planerrors.New(planerrors.ErrCodeStorageFailed, "failed to list documents", err)
			}
			return output.New(cmd.OutOrStdout()).WithFormat(f).Documents(docs)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <document>",
		Aliases: []string{"rm"},
		Short:   "Delete a document with its chunks and conversations",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := a.indexer.Delete(ctx, doc.ID); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Deleted %s (%s)", doc.Filename, doc.ID)
			return nil
		},
	}
}

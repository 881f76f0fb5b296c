// Package cmd provides the CLI commands for planqa.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/planqa/internal/logging"
	"github.com/Aman-CERP/planqa/internal/profiling"
	"github.com/Aman-CERP/planqa/pkg/version"
)

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	debug      bool
	configDir  string
	profile    profiling.Options
	logCleanup func()
	profiler   *profiling.Session
}

// NewRootCmd creates the root command for the planqa CLI.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "planqa",
		Short: "Ask questions about your health insurance plan documents",
		Long: `planqa ingests insurance plan documents (PDF, DOCX, text) into a local
SQLite store and answers questions about them with page citations.

Retrieval is hybrid: cosine similarity over embeddings is fused with
phrase, token and document-frequency keyword signals.

Get started:
  planqa ingest gold-plan.pdf
  planqa ask gold-plan.pdf "What is my deductible?"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return flags.start()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return flags.stop()
		},
	}

	cmd.SetVersionTemplate("planqa version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging (mirrored to stderr)")
	cmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "Directory holding .planqa.yaml (default: current directory)")
	cmd.PersistentFlags().StringVar(&flags.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&flags.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&flags.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newIngestCmd(flags))
	cmd.AddCommand(newListCmd(flags))
	cmd.AddCommand(newDeleteCmd(flags))
	cmd.AddCommand(newSearchCmd(flags))
	cmd.AddCommand(newAskCmd(flags))
	cmd.AddCommand(newChatCmd(flags))
	cmd.AddCommand(newSummaryCmd(flags))
	cmd.AddCommand(newWatchCmd(flags))
	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	cmd.AddCommand(newDoctorCmd(flags))
	cmd.AddCommand(newConfigCmd(flags))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// start installs file logging and begins any requested profiles.
func (f *rootFlags) start() error {
	cfg := logging.DefaultConfig()
	if f.debug {
		cfg = logging.DebugConfig()
	}
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	f.logCleanup = cleanup
	slog.Debug("debug_logging_enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Short()))

	if f.profile.Enabled() {
		s, err := profiling.Start(f.profile)
		if err != nil {
			return err
		}
		f.profiler = s
	}
	return nil
}

// stop flushes profiles and closes the log file.
func (f *rootFlags) stop() error {
	var err error
	if f.profiler != nil {
		err = f.profiler.Stop()
		f.profiler = nil
	}
	if f.logCleanup != nil {
		f.logCleanup()
		f.logCleanup = nil
	}
	return err
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

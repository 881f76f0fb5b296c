package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/planqa/configs"
	"github.com/Aman-CERP/planqa/internal/config"
	"github.com/Aman-CERP/planqa/internal/output"
)

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage planqa configuration files.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/planqa/config.yaml)
  3. Project config (.planqa.yaml in the working directory)
  4. Environment variables (PLANQA_*), also read from a .env file`,
		Example: `  # Create the user config with defaults
  planqa config init

  # Create .planqa.yaml in the current directory
  planqa config init --project

  # Show the effective configuration
  planqa config show`,
	}

	cmd.AddCommand(newConfigInitCmd(flags))
	cmd.AddCommand(newConfigShowCmd(flags))
	cmd.AddCommand(newConfigPathCmd(flags))

	return cmd
}

func newConfigInitCmd(flags *rootFlags) *cobra.Command {
	var force, project bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration file",
		Long: `Write a commented configuration template holding the defaults. The user
file covers backends and storage; --project writes the retrieval settings.

An existing file is left alone unless --force is given, in which case it
is backed up next to itself before being overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.GetUserConfigPath()
			if project {
				dir, err := configDir(flags)
				if err != nil {
					return err
				}
				path = filepath.Join(dir, config.ProjectFile)
			}
			return runConfigInit(cmd, path, configTemplate(project), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&project, "project", false, "Write .planqa.yaml in the config directory instead of the user config")

	return cmd
}

func configTemplate(project bool) string {
	if project {
		return configs.ProjectConfigTemplate
	}
	return configs.UserConfigTemplate
}

func runConfigInit(cmd *cobra.Command, path, content string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Status("💡", "Use --force to overwrite it (a backup is kept)")
			return nil
		}
		backup, err := config.Backup(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("💾", "Backup: %s", backup)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)
	out.Status("💡", "Run 'planqa config show' to verify")
	return nil
}

func newConfigShowCmd(flags *rootFlags) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show configuration",
		Long: `Show the effective configuration after merging all sources, or one
source on its own laid over the defaults.`,
		Example: `  planqa config show
  planqa config show --json
  planqa config show --source user`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, flags, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func runConfigShow(cmd *cobra.Command, flags *rootFlags, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var (
		cfg  *config.Config
		path string
		err  error
	)
	switch source {
	case "merged":
		cfg, err = loadConfig(flags)
		if err != nil {
			return err
		}
	case "defaults":
		cfg = config.NewConfig()
	case "user":
		path = config.GetUserConfigPath()
		if !config.UserConfigExists() {
			out.Warning("No user configuration file found")
			out.Statusf("📁", "Expected at: %s", path)
			out.Status("💡", "Run 'planqa config init' to create one")
			return nil
		}
	case "project":
		dir, err := configDir(flags)
		if err != nil {
			return err
		}
		path = config.ProjectConfigPath(dir)
		if path == "" {
			out.Warning("No project configuration file found")
			out.Status("💡", "Run 'planqa config init --project' to create one")
			return nil
		}
	default:
		return fmt.Errorf("unknown source %q (want merged, user, project, defaults)", source)
	}

	if cfg == nil {
		cfg = config.NewConfig()
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newConfigPathCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := configDir(flags)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "user:     %s\n", config.GetUserConfigPath())
			_, _ = fmt.Fprintf(w, "project:  %s\n", filepath.Join(dir, config.ProjectFile))
			if cfg, err := loadConfig(flags); err == nil {
				_, _ = fmt.Fprintf(w, "database: %s\n", cfg.DatabasePath())
			}
			return nil
		},
	}
}

// configDir returns --config-dir or the working directory.
func configDir(flags *rootFlags) (string, error) {
	if flags.configDir != "" {
		return flags.configDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return wd, nil
}

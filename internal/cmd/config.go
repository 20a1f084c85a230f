package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/security-union/codemuse/internal/config"
	muserr "github.com/security-union/codemuse/internal/errors"
	"github.com/security-union/codemuse/internal/ux"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or create codemuse configuration",
		Long: `Manage the codemuse configuration stored at ~/.codemuse/config.yaml

Values are resolved in this order, first match wins:
  • command-line flags
  • environment variables (OPENAI_API_KEY, OLLAMA_HOST, CODEMUSE_MODEL, ...)
  • a .env file in the working directory
  • the config file
  • built-in defaults`,
		Example: `  # Show the effective configuration with secrets masked
  codemuse config view

  # Read a single value
  codemuse config get ollama.host

  # Write a starter config file
  codemuse config init`,
	}

	configCmd.AddCommand(newConfigViewCommand(opts))
	configCmd.AddCommand(newConfigGetCommand(opts))
	configCmd.AddCommand(newConfigPathCommand(opts))
	configCmd.AddCommand(newConfigInitCommand(opts))

	return configCmd
}

func newConfigViewCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Display the effective configuration",
		Long:  `Display the configuration codemuse would run with, after the file, .env and environment are merged. API keys are masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()
			out := cmd.OutOrStdout()

			if format == "json" || format == "yaml" {
				formatter, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: out})
				if err != nil {
					return err
				}
				return formatter.Format(redacted)
			}
			if format != "text" {
				return muserr.NewConfigInvalidError(fmt.Sprintf("unknown format %q", format))
			}

			path, err := configFilePath(opts)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(redacted)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = fmt.Fprintf(out, "Configuration file: %s\n\n%s", path, data)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	return cmd
}

func newConfigGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific configuration value",
		Long:  `Print one value of the effective configuration using dot notation (e.g. ollama.host).`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			value, err := lookupKey(cfg.Redacted(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}
}

func newConfigPathCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

func newConfigInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  `Write the built-in defaults to the configuration file. An existing file is left untouched.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(opts)
			if err != nil {
				return err
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return err
		},
	}
}

func configFilePath(opts *rootOptions) (string, error) {
	if opts.configPath != "" {
		return opts.configPath, nil
	}
	return config.UserConfigPath("")
}

// lookupKey resolves a dotted key against the YAML form of cfg
func lookupKey(cfg config.Config, key string) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return "", fmt.Errorf("failed to parse config: %w", err)
	}

	var node any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", muserr.NewConfigInvalidError(fmt.Sprintf("unknown configuration key: %s", key))
		}
		if node, ok = m[part]; !ok {
			return "", muserr.NewConfigInvalidError(fmt.Sprintf("unknown configuration key: %s", key))
		}
	}

	if _, ok := node.(map[string]any); ok {
		out, err := yaml.Marshal(node)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(out), "\n"), nil
	}
	if node == nil {
		return "", nil
	}
	return fmt.Sprint(node), nil
}

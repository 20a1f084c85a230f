package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/security-union/codemuse/internal/config"
)

// rootOptions holds the values of the root command flags
type rootOptions struct {
	configPath string

	description string
	name        string
	language    string
	variant     string
	backend     string
	model       string
	maxTokens   int
	targetOS    string
	shell       string
	output      string
	manifestDir string
	metricsFile string
	dryRun      bool
	tui         bool
	noColor     bool

	logLevel  string
	logFormat string
	logFile   string
}

// NewRootCommand builds the codemuse command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "codemuse",
		Short: "Generate a project scaffold from a plain-language description",
		Long: `codemuse asks a language model for a plan to set up the project you
describe, then walks you through it one step at a time. Nothing runs until
you approve it, and you can correct or skip any step.

Generated files are only written over files that already exist under
./<name>; anything else is printed for you to place by hand.`,
		Example: `  # Scaffold a Rust CLI step by step
  codemuse --description "a CLI that reverses its input" --name revtool

  # Ask a local model for a single setup script
  codemuse --backend ollama --variant script --description "a todo web app" --language go

  # Preview the plan without running anything
  codemuse --description "a URL shortener" --dry-run --output yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.codemuse/config.yaml)")

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.description, "description", "d", "", "what the application should do")
	flags.StringVarP(&opts.name, "name", "n", "myapp", "project name; the project lives in ./<name>")
	flags.StringVarP(&opts.language, "language", "l", config.DefaultLanguage, "programming language of the project")
	flags.StringVar(&opts.variant, "variant", config.DefaultVariant, "plan shape: steps, script or bundle")
	flags.StringVar(&opts.backend, "backend", config.DefaultBackend, "generation backend: openai or ollama")
	flags.StringVar(&opts.model, "model", "", "model name (default depends on the backend)")
	flags.IntVar(&opts.maxTokens, "max-tokens", config.DefaultMaxTokens, "maximum tokens in the response")
	flags.StringVar(&opts.targetOS, "os", "", "operating system named in the prompt (script plans default to this machine)")
	flags.StringVar(&opts.shell, "shell", config.DefaultShell, "shell that runs approved steps")
	flags.StringVarP(&opts.output, "output", "o", config.DefaultOutput, "dry-run preview format: text, json or yaml")
	flags.StringVar(&opts.manifestDir, "manifest", "", "write a JSON record of the run to this directory")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics of the run to this file")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the generated plan and stop")
	flags.BoolVar(&opts.tui, "tui", false, "use interactive form prompts when a terminal is attached")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to a rotating file instead of stderr")

	_ = rootCmd.MarkFlagRequired("description")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newConfigCommand(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// ExecuteContext runs the root command with ctx, which cancels a running
// generation or step when it is done.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

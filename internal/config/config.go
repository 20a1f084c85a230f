// Package config resolves the settings of one codemuse run.
//
// Resolution order (highest to lowest precedence):
//  1. Explicit command-line flags
//  2. Process environment, then a .env file in the working directory
//  3. YAML config file (--config, else ~/.codemuse/config.yaml)
//  4. Built-in defaults
package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	muserr "github.com/security-union/codemuse/internal/errors"
	"github.com/security-union/codemuse/internal/log"
	"github.com/security-union/codemuse/internal/plan"
	"github.com/security-union/codemuse/internal/provider"
	"github.com/security-union/codemuse/internal/telemetry"
)

// Defaults
const (
	DefaultBackend    = provider.BackendOpenAI
	DefaultVariant    = "steps"
	DefaultLanguage   = "rust"
	DefaultShell      = "bash"
	DefaultMaxTokens  = 2048
	DefaultOutput     = "text"
	DefaultOllamaHost = "http://127.0.0.1:11434"
)

// OutputFormats are the accepted plan preview formats
var OutputFormats = []string{"text", "json", "yaml"}

// Config holds every setting of a run except the project itself
type Config struct {
	Backend   string `json:"backend" yaml:"backend"`
	Model     string `json:"model" yaml:"model"`
	MaxTokens int    `json:"max_tokens" yaml:"max_tokens"`

	OpenAI OpenAIConfig `json:"openai" yaml:"openai"`
	Ollama OllamaConfig `json:"ollama" yaml:"ollama"`

	Variant  string `json:"variant" yaml:"variant"`
	Language string `json:"language" yaml:"language"`
	TargetOS string `json:"os" yaml:"os"`
	Shell    string `json:"shell" yaml:"shell"`

	// UseForms selects the form prompter when a terminal is attached
	UseForms bool `json:"tui" yaml:"tui"`

	// ManifestDir receives a run manifest when set
	ManifestDir string `json:"manifest_dir" yaml:"manifest_dir"`

	// MetricsFile receives Prometheus metrics in text format after a run
	MetricsFile string `json:"metrics_file" yaml:"metrics_file"`

	// Output is the format of the dry-run plan preview
	Output  string `json:"output" yaml:"output"`
	NoColor bool   `json:"no_color" yaml:"no_color"`

	Log LogConfig `json:"log" yaml:"log"`

	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// OpenAIConfig holds OpenAI credentials
type OpenAIConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// OllamaConfig points at an Ollama server
type OllamaConfig struct {
	Host string `json:"host" yaml:"host"`
}

// LogConfig controls the diagnostic logger
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	File   string `json:"file" yaml:"file"`
}

// TelemetryConfig exports run traces to an OTLP/HTTP collector
type TelemetryConfig struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	Endpoint   string  `json:"endpoint" yaml:"endpoint"`
	Insecure   bool    `json:"insecure" yaml:"insecure"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Backend:   DefaultBackend,
		MaxTokens: DefaultMaxTokens,
		Ollama:    OllamaConfig{Host: DefaultOllamaHost},
		Variant:   DefaultVariant,
		Language:  DefaultLanguage,
		Shell:     DefaultShell,
		Output:    DefaultOutput,
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Telemetry: TelemetryConfig{SampleRate: 1.0},
	}
}

// Overrides carries flag values; nil fields were not set on the command line
type Overrides struct {
	Backend     *string
	Model       *string
	MaxTokens   *int
	Variant     *string
	Language    *string
	TargetOS    *string
	Shell       *string
	UseForms    *bool
	ManifestDir *string
	MetricsFile *string
	Output      *string
	NoColor     *bool
	LogLevel    *string
	LogFormat   *string
	LogFile     *string
}

// Apply copies every set override into c
func (c *Config) Apply(o Overrides) {
	setString(&c.Backend, o.Backend)
	setString(&c.Model, o.Model)
	setString(&c.Variant, o.Variant)
	setString(&c.Language, o.Language)
	setString(&c.TargetOS, o.TargetOS)
	setString(&c.Shell, o.Shell)
	setString(&c.ManifestDir, o.ManifestDir)
	setString(&c.MetricsFile, o.MetricsFile)
	setString(&c.Output, o.Output)
	setString(&c.Log.Level, o.LogLevel)
	setString(&c.Log.Format, o.LogFormat)
	setString(&c.Log.File, o.LogFile)
	if o.MaxTokens != nil {
		c.MaxTokens = *o.MaxTokens
	}
	if o.UseForms != nil {
		c.UseForms = *o.UseForms
	}
	if o.NoColor != nil {
		c.NoColor = *o.NoColor
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks the resolved configuration
func (c *Config) Validate() error {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if !slices.Contains(provider.Backends(), backend) {
		return muserr.NewConfigInvalidError(fmt.Sprintf("unknown backend %q (supported: %s)",
			c.Backend, strings.Join(provider.Backends(), ", ")))
	}
	if _, err := plan.ParseVariant(c.Variant); err != nil {
		return muserr.NewConfigInvalidError(err.Error())
	}
	if c.MaxTokens <= 0 {
		return muserr.NewConfigInvalidError(fmt.Sprintf("max tokens must be positive, got %d", c.MaxTokens))
	}
	if strings.TrimSpace(c.Shell) == "" {
		return muserr.NewConfigInvalidError("shell must not be empty")
	}
	if !slices.Contains(OutputFormats, c.Output) {
		return muserr.NewConfigInvalidError(fmt.Sprintf("unknown output format %q (supported: %s)",
			c.Output, strings.Join(OutputFormats, ", ")))
	}
	if !log.ValidLevel(c.Log.Level) {
		return muserr.NewConfigInvalidError(fmt.Sprintf("unknown log level %q (supported: debug, info, warn, error)", c.Log.Level))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return muserr.NewConfigInvalidError(fmt.Sprintf("telemetry sample rate must be between 0 and 1, got %v", c.Telemetry.SampleRate))
	}
	if backend == provider.BackendOpenAI && strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return muserr.NewBackendAuthError(provider.BackendOpenAI, EnvOpenAIKey)
	}
	return nil
}

// PlanVariant returns the parsed variant. Call Validate first.
func (c *Config) PlanVariant() plan.Variant {
	v, _ := plan.ParseVariant(c.Variant)
	return v
}

// HostOS is the operating system named in the prompt. The script variant
// always names one, falling back to the running system.
func (c *Config) HostOS() string {
	if c.TargetOS != "" {
		return c.TargetOS
	}
	if c.PlanVariant() == plan.VariantScript {
		return runtime.GOOS
	}
	return ""
}

// ProviderConfig returns the settings for the selected backend client
func (c *Config) ProviderConfig() provider.Config {
	cfg := provider.Config{
		Name:      strings.ToLower(strings.TrimSpace(c.Backend)),
		Model:     c.Model,
		MaxTokens: c.MaxTokens,
	}
	switch cfg.Name {
	case provider.BackendOpenAI:
		cfg.APIKey = c.OpenAI.APIKey
		cfg.BaseURL = c.OpenAI.BaseURL
	case provider.BackendOllama:
		cfg.BaseURL = c.Ollama.Host
	}
	return cfg
}

// LoggerConfig returns the logger settings. A log file replaces stderr and
// debug records carry their source location.
func (c *Config) LoggerConfig(version string) log.Config {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(c.Log.Level)
	cfg.AddSource = cfg.Level == log.LevelDebug
	cfg.Format = log.ParseFormat(c.Log.Format)
	cfg.ServiceVersion = version
	if c.Log.File != "" {
		cfg.Output = log.OutputFile(c.Log.File)
	}
	return cfg
}

// TracingConfig returns the tracer settings
func (c *Config) TracingConfig(version string) telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Enabled = c.Telemetry.Enabled
	cfg.Endpoint = c.Telemetry.Endpoint
	cfg.Insecure = c.Telemetry.Insecure
	if c.Telemetry.SampleRate > 0 {
		cfg.SampleRate = c.Telemetry.SampleRate
	}
	return cfg
}

// Redacted returns a copy that is safe to print
func (c *Config) Redacted() Config {
	out := *c
	if out.OpenAI.APIKey != "" {
		key := out.OpenAI.APIKey
		if len(key) > 8 {
			out.OpenAI.APIKey = key[:3] + "..." + key[len(key)-4:]
		} else {
			out.OpenAI.APIKey = "***"
		}
	}
	return out
}

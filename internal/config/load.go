package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	muserr "github.com/security-union/codemuse/internal/errors"
)

// Environment variables read during Load
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvOllamaHost    = "OLLAMA_HOST"
	EnvModel         = "CODEMUSE_MODEL"
	EnvBackend       = "CODEMUSE_BACKEND"
	EnvMaxTokens     = "CODEMUSE_MAX_TOKENS"
	EnvOTLPEndpoint  = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// DefaultEnvFile is read from the working directory when present
const DefaultEnvFile = ".env"

// LoadOptions locates the configuration sources
type LoadOptions struct {
	// Path is an explicit config file; it must exist
	Path string

	// HomeDir holds .codemuse/config.yaml; empty means the user's home
	HomeDir string

	// EnvFile is a dotenv file; empty means DefaultEnvFile
	EnvFile string

	// LookupEnv reads the process environment; nil means os.LookupEnv
	LookupEnv func(string) (string, bool)
}

// Load resolves defaults, the config file and the environment.
// Flags are applied afterwards with Apply.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path, err := opts.configPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	env, err := opts.environment()
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configPath returns the file to read, or "" when there is none
func (o LoadOptions) configPath() (string, error) {
	if o.Path != "" {
		if _, err := os.Stat(o.Path); err != nil {
			return "", muserr.Wrap(muserr.ErrCodeConfigNotFound, fmt.Sprintf("config file %s is not readable", o.Path), err).
				WithSuggestion("Check the path given to --config")
		}
		return o.Path, nil
	}

	path, err := UserConfigPath(o.HomeDir)
	if err != nil {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

// UserConfigPath returns ~/.codemuse/config.yaml, or the same file below
// home when it is not empty.
func UserConfigPath(home string) (string, error) {
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
	}
	return filepath.Join(home, ".codemuse", "config.yaml"), nil
}

// Save writes c to path as YAML, creating its directory. An existing file
// is never replaced.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return muserr.Wrap(muserr.ErrCodeDirectoryFailed, "failed to create config directory", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return muserr.NewFileWriteError(path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return muserr.NewFileWriteError(path, err)
	}
	if err := f.Close(); err != nil {
		return muserr.NewFileWriteError(path, err)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return muserr.Wrap(muserr.ErrCodeConfigNotFound, fmt.Sprintf("failed to read config file %s", path), err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return muserr.Wrap(muserr.ErrCodeConfigParse, fmt.Sprintf("failed to parse config file %s", path), err).
			WithSuggestion("Compare the file with the output of 'codemuse config' for the accepted keys")
	}
	return nil
}

// environment merges the dotenv file under the process environment
func (o LoadOptions) environment() (func(string) (string, bool), error) {
	lookup := o.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	envFile := o.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, muserr.Wrap(muserr.ErrCodeConfigParse, fmt.Sprintf("failed to read %s", envFile), err)
		}
		dotenv = map[string]string{}
	}

	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvOpenAIKey); ok {
		c.OpenAI.APIKey = v
	}
	if v, ok := lookup(EnvOpenAIBaseURL); ok {
		c.OpenAI.BaseURL = v
	}
	if v, ok := lookup(EnvOllamaHost); ok {
		c.Ollama.Host = ollamaURL(v)
	}
	if v, ok := lookup(EnvModel); ok {
		c.Model = v
	}
	if v, ok := lookup(EnvBackend); ok {
		c.Backend = v
	}
	if v, ok := lookup(EnvMaxTokens); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return muserr.NewConfigInvalidError(fmt.Sprintf("%s must be an integer, got %q", EnvMaxTokens, v))
		}
		c.MaxTokens = n
	}
	if v, ok := lookup(EnvOTLPEndpoint); ok {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint, c.Telemetry.Insecure = otlpEndpoint(v)
	}
	return nil
}

// otlpEndpoint splits an OTLP endpoint URL into the host:port the exporter
// takes and whether it is plain HTTP
func otlpEndpoint(endpoint string) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), true
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), false
	}
	return endpoint, false
}

// ollamaURL accepts OLLAMA_HOST in the bare host:port form
func ollamaURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "http://" + host
}

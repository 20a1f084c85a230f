package cmd

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/security-union/codemuse/internal/config"
	muserr "github.com/security-union/codemuse/internal/errors"
	"github.com/security-union/codemuse/internal/exitcode"
)

// sandbox points HOME and the working directory at a fresh temp dir and
// clears every variable the config loader reads.
func sandbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	for _, key := range []string{
		config.EnvOpenAIKey, config.EnvOpenAIBaseURL, config.EnvOllamaHost,
		config.EnvModel, config.EnvBackend, config.EnvMaxTokens, config.EnvOTLPEndpoint,
	} {
		t.Setenv(key, "")
	}
	return dir
}

// fakeOpenAI answers every chat completion with content
func fakeOpenAI(t *testing.T, content string) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	server := &httptest.Server{
		Listener: listener,
		Config: &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"model":  "gpt-3.5-turbo",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				}},
			})
		})},
	}
	server.Start()
	t.Cleanup(server.Close)

	t.Setenv(config.EnvOpenAIKey, "sk-test-1234")
	t.Setenv(config.EnvOpenAIBaseURL, server.URL)
	return server
}

func execute(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "codemuse "), out)

	out, err = execute(t, "", "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	out, err = execute(t, "", "version", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, " built ")
}

func TestMissingDescriptionIsUsageError(t *testing.T) {
	sandbox(t)
	_, err := execute(t, "")
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
}

func TestInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code muserr.ErrorCode
	}{
		{"unknown variant", []string{"--variant", "wizard"}, muserr.ErrCodeConfigInvalid},
		{"unknown backend", []string{"--backend", "gemini"}, muserr.ErrCodeConfigInvalid},
		{"bad project name", []string{"--name", "../escape"}, muserr.ErrCodeConfigInvalid},
		{"no api key", []string{"--backend", "openai"}, muserr.ErrCodeBackendAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sandbox(t)
			if tt.code != muserr.ErrCodeBackendAuth {
				t.Setenv(config.EnvOpenAIKey, "sk-test-1234")
			}
			args := append([]string{"--description", "a todo app"}, tt.args...)
			_, err := execute(t, "", args...)
			require.Error(t, err)
			code, ok := muserr.CodeOf(err)
			require.True(t, ok, "expected a coded error, got %v", err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestConfigPathAndInit(t *testing.T) {
	home := sandbox(t)
	want := filepath.Join(home, ".codemuse", "config.yaml")

	out, err := execute(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)

	out, err = execute(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, want)
	assert.FileExists(t, want)

	_, err = execute(t, "", "config", "init")
	require.Error(t, err, "init never replaces an existing file")
}

func TestConfigViewMasksKeys(t *testing.T) {
	sandbox(t)
	t.Setenv(config.EnvOpenAIKey, "sk-supersecretvalue")

	out, err := execute(t, "", "config", "view")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file:")
	assert.Contains(t, out, "sk-...alue")
	assert.NotContains(t, out, "supersecret")

	out, err = execute(t, "", "config", "view", "--format", "json")
	require.NoError(t, err)
	var view config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "sk-...alue", view.OpenAI.APIKey)

	_, err = execute(t, "", "config", "view", "--format", "xml")
	require.Error(t, err)
}

func TestConfigGet(t *testing.T) {
	sandbox(t)
	t.Setenv(config.EnvOllamaHost, "gpu-box:11434")

	out, err := execute(t, "", "config", "get", "ollama.host")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434\n", out)

	out, err = execute(t, "", "config", "get", "max_tokens")
	require.NoError(t, err)
	assert.Equal(t, "2048\n", out)

	_, err = execute(t, "", "config", "get", "ollama.port")
	require.Error(t, err)
}

func TestConfigFileFlag(t *testing.T) {
	dir := sandbox(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("language: go\n"), 0600))

	out, err := execute(t, "", "--config", path, "config", "get", "language")
	require.NoError(t, err)
	assert.Equal(t, "go\n", out)
}

func TestDryRunPrintsPlan(t *testing.T) {
	dir := sandbox(t)
	fakeOpenAI(t, `{"steps":["cargo new revtool"],"files":{"src/main.rs":"fn main() {}"}}`)

	out, err := execute(t, "",
		"--description", "a CLI that reverses its input",
		"--name", "revtool",
		"--dry-run", "--output", "json",
	)
	require.NoError(t, err)
	assert.Contains(t, out, `"variant": "steps"`)
	assert.Contains(t, out, "cargo new revtool")
	assert.Contains(t, out, "Dry run:")
	assert.NoDirExists(t, filepath.Join(dir, "revtool"))
}

func TestStepsRunEndToEnd(t *testing.T) {
	dir := sandbox(t)
	fakeOpenAI(t, `{"steps":["mkdir revtool && printf old > revtool/README.md"],"files":{"README.md":"# revtool\n","src/main.rs":"fn main() {}"}}`)

	out, err := execute(t, "Y\n",
		"--description", "a CLI that reverses its input",
		"--name", "revtool",
		"--manifest", filepath.Join(dir, "runs"),
		"--metrics-file", filepath.Join(dir, "metrics", "codemuse.prom"),
	)
	require.NoError(t, err, out)

	data, err := os.ReadFile(filepath.Join(dir, "revtool", "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# revtool\n", string(data))

	assert.Contains(t, out, "Wrote")
	assert.Contains(t, out, "File path: src/main.rs")
	assert.Contains(t, out, "fn main() {}")
	assert.NoFileExists(t, filepath.Join(dir, "revtool", "src", "main.rs"))

	manifests, err := filepath.Glob(filepath.Join(dir, "runs", "*.json"))
	require.NoError(t, err)
	assert.Len(t, manifests, 1)

	prom, err := os.ReadFile(filepath.Join(dir, "metrics", "codemuse.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `codemuse_runs_total{stage="done",variant="steps"} 1`)
	assert.Contains(t, string(prom), `codemuse_files_total{placement="written"} 1`)
}

func TestSkippedScriptIsAbandoned(t *testing.T) {
	dir := sandbox(t)
	fakeOpenAI(t, `{"script":"touch ran.txt"}`)

	_, err := execute(t, "n\nskip\n",
		"--description", "a todo web app",
		"--variant", "script",
	)
	require.Error(t, err)
	assert.Equal(t, exitcode.Abandoned, exitcode.DetermineExitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "ran.txt"))
}

func TestUndecodableResponse(t *testing.T) {
	sandbox(t)
	fakeOpenAI(t, `Sure! Here is your plan: {"steps": []}`)

	out, err := execute(t, "", "--description", "a todo app")
	require.Error(t, err)
	assert.Equal(t, exitcode.DecodeError, exitcode.DetermineExitCode(err))
	assert.Contains(t, out, "Sure! Here is your plan:")
}

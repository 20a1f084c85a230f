package plan

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStepFilePlan(t *testing.T) {
	raw := `{"steps":["mkdir revtool","cd revtool && go mod init revtool"],"files":{"main.go":"package main","go.sum":""}}`

	p, err := Decode(VariantSteps, raw)
	require.NoError(t, err)

	sf, ok := p.(StepFilePlan)
	require.True(t, ok, "expected StepFilePlan, got %T", p)
	assert.Equal(t, []string{"mkdir revtool", "cd revtool && go mod init revtool"}, sf.Steps())
	assert.Equal(t, []string{"main.go", "go.sum"}, sf.Files.Paths())
	assert.False(t, sf.SkipAborts())
	assert.Equal(t, VariantSteps, sf.Variant())

	contents, ok := sf.Files.Lookup("main.go")
	require.True(t, ok)
	assert.Equal(t, "package main", contents)
}

func TestStepFilePlanRoundTrip(t *testing.T) {
	payloads := []string{
		`{"steps":[],"files":{}}`,
		`{"steps":["b","a","c"],"files":{"z.txt":"last","a.txt":"first","m/n.txt":"mid"}}`,
		`{"steps":["echo \"quoted\" && exit 0"],"files":{"src/main.rs":"fn main() {\n    println!(\"hi\");\n}\n","ünïcode.txt":"✓"}}`,
	}

	for _, raw := range payloads {
		t.Run(raw, func(t *testing.T) {
			p, err := Decode(VariantSteps, raw)
			require.NoError(t, err)

			encoded, err := json.Marshal(p)
			require.NoError(t, err)

			again, err := Decode(VariantSteps, string(encoded))
			require.NoError(t, err)
			assert.Equal(t, p, again)

			first := p.(StepFilePlan)
			second := again.(StepFilePlan)
			assert.Equal(t, first.Commands, second.Commands, "step order must survive a round trip")
			assert.Equal(t, first.Files.Paths(), second.Files.Paths(), "file order must survive a round trip")
		})
	}
}

func TestDecodeFailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
		raw     string
	}{
		{"missing files", VariantSteps, `{"steps":["ls"]}`},
		{"missing steps", VariantSteps, `{"files":{}}`},
		{"null files", VariantSteps, `{"steps":[],"files":null}`},
		{"null steps", VariantSteps, `{"steps":null,"files":{}}`},
		{"null step element", VariantSteps, `{"steps":["ls",null],"files":{}}`},
		{"numeric step", VariantSteps, `{"steps":[1],"files":{}}`},
		{"steps not array", VariantSteps, `{"steps":"ls","files":{}}`},
		{"files not object", VariantSteps, `{"steps":[],"files":["a"]}`},
		{"file contents not string", VariantSteps, `{"steps":[],"files":{"a.txt":{"nested":true}}}`},
		{"null file contents", VariantSteps, `{"steps":[],"files":{"a.txt":null}}`},
		{"duplicate file key", VariantSteps, `{"steps":[],"files":{"a.txt":"1","a.txt":"2"}}`},
		{"duplicate top-level key", VariantSteps, `{"steps":[],"steps":[],"files":{}}`},
		{"unknown key", VariantSteps, `{"steps":[],"files":{},"notes":"hi"}`},
		{"wrong key case", VariantSteps, `{"Steps":[],"files":{}}`},
		{"top-level array", VariantSteps, `[{"steps":[],"files":{}}]`},
		{"top-level null", VariantSteps, `null`},
		{"empty", VariantSteps, ``},
		{"whitespace", VariantSteps, "  \n"},
		{"prose", VariantSteps, `Sure! Here is your project.`},
		{"markdown fence", VariantSteps, "```json\n{\"steps\":[],\"files\":{}}\n```"},
		{"trailing data", VariantSteps, `{"steps":[],"files":{}} {"steps":[]}`},
		{"truncated", VariantSteps, `{"steps":["ls"],"files":{"a":"b"`},
		{"script missing", VariantScript, `{}`},
		{"script not string", VariantScript, `{"script":["ls"]}`},
		{"script null", VariantScript, `{"script":null}`},
		{"steps payload for script", VariantScript, `{"steps":["ls"],"files":{}}`},
		{"bundle missing readme", VariantBundle, `{"dockerfile":"","makefile":"","source_files":[]}`},
		{"bundle source not array", VariantBundle, `{"dockerfile":"","makefile":"","readme":"","source_files":{}}`},
		{"bundle source null", VariantBundle, `{"dockerfile":"","makefile":"","readme":"","source_files":null}`},
		{"bundle source missing contents", VariantBundle, `{"dockerfile":"","makefile":"","readme":"","source_files":[{"name":"a.go"}]}`},
		{"bundle source extra key", VariantBundle, `{"dockerfile":"","makefile":"","readme":"","source_files":[{"name":"a.go","contents":"","mode":"0644"}]}`},
		{"bundle source element null", VariantBundle, `{"dockerfile":"","makefile":"","readme":"","source_files":[null]}`},
		{"bundle source duplicate name", VariantBundle, `{"dockerfile":"","makefile":"","readme":"","source_files":[{"name":"a.go","contents":"1"},{"name":"a.go","contents":"2"}]}`},
		{"bundle source shadows dockerfile", VariantBundle, `{"dockerfile":"FROM x","makefile":"","readme":"","source_files":[{"name":"Dockerfile","contents":"FROM y"}]}`},
		{"bundle source shadows readme", VariantBundle, `{"dockerfile":"","makefile":"","readme":"","source_files":[{"name":"README.md","contents":"hi"}]}`},
		{"unknown variant", Variant("print"), `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.variant, tt.raw)
			require.Error(t, err)
			assert.Nil(t, p, "a failed decode must not produce a plan")

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "expected *DecodeError, got %T", err)
			assert.Equal(t, tt.raw, decodeErr.Raw, "raw text must be preserved verbatim")
			assert.Equal(t, tt.variant, decodeErr.Variant)
			assert.NotNil(t, errors.Unwrap(err))
		})
	}
}

func TestDecodeErrorMessages(t *testing.T) {
	_, err := Decode(VariantSteps, `{"steps":["ls"]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required key "files"`)

	_, err = Decode(VariantSteps, `{"steps":[],"files":{},"zeta":1,"alpha":2}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key(s): alpha, zeta")

	_, err = Decode(VariantSteps, `{"steps":[],"files":{"a":"1","a":"2"}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate key "a"`)

	_, err = Decode(VariantSteps, `[1]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a JSON object, found an array")

	_, err = Decode(VariantBundle, `{"dockerfile":"","makefile":"","readme":"","source_files":[{"name":"Makefile","contents":""}]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `source_files[0].name: duplicate file "Makefile"`)
}

func TestDecodeScriptPlan(t *testing.T) {
	p, err := Decode(VariantScript, `{"script":"cargo new myapp && cd myapp && cargo build"}`)
	require.NoError(t, err)

	sp, ok := p.(ScriptPlan)
	require.True(t, ok)
	assert.Equal(t, []string{"cargo new myapp && cd myapp && cargo build"}, sp.Steps())
	assert.True(t, sp.SkipAborts())
}

func TestDecodeBundlePlan(t *testing.T) {
	raw := `{
		"dockerfile": "FROM golang:1.24",
		"makefile": "build:\n\tgo build ./...",
		"readme": "# myapp",
		"source_files": [
			{"name": "main.go", "contents": "package main"},
			{"name": "util.go", "contents": "package main\n"}
		]
	}`

	p, err := Decode(VariantBundle, raw)
	require.NoError(t, err)

	b, ok := p.(BundlePlan)
	require.True(t, ok)
	assert.Equal(t, "FROM golang:1.24", b.Dockerfile)
	assert.Equal(t, "build:\n\tgo build ./...", b.Makefile)
	assert.Equal(t, "# myapp", b.Readme)
	require.Len(t, b.SourceFiles, 2)
	assert.Equal(t, SourceFile{Name: "main.go", Contents: "package main"}, b.SourceFiles[0])
	assert.Equal(t, "util.go", b.SourceFiles[1].Name)
	assert.Empty(t, b.Steps())
	assert.False(t, b.SkipAborts())
}

func TestDecodeDoesNotSniffAcrossVariants(t *testing.T) {
	script := `{"script":"ls"}`

	_, err := Decode(VariantSteps, script)
	assert.Error(t, err)
	_, err = Decode(VariantBundle, script)
	assert.Error(t, err)
	_, err = Decode(VariantScript, script)
	assert.NoError(t, err)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "2 step(s), 1 file(s)", Describe(StepFilePlan{Commands: []string{"a", "b"}, Files: FileSet{{Path: "x"}}}))
	assert.Equal(t, "1 script", Describe(ScriptPlan{Script: "ls"}))
	assert.Contains(t, Describe(BundlePlan{SourceFiles: []SourceFile{{Name: "a"}}}), "1 source file(s)")
}

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/security-union/codemuse/internal/plan"
)

func mustRequest(t *testing.T, v plan.Variant, targetOS string) plan.GenerationRequest {
	t.Helper()
	req, err := plan.NewRequest(v, "go", "revtool", "a CLI that reverses its argument", targetOS)
	require.NoError(t, err)
	return req
}

func TestBuildStepsPrompt(t *testing.T) {
	msgs, err := Build(mustRequest(t, plan.VariantSteps, ""))
	require.NoError(t, err)

	assert.Contains(t, msgs.System, "single JSON object")
	assert.Contains(t, msgs.User, "revtool")
	assert.Contains(t, msgs.User, "go")
	assert.Contains(t, msgs.User, "a CLI that reverses its argument")
	assert.Contains(t, msgs.User, plan.VariantSteps.Schema())
	assert.NotContains(t, msgs.User, "Host operating system")
}

func TestBuildStepsPromptWithOS(t *testing.T) {
	msgs, err := Build(mustRequest(t, plan.VariantSteps, "darwin"))
	require.NoError(t, err)
	assert.Contains(t, msgs.User, "Host operating system:\ndarwin")
}

func TestBuildScriptPromptIncludesOS(t *testing.T) {
	msgs, err := Build(mustRequest(t, plan.VariantScript, "linux"))
	require.NoError(t, err)
	assert.Contains(t, msgs.User, "one bash script")
	assert.Contains(t, msgs.User, "linux")
	assert.Contains(t, msgs.User, `"script"`)

	msgs, err = Build(mustRequest(t, plan.VariantScript, ""))
	require.NoError(t, err)
	assert.Contains(t, msgs.User, "unknown")
}

func TestBuildBundlePrompt(t *testing.T) {
	msgs, err := Build(mustRequest(t, plan.VariantBundle, ""))
	require.NoError(t, err)
	assert.Contains(t, msgs.User, "Dockerfile")
	assert.Contains(t, msgs.User, `"source_files"`)
}

func TestDescriptionIsNotHTMLEscaped(t *testing.T) {
	req, err := plan.NewRequest(plan.VariantSteps, "c++", "app", `print "<hello> & bye"`, "")
	require.NoError(t, err)

	msgs, err := Build(req)
	require.NoError(t, err)
	assert.Contains(t, msgs.User, `print "<hello> & bye"`)
	assert.Contains(t, msgs.User, "c++")
}

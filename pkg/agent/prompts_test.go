package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompts(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	assert.NotEmpty(t, prompts.Documentation)
	assert.NotEmpty(t, prompts.Generate)
	assert.NotEmpty(t, prompts.Validate)

	// Each role gets its own prompt.
	assert.NotEqual(t, prompts.For(RoleDocumentation), prompts.For(RoleSQL))
	assert.NotEqual(t, prompts.For(RoleSQL), prompts.For(RoleValidator))
}

func TestPromptsContracts(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	// The generation prompt mandates the format the parser expects.
	assert.Contains(t, prompts.Generate, "```sql")
	assert.Contains(t, prompts.Generate, "Explanation:")

	// The validation prompt mandates the JSON judgement shape.
	assert.Contains(t, prompts.Validate, `"valid"`)
	assert.Contains(t, prompts.Validate, `"hint"`)
}

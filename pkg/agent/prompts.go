package agent

import (
	"fmt"
	"strings"

	"github.com/srbutler1/WRDS-Agents/pkg/agent/prompts"
)

// Prompts holds the fixed system prompt per agent role, loaded from the
// embedded filesystem.
type Prompts struct {
	Documentation string
	Generate      string
	Validate      string
}

// LoadPrompts loads all role prompts from the embedded filesystem.
func LoadPrompts() (*Prompts, error) {
	p := &Prompts{}

	var err error
	if p.Documentation, err = loadPrompt("DOCUMENTATION.md"); err != nil {
		return nil, fmt.Errorf("failed to load DOCUMENTATION: %w", err)
	}
	if p.Generate, err = loadPrompt("GENERATE.md"); err != nil {
		return nil, fmt.Errorf("failed to load GENERATE: %w", err)
	}
	if p.Validate, err = loadPrompt("VALIDATE.md"); err != nil {
		return nil, fmt.Errorf("failed to load VALIDATE: %w", err)
	}

	return p, nil
}

// For returns the system prompt for a role.
func (p *Prompts) For(role Role) string {
	switch role {
	case RoleDocumentation:
		return p.Documentation
	case RoleSQL:
		return p.Generate
	case RoleValidator:
		return p.Validate
	default:
		return ""
	}
}

func loadPrompt(path string) (string, error) {
	data, err := prompts.PromptsFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

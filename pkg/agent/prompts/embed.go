// Package prompts embeds the fixed system prompt templates, one per agent
// role.
package prompts

import "embed"

//go:embed *.md
var PromptsFS embed.FS

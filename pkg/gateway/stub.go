package gateway

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// Stub is the offline gateway used when no credential is configured. It
// returns a deterministic placeholder derived from the prompt and never
// touches the network, so the orchestration loop, retry counting, and
// persistence can all be exercised without live credentials.
type Stub struct{}

// NewStub returns a stub-mode Client.
func NewStub() *Stub {
	return &Stub{}
}

// Complete returns a placeholder derived from a hash of the prompts.
// Identical prompts always yield identical output.
func (s *Stub) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	sum := sha256.Sum256([]byte(systemPrompt + "\x00" + userPrompt))
	return fmt.Sprintf("stub completion %x", sum[:8]), nil
}

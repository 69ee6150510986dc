package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate_Defaults(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate())

	assert.NotEmpty(t, cfg.Model)
	assert.Equal(t, int64(4096), cfg.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, uint64(2), cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
}

func TestConfigValidate_KeyFormat(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{name: "empty key selects stub", apiKey: "", wantErr: false},
		{name: "valid key", apiKey: "sk-ant-REDACTED", wantErr: false},
		{name: "wrong prefix", apiKey: "sk-openai-abcdef0123456789", wantErr: true},
		{name: "too short", apiKey: "sk-ant-a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{APIKey: tt.apiKey}
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCredentials)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNew_StubWithoutCredential(t *testing.T) {
	client, err := New(Config{})
	require.NoError(t, err)
	_, ok := client.(*Stub)
	assert.True(t, ok)
}

func TestNew_AnthropicWithCredential(t *testing.T) {
	client, err := New(Config{APIKey: "sk-ant-REDACTED"})
	require.NoError(t, err)
	_, ok := client.(*anthropicClient)
	assert.True(t, ok)
}

func TestNew_RejectsMalformedCredential(t *testing.T) {
	_, err := New(Config{APIKey: "not-a-key-at-all-really"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStub_Deterministic(t *testing.T) {
	stub := NewStub()
	ctx := context.Background()

	first, err := stub.Complete(ctx, "system", "user")
	require.NoError(t, err)
	second, err := stub.Complete(ctx, "system", "user")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := stub.Complete(ctx, "system", "different user")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

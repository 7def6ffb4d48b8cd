package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider resolves "env://VARIABLE" references from the process
// environment. It is the first provider in the default chain, covering the
// common deployment where ENCRYPTION_KEY, SMTP_PASSWORD, and the Redis
// password arrive as environment variables.
type EnvProvider struct{}

// NewEnvProvider creates an environment variable-based secret provider.
func NewEnvProvider() *EnvProvider { return &EnvProvider{} }

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Resolve(_ context.Context, credentialRef string) (*Secret, error) {
	name, ok := strings.CutPrefix(credentialRef, "env://")
	if !ok {
		return nil, fmt.Errorf("%w: env provider only handles env:// references, got %q",
			ErrSecretNotFound, credentialRef)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty environment variable name", ErrSecretNotFound)
	}
	value := os.Getenv(name)
	if value == "" {
		return nil, fmt.Errorf("%w: environment variable %q is not set or empty",
			ErrSecretNotFound, name)
	}
	return &Secret{Value: value}, nil
}

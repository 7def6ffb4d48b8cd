// Package secrets defines the Provider interface for credential resolution.
// Implementations are backend-specific (env vars, HashiCorp Vault).
// The platform resolves all sensitive material through here: the field
// encryption key, SMTP credentials, and the Redis password. Secret values are
// never written to logs or serialized into API responses.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Secret holds resolved credential material.
// This type MUST NOT be serialized to JSON or included in API responses.
type Secret struct {
	Value string // The raw secret value (key material, password, token).
}

// Provider resolves opaque credential references into secret material.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Resolve takes a credential reference (e.g. "env://ENCRYPTION_KEY" or
	// "vault://secret/data/rewardhub#encryption_key") and returns the raw
	// secret. Returns ErrSecretNotFound if the reference cannot be resolved.
	Resolve(ctx context.Context, credentialRef string) (*Secret, error)

	// Name returns the provider identifier for logging (never includes secrets).
	Name() string
}

// ErrSecretNotFound is returned when a credential reference cannot be resolved.
var ErrSecretNotFound = fmt.Errorf("secret not found")

// ResolveValue resolves a reference and returns just the secret value.
// A bare reference without a scheme is treated as "env://<reference>".
func ResolveValue(ctx context.Context, p Provider, credentialRef string) (string, error) {
	if credentialRef == "" {
		return "", fmt.Errorf("%w: empty credential reference", ErrSecretNotFound)
	}
	if !strings.Contains(credentialRef, "://") {
		credentialRef = "env://" + credentialRef
	}
	s, err := p.Resolve(ctx, credentialRef)
	if err != nil {
		return "", err
	}
	return s.Value, nil
}

// Default returns the standard provider chain: env first, then Vault when
// VAULT_ADDR is configured.
func Default() Provider {
	providers := []Provider{NewEnvProvider()}
	if os.Getenv("VAULT_ADDR") != "" {
		if v, err := NewVaultProvider(nil); err == nil {
			providers = append(providers, v)
		}
	}
	return NewCompositeProvider(providers...)
}

package secrets

import (
	"context"
	"fmt"
)

// CompositeProvider tries each wrapped provider in order and returns the
// first successful resolution. The default chain puts env ahead of Vault so
// a local override always wins.
type CompositeProvider struct {
	providers []Provider
}

// NewCompositeProvider chains providers in resolution order.
func NewCompositeProvider(providers ...Provider) *CompositeProvider {
	return &CompositeProvider{providers: providers}
}

func (p *CompositeProvider) Name() string { return "composite" }

func (p *CompositeProvider) Resolve(ctx context.Context, credentialRef string) (*Secret, error) {
	var lastErr error
	for _, provider := range p.providers {
		secret, err := provider.Resolve(ctx, credentialRef)
		if err == nil {
			return secret, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no provider could resolve %q", ErrSecretNotFound, credentialRef)
	}
	return nil, lastErr
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrIssuance marks a failure of the underlying identity capability. It is
// not retried here; the pipeline's outer policy decides what to do.
var ErrIssuance = errors.New("token issuance failed")

// Broker caches tokens per scope and refreshes them transparently when the
// cached token is absent or within the safety margin of its expiry. A token
// returned by the broker is never closer than the margin to expiring.
type Broker struct {
	provider Provider
	margin   time.Duration

	mu    sync.Mutex
	cache map[string]Token

	now func() time.Time
}

// NewBroker wraps the given provider with an expiry-aware cache.
func NewBroker(provider Provider, margin time.Duration) *Broker {
	return &Broker{
		provider: provider,
		margin:   margin,
		cache:    map[string]Token{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetToken returns a valid token for the scope, refreshing if needed.
func (b *Broker) GetToken(ctx context.Context, scope string) (Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tok, ok := b.cache[scope]; ok && b.now().Before(tok.ExpiresAt.Add(-b.margin)) {
		return tok, nil
	}

	tok, err := b.provider.Token(ctx, scope)
	if err != nil {
		return Token{}, fmt.Errorf("acquire token for scope %s: %w", scope, errors.Join(ErrIssuance, err))
	}

	b.cache[scope] = tok
	return tok, nil
}

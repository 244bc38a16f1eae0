package security

import (
	"context"
	"time"
)

// CallContext scopes one outbound call: which tenant it acts on and the
// bearer token asserting the caller's identity. Guest contexts carry no
// token and are only accepted by endpoints an application exposes publicly.
//
// The context is attached to a context.Context derived per call, never
// stored, so it cannot leak across goroutines: every saga worker derives its
// own before each remote call.
type CallContext struct {
	Tenant      string
	Application string
	Token       string
	Guest       bool
}

type callContextKey struct{}

// WithCallContext returns a context carrying the call scope.
func WithCallContext(ctx context.Context, cc CallContext) context.Context {
	return context.WithValue(ctx, callContextKey{}, cc)
}

// CallContextFrom extracts the call scope, if one is set.
func CallContextFrom(ctx context.Context) (CallContext, bool) {
	cc, ok := ctx.Value(callContextKey{}).(CallContext)
	return cc, ok
}

// Minter establishes per-call security contexts.
type Minter struct {
	tokens   *TokenProvider
	tokenTTL time.Duration
}

func NewMinter(tokens *TokenProvider, tokenTTL time.Duration) *Minter {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Minter{tokens: tokens, tokenTTL: tokenTTL}
}

// SystemCall derives a context scoped to (tenant, application) under a
// freshly minted system token.
func (m *Minter) SystemCall(ctx context.Context, tenant, application string) (context.Context, error) {
	token, err := m.tokens.CreateToken(tenant, application, m.tokenTTL)
	if err != nil {
		return nil, err
	}
	return WithCallContext(ctx, CallContext{
		Tenant:      tenant,
		Application: application,
		Token:       token,
	}), nil
}

// KeyTimestamp exposes the signing key epoch for callers that need to bind
// remote material to it.
func (m *Minter) KeyTimestamp() string {
	return m.tokens.KeyTimestamp()
}

// GuestCall derives an unauthenticated context scoped to the tenant, usable
// only for public discovery endpoints.
func GuestCall(ctx context.Context, tenant string) context.Context {
	return WithCallContext(ctx, CallContext{Tenant: tenant, Guest: true})
}

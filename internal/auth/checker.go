package auth

import "context"

var _ Verifier = (*Service)(nil)
var _ Verifier = (*TestVerifier)(nil)

// Verifier resolves a bearer token into the claims of a logged-in user.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

package auth

import "context"

type TestVerifier struct {
	LoggedSessions map[string]*Claims
}

func NewTestVerifier() *TestVerifier {
	return &TestVerifier{
		LoggedSessions: map[string]*Claims{},
	}
}

func (v *TestVerifier) Verify(_ context.Context, token string) (*Claims, error) {
	claims, ok := v.LoggedSessions[token]
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return claims, nil
}

// Package auth verifies bearer tokens and resolves them to an identity.
package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned for any token that does not verify.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified owner of a token.
type Identity struct {
	UID   string
	Email string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Static resolves tokens from a fixed table. Used by tests and local tooling.
type Static map[string]Identity

func (s Static) Verify(_ context.Context, token string) (*Identity, error) {
	id, ok := s[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &id, nil
}

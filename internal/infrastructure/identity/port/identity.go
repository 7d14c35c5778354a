package port

import (
	"context"
	"errors"
)

// Identity is the result of resolving a bearer credential.
type Identity struct {
	UserID string
	Role   string
}

// Resolver turns a bearer credential into an Identity.
// Implementations must return ErrIdentityInvalid (possibly wrapped) for any
// credential that cannot be verified; callers terminate the connection on it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// ErrIdentityInvalid signals a connection-time credential failure.
var ErrIdentityInvalid = errors.New("identity: invalid credential")

package adapter

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"convohub/internal/infrastructure/identity/port"
)

// JWTResolver verifies HS256 bearer tokens and extracts the user identity
// from the standard "sub" claim plus an application "role" claim.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

var _ port.Resolver = (*JWTResolver)(nil)

func (r *JWTResolver) Resolve(_ context.Context, token string) (port.Identity, error) {
	if token == "" {
		return port.Identity{}, port.ErrIdentityInvalid
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return port.Identity{}, fmt.Errorf("%w: %v", port.ErrIdentityInvalid, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return port.Identity{}, port.ErrIdentityInvalid
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return port.Identity{}, fmt.Errorf("%w: missing subject", port.ErrIdentityInvalid)
	}

	role, _ := claims["role"].(string)
	return port.Identity{UserID: sub, Role: role}, nil
}

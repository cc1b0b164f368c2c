package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dortega/citaflow/libs/auth"
)

var ErrUnauthenticated = errors.New("missing or invalid credential")

// RoleSource looks up the stored role for an identity id. An empty string
// with a nil error means no profile exists for that id.
type RoleSource interface {
	RoleByID(ctx context.Context, id string) (string, error)
}

// Resolver turns an Authorization header into a Caller. Tokens signed with
// HS256 are verified against the shared secret; RS256 tokens are verified
// against the identity provider's JWKS when a client is configured.
type Resolver struct {
	secret   string
	jwks     *auth.JWKSClient
	profiles RoleSource
}

func NewResolver(secret string, jwks *auth.JWKSClient, profiles RoleSource) *Resolver {
	return &Resolver{secret: secret, jwks: jwks, profiles: profiles}
}

func (r *Resolver) Resolve(ctx context.Context, authorization string) (Caller, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		return Caller{}, ErrUnauthenticated
	}

	claims, err := r.verify(token)
	if err != nil {
		return Caller{}, ErrUnauthenticated
	}

	role, err := r.profiles.RoleByID(ctx, claims.Sub)
	if err != nil {
		return Caller{}, fmt.Errorf("resolve role for %s: %w", claims.Sub, err)
	}
	return Caller{ID: claims.Sub, Role: ParseRole(role)}, nil
}

func (r *Resolver) verify(token string) (*auth.Claims, error) {
	header, err := auth.ParseHeader(token)
	if err != nil {
		return nil, err
	}
	if header.Alg == "RS256" && r.jwks != nil {
		key, err := r.jwks.Get(header.Kid)
		if err != nil {
			return nil, err
		}
		return auth.VerifyRS256(token, key)
	}
	return auth.ParseAndVerifyHS256(token, r.secret)
}

func bearerToken(authorization string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
	return token, token != ""
}

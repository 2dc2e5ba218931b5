// Package jwt provides a JWT-verifying content guard built on go-chi/jwtauth.
// Tokens are read from the Authorization header (Bearer scheme) or the "jwt"
// query parameter.
package jwt

import (
	"context"
	"errors"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/content-depot/pkg/contentdepot"
)

// GuardName is the name the guard registers under
const GuardName = "jwt"

// Guard is a JWT implementation of contentdepot.ContentGuard
type Guard struct {
	auth   *jwtauth.JWTAuth
	issuer string
}

// New creates a JWT guard from distribution-level config. Recognized keys:
// "secret" (required), "algorithm" (default HS256), "issuer" (optional;
// when set, tokens from other issuers are denied).
func New(config map[string]interface{}) (contentdepot.ContentGuard, error) {
	secret, _ := config["secret"].(string)
	if secret == "" {
		return nil, errors.New("secret is required")
	}
	algorithm, _ := config["algorithm"].(string)
	if algorithm == "" {
		algorithm = "HS256"
	}
	issuer, _ := config["issuer"].(string)

	return &Guard{
		auth:   jwtauth.New(algorithm, []byte(secret), nil),
		issuer: issuer,
	}, nil
}

// Factory returns the guard factory for registration
func Factory() contentdepot.GuardFactory {
	return New
}

// Name returns the guard variant name
func (g *Guard) Name() string { return GuardName }

// Evaluate verifies the request's JWT signature and registered claims
// (expiry, not-before), plus the configured issuer when one is set.
func (g *Guard) Evaluate(ctx context.Context, rc *contentdepot.RequestContext) (contentdepot.Decision, error) {
	if rc.Request == nil {
		return contentdepot.Deny("no request to verify"), nil
	}

	token, err := jwtauth.VerifyRequest(g.auth, rc.Request, jwtauth.TokenFromHeader, jwtauth.TokenFromQuery)
	if err != nil {
		return contentdepot.Deny(err.Error()), nil
	}
	if g.issuer != "" && token.Issuer() != g.issuer {
		return contentdepot.Deny("unknown issuer"), nil
	}
	return contentdepot.Allow(), nil
}

// Package token provides a shared-secret content guard. The expected token
// is configured per distribution; clients present it in a header or query
// parameter.
package token

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/tendant/content-depot/pkg/contentdepot"
)

// GuardName is the name the guard registers under
const GuardName = "token"

const defaultHeader = "X-Content-Token"

// Guard is a shared-secret implementation of contentdepot.ContentGuard
type Guard struct {
	token      string
	header     string
	queryParam string
}

// New creates a token guard from distribution-level config. Recognized keys:
// "token" (required), "header" (default X-Content-Token), "query_param"
// (optional fallback).
func New(config map[string]interface{}) (contentdepot.ContentGuard, error) {
	token, _ := config["token"].(string)
	if token == "" {
		return nil, errors.New("token is required")
	}
	header, _ := config["header"].(string)
	if header == "" {
		header = defaultHeader
	}
	queryParam, _ := config["query_param"].(string)

	return &Guard{token: token, header: header, queryParam: queryParam}, nil
}

// Factory returns the guard factory for registration
func Factory() contentdepot.GuardFactory {
	return New
}

// Name returns the guard variant name
func (g *Guard) Name() string { return GuardName }

// Evaluate allows the request when the presented token matches the
// configured one. Comparison is constant-time.
func (g *Guard) Evaluate(ctx context.Context, rc *contentdepot.RequestContext) (contentdepot.Decision, error) {
	presented := rc.Header.Get(g.header)
	if presented == "" && g.queryParam != "" && rc.Request != nil {
		presented = rc.Request.URL.Query().Get(g.queryParam)
	}
	if presented == "" {
		return contentdepot.Deny("missing token"), nil
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(g.token)) != 1 {
		return contentdepot.Deny("invalid token"), nil
	}
	return contentdepot.Allow(), nil
}

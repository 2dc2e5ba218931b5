// Package cidr provides a content guard that allows requests only from a
// configured set of source networks.
package cidr

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/tendant/content-depot/pkg/contentdepot"
)

// GuardName is the name the guard registers under
const GuardName = "cidr"

// Guard is a source-address implementation of contentdepot.ContentGuard
type Guard struct {
	networks []*net.IPNet
}

// New creates a CIDR guard from distribution-level config. Recognized key:
// "allow" — a list of CIDR strings (e.g. "10.0.0.0/8").
func New(config map[string]interface{}) (contentdepot.ContentGuard, error) {
	raw, ok := config["allow"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, errors.New("allow list is required")
	}

	networks := make([]*net.IPNet, 0, len(raw))
	for _, entry := range raw {
		cidr, ok := entry.(string)
		if !ok {
			return nil, fmt.Errorf("allow entry %v is not a string", entry)
		}
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
		networks = append(networks, network)
	}

	return &Guard{networks: networks}, nil
}

// Factory returns the guard factory for registration
func Factory() contentdepot.GuardFactory {
	return New
}

// Name returns the guard variant name
func (g *Guard) Name() string { return GuardName }

// Evaluate allows the request when its source address falls inside one of
// the configured networks.
func (g *Guard) Evaluate(ctx context.Context, rc *contentdepot.RequestContext) (contentdepot.Decision, error) {
	host := rc.RemoteAddr
	if h, _, err := net.SplitHostPort(rc.RemoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return contentdepot.Deny(fmt.Sprintf("unparseable source address %q", rc.RemoteAddr)), nil
	}
	for _, network := range g.networks {
		if network.Contains(ip) {
			return contentdepot.Allow(), nil
		}
	}
	return contentdepot.Deny(fmt.Sprintf("source address %s not allowed", ip)), nil
}

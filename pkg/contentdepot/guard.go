package contentdepot

import (
	"context"
	"errors"
	"fmt"
)

// GuardChain is an ordered list of content guards. Evaluation is
// first-deny-wins: guards run in order, the first denial short-circuits the
// chain, and an empty chain allows.
type GuardChain []ContentGuard

// Evaluate runs the chain against the request context. A guard error is
// treated as a denial; a deadline exceeded during evaluation denies with
// ErrDeadlineExceeded's message, matching the contract that timeouts are
// denials rather than failures.
func (c GuardChain) Evaluate(ctx context.Context, rc *RequestContext) Decision {
	for _, guard := range c {
		if err := ctx.Err(); err != nil {
			return Deny(fmt.Sprintf("guard %s: %v", guard.Name(), ErrDeadlineExceeded))
		}
		decision, err := guard.Evaluate(ctx, rc)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return Deny(fmt.Sprintf("guard %s: %v", guard.Name(), ErrDeadlineExceeded))
			}
			return Deny(fmt.Sprintf("guard %s: %v", guard.Name(), err))
		}
		if !decision.Allowed {
			return decision
		}
	}
	return Allow()
}

// GuardChainFor builds the evaluation chain for a distribution from the
// registered guard factories. Unknown guard names fail rather than silently
// weakening the chain.
func (s *service) GuardChainFor(dist *Distribution) (GuardChain, error) {
	if len(dist.Guards) == 0 {
		return nil, nil
	}
	s.guardMu.RLock()
	defer s.guardMu.RUnlock()

	chain := make(GuardChain, 0, len(dist.Guards))
	for _, gc := range dist.Guards {
		factory, ok := s.guards[gc.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrGuardNotFound, gc.Name)
		}
		guard, err := factory(gc.Config)
		if err != nil {
			return nil, fmt.Errorf("guard %s: %w", gc.Name, err)
		}
		chain = append(chain, guard)
	}
	return chain, nil
}

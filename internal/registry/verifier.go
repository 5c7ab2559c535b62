// Package registry talks to the authoritative game-state registry: the only
// system that knows whether a (nation, verification code) pair is a
// legitimate, currently-controlled entity. It is consulted once per initial
// authentication and never on refresh.
package registry

import (
	"context"
	"time"

	"ledgergate/internal/auth"
)

// Verifier confirms a claimed identity against the external registry.
// A false result deliberately does not distinguish "nation not found" from
// "code mismatch" so callers cannot enumerate nations. Transport failures
// surface as errors, never as a verification failure.
type Verifier interface {
	Verify(ctx context.Context, claim auth.IdentityClaim) (bool, error)
}

// StaticVerifier answers from a fixed table with a configurable latency to
// mimic real-world calls. Used in tests and local development.
type StaticVerifier struct {
	// Codes maps nation id and ruler name to the expected unique code.
	Codes   map[string]string
	Latency time.Duration
	// Err, when set, is returned on every call (upstream outage simulation).
	Err error
}

func (v StaticVerifier) Verify(_ context.Context, claim auth.IdentityClaim) (bool, error) {
	time.Sleep(v.Latency)
	if v.Err != nil {
		return false, v.Err
	}
	key := claim.NationID
	if key == "" {
		key = claim.RulerName
	}
	code, ok := v.Codes[key]
	return ok && code == claim.UniqueCode, nil
}

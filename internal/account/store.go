// Package account resolves verified identities to internal accounts. The
// account store itself is an external collaborator: this package only reads
// from it, it never creates or mutates accounts.
package account

import (
	"context"
	"log/slog"

	"ledgergate/internal/audit"
	"ledgergate/internal/auth"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/requestcontext"
)

// Store looks up the account projection for an identity key.
//
// Error contract:
//   - CodeNotFound when no account matches the key
//   - CodeUpstreamUnavailable (or CodeTimeout) for infrastructure failures
//   - nil error with a non-nil account otherwise
type Store interface {
	Lookup(ctx context.Context, key auth.IdentityKey) (*auth.AuthorizedAccount, error)
}

// Resolver maps a verified identity claim to an AuthorizedAccount. It is a
// pure lookup with no implicit account creation; the only side effect is an
// audit event on successful resolution.
type Resolver struct {
	store  Store
	audit  *audit.Publisher
	logger *slog.Logger
}

// NewResolver builds a resolver. The audit publisher may be nil, in which
// case resolution events are not recorded.
func NewResolver(store Store, auditPublisher *audit.Publisher, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, audit: auditPublisher, logger: logger}
}

// Resolve returns the account for the claim's identity key. Absence is a
// distinct, reportable condition (CodeNotFound), never an empty role set.
func (r *Resolver) Resolve(ctx context.Context, claim auth.IdentityClaim) (*auth.AuthorizedAccount, error) {
	account, err := r.store.Lookup(ctx, claim.IdentityKey())
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			// Unclassified store failure: report it as an outage, not a rejection.
			return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "account store lookup failed")
		}
		return nil, err
	}

	r.logger.DebugContext(ctx, "account resolved",
		"request_id", requestcontext.RequestID(ctx),
		"account_id", account.AccountID,
		"roles", account.Roles,
	)
	if r.audit != nil {
		if err := r.audit.Emit(ctx, audit.Event{
			Action:    audit.ActionAccountResolved,
			NationID:  claim.NationID,
			RulerName: claim.RulerName,
			AccountID: account.AccountID,
			RequestID: requestcontext.RequestID(ctx),
			ClientIP:  requestcontext.ClientIP(ctx),
		}); err != nil {
			r.logger.WarnContext(ctx, "failed to record resolution event", "error", err)
		}
	}
	return account, nil
}

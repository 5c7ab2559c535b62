package service

import (
	"context"
	"log/slog"
	"time"

	"ledgergate/internal/audit"
	"ledgergate/internal/auth"
	"ledgergate/internal/auth/metrics"
	"ledgergate/internal/auth/token"
	"ledgergate/internal/registry"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/requestcontext"
)

// Service owns credential issuance and refresh. Verification against the
// game registry happens exactly once, at initial authentication; refresh
// trusts the claim embedded in the refresh token for its whole validity
// window (a recorded trade-off: a since-deleted nation keeps refreshing
// until its refresh token expires).
type Service struct {
	codec      *token.Codec
	verifier   registry.Verifier
	audit      *audit.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(
	codec *token.Codec,
	verifier registry.Verifier,
	auditPublisher *audit.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *Service {
	return &Service{
		codec:      codec,
		verifier:   verifier,
		audit:      auditPublisher,
		logger:     logger,
		metrics:    m,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Authenticate confirms the claim against the external registry and mints an
// access/refresh pair. Verification failure is opaque: the caller cannot
// tell a missing nation from a wrong code. Registry outages surface as
// upstream errors, never as a rejection.
func (s *Service) Authenticate(ctx context.Context, claim auth.IdentityClaim) (*auth.TokenPair, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveAuthenticateLatency(time.Since(start))
	}()

	requestID := requestcontext.RequestID(ctx)

	if err := claim.Validate(); err != nil {
		s.metrics.IncrementOutcome("invalid_request")
		return nil, err
	}

	ok, err := s.verifier.Verify(ctx, claim)
	if err != nil {
		s.metrics.IncrementOutcome("upstream_error")
		s.logger.ErrorContext(ctx, "registry verification failed",
			"request_id", requestID,
			"nation_id", claim.NationID,
			"ruler_name", claim.RulerName,
			"error", err,
		)
		return nil, err
	}
	if !ok {
		s.metrics.IncrementOutcome("unauthorized")
		s.emitAudit(ctx, audit.ActionAuthFailed, claim, 0, "registry rejected claim")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
	}

	pair, err := s.issueTokenPair(ctx, claim, "authenticate")
	if err != nil {
		s.metrics.IncrementOutcome("error")
		return nil, err
	}

	s.metrics.IncrementOutcome("success")
	s.emitAudit(ctx, audit.ActionAuthenticated, claim, 0, "")
	s.logger.InfoContext(ctx, "account authenticated",
		"request_id", requestID,
		"nation_id", claim.NationID,
		"ruler_name", claim.RulerName,
	)
	return pair, nil
}

// Refresh mints a fresh pair from the claim embedded in a refresh token. Any
// decode failure, and any non-refresh credential, collapses into a single
// unauthorized signal; the precise reason only reaches the log.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	requestID := requestcontext.RequestID(ctx)

	if refreshToken == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "refresh token required")
	}

	claim, class, err := s.codec.Decode(refreshToken)
	if err != nil {
		s.logger.WarnContext(ctx, "refresh token rejected",
			"request_id", requestID,
			"reason", err.Error(),
		)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
	}
	if class != token.ClassRefresh {
		s.logger.WarnContext(ctx, "refresh token rejected",
			"request_id", requestID,
			"reason", "wrong token class",
			"class", string(class),
		)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
	}

	pair, err := s.issueTokenPair(ctx, claim, "refresh")
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionTokenRefreshed, claim, 0, "")
	s.logger.InfoContext(ctx, "tokens refreshed",
		"request_id", requestID,
		"nation_id", claim.NationID,
		"ruler_name", claim.RulerName,
	)
	return pair, nil
}

// ReadToken decodes a credential and collapses every failure into a single
// "not authenticated" signal for callers, keeping the precise codec reason
// in the log.
func (s *Service) ReadToken(ctx context.Context, tokenString string) (*auth.IdentityClaim, token.Class, bool) {
	claim, class, err := s.codec.Decode(tokenString)
	if err != nil {
		s.logger.WarnContext(ctx, "token rejected",
			"request_id", requestcontext.RequestID(ctx),
			"reason", err.Error(),
		)
		return nil, "", false
	}
	return &claim, class, true
}

func (s *Service) issueTokenPair(ctx context.Context, claim auth.IdentityClaim, grant string) (*auth.TokenPair, error) {
	now := requestcontext.Now(ctx)

	accessToken, err := s.codec.Encode(claim, token.ClassAccess, now, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.Encode(claim, token.ClassRefresh, now, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTokensIssued(string(token.ClassAccess), grant)
	s.metrics.IncrementTokensIssued(string(token.ClassRefresh), grant)

	return &auth.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, claim auth.IdentityClaim, accountID int64, reason string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Action:    action,
		NationID:  claim.NationID,
		RulerName: claim.RulerName,
		AccountID: accountID,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Reason:    reason,
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", string(action),
			"error", err,
		)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ledgergate/internal/auth"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/httputil"
	"ledgergate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/auth-mocks.go -package=mocks

// Service issues and renews token pairs for verified identities.
type Service interface {
	Authenticate(ctx context.Context, claim auth.IdentityClaim) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
}

type Handler struct {
	service Service
	gate    func(http.Handler) http.Handler
	logger  *slog.Logger
}

func New(service Service, gate func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		gate:    gate,
		logger:  logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/user/authenticate", h.handleAuthenticate)
	r.Post("/user/refresh", h.handleRefresh)
	r.Group(func(r chi.Router) {
		r.Use(h.gate)
		r.Get("/user/account", h.handleAccount)
	})
}

// flexInt64 accepts both JSON numbers and quoted numbers. Discord
// snowflakes overflow double precision, so well-behaved clients send
// them as strings, but older ones still send bare numbers.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "discordUniqueId must be an integer")
	}
	*f = flexInt64(v)
	return nil
}

type authenticateRequest struct {
	UniqueCode              string    `json:"uniqueCode"`
	NationID                string    `json:"nationId"`
	RulerName               string    `json:"rulerName"`
	Role                    string    `json:"role"`
	Discord                 string    `json:"discord"`
	DiscordUniqueID         flexInt64 `json:"discordUniqueId"`
	HasForeignMinistry      bool      `json:"hasForeignMinistry"`
	HasFederalAidCommission bool      `json:"hasFederalAidCommission"`
	HasDisasterReliefAgency bool      `json:"hasDisasterReliefAgency"`
}

func (r authenticateRequest) toClaim() auth.IdentityClaim {
	return auth.IdentityClaim{
		UniqueCode:              strings.TrimSpace(r.UniqueCode),
		NationID:                strings.TrimSpace(r.NationID),
		RulerName:               strings.TrimSpace(r.RulerName),
		Role:                    r.Role,
		Discord:                 r.Discord,
		DiscordUniqueID:         int64(r.DiscordUniqueID),
		HasForeignMinistry:      r.HasForeignMinistry,
		HasFederalAidCommission: r.HasFederalAidCommission,
		HasDisasterReliefAgency: r.HasDisasterReliefAgency,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(slog.String("request_id", requestcontext.RequestID(ctx)))

	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("failed to decode authenticate request", slog.String("error", err.Error()))
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	pair, err := h.service.Authenticate(ctx, req.toClaim())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(slog.String("request_id", requestcontext.RequestID(ctx)))

	// A body that cannot be decoded carries no refresh token, which is
	// the same failure as an absent field.
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("failed to decode refresh request", slog.String("error", err.Error()))
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token"))
		return
	}

	pair, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := requestcontext.Account(ctx)
	if account == nil {
		// The gate guarantees an account on this route. Reaching here
		// means the route was mounted without it.
		h.logger.Error("account route reached without authorized account")
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
		return
	}

	h.logger.InfoContext(ctx, "account fetched",
		slog.String("request_id", requestcontext.RequestID(ctx)),
		slog.Int64("account_id", account.AccountID),
		slog.Any("roles", account.Roles),
	)
	httputil.WriteJSON(w, http.StatusOK, account)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ledgergate/internal/auth"
	"ledgergate/internal/auth/handler/mocks"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/requestcontext"
)

type AuthHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *AuthHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

// passGate stands in for the bearer gate and attaches a fixed account.
func passGate(account *auth.AuthorizedAccount) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if account == nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithAccount(r.Context(), account)))
		})
	}
}

func newTestRouter(t *testing.T, account *auth.AuthorizedAccount) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, passGate(account), logger).Register(r)
	return r, mockService
}

func (s *AuthHandlerSuite) TestAuthenticate_ReturnsTokenPair() {
	r, mockService := newTestRouter(s.T(), nil)
	mockService.EXPECT().Authenticate(gomock.Any(), auth.IdentityClaim{
		UniqueCode:      "ABC123",
		RulerName:       "Atlantis",
		Role:            "S",
		Discord:         "ruler#1234",
		DiscordUniqueID: 123456789012345678,
	}).Return(&auth.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil)

	body := []byte(`{
		"uniqueCode": "ABC123",
		"rulerName": "Atlantis",
		"role": "S",
		"discord": "ruler#1234",
		"discordUniqueId": "123456789012345678"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/user/authenticate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "acc", resp["access_token"])
	assert.Equal(s.T(), "ref", resp["refresh_token"])
}

func (s *AuthHandlerSuite) TestAuthenticate_NumericDiscordID() {
	r, mockService := newTestRouter(s.T(), nil)
	mockService.EXPECT().Authenticate(gomock.Any(), auth.IdentityClaim{
		UniqueCode:      "ABC123",
		NationID:        "42",
		DiscordUniqueID: 987654321,
	}).Return(&auth.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, nil)

	body := []byte(`{"uniqueCode": "ABC123", "nationId": "42", "discordUniqueId": 987654321}`)
	req := httptest.NewRequest(http.MethodPost, "/user/authenticate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *AuthHandlerSuite) TestAuthenticate_MalformedBody() {
	r, _ := newTestRouter(s.T(), nil)

	req := httptest.NewRequest(http.MethodPost, "/user/authenticate", bytes.NewReader([]byte(`{not json`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *AuthHandlerSuite) TestAuthenticate_ValidationErrorMapsTo400() {
	r, mockService := newTestRouter(s.T(), nil)
	mockService.EXPECT().Authenticate(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeValidation, "uniqueCode is required"))

	req := httptest.NewRequest(http.MethodPost, "/user/authenticate", bytes.NewReader([]byte(`{"rulerName": "Atlantis"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "uniqueCode is required", resp["error_description"])
}

func (s *AuthHandlerSuite) TestAuthenticate_RejectionMapsTo401() {
	r, mockService := newTestRouter(s.T(), nil)
	mockService.EXPECT().Authenticate(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnauthorized, "authentication failed"))

	req := httptest.NewRequest(http.MethodPost, "/user/authenticate", bytes.NewReader([]byte(`{"uniqueCode": "BAD", "nationId": "42"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *AuthHandlerSuite) TestAuthenticate_UpstreamOutageMapsTo503() {
	r, mockService := newTestRouter(s.T(), nil)
	mockService.EXPECT().Authenticate(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUpstreamUnavailable, "identity registry unavailable"))

	req := httptest.NewRequest(http.MethodPost, "/user/authenticate", bytes.NewReader([]byte(`{"uniqueCode": "ABC123", "nationId": "42"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusServiceUnavailable, w.Code)
}

func (s *AuthHandlerSuite) TestRefresh_ReturnsFreshPair() {
	r, mockService := newTestRouter(s.T(), nil)
	mockService.EXPECT().Refresh(gomock.Any(), "old-refresh").
		Return(&auth.TokenPair{AccessToken: "new-acc", RefreshToken: "new-ref"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/user/refresh", bytes.NewReader([]byte(`{"refresh_token": "old-refresh"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "new-acc", resp["access_token"])
	assert.Equal(s.T(), "new-ref", resp["refresh_token"])
}

func (s *AuthHandlerSuite) TestRefresh_MalformedBodyIsUnauthorized() {
	r, _ := newTestRouter(s.T(), nil)

	req := httptest.NewRequest(http.MethodPost, "/user/refresh", bytes.NewReader([]byte(`not json`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *AuthHandlerSuite) TestRefresh_InvalidTokenIsUnauthorized() {
	r, mockService := newTestRouter(s.T(), nil)
	mockService.EXPECT().Refresh(gomock.Any(), "nonsense").
		Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token"))

	req := httptest.NewRequest(http.MethodPost, "/user/refresh", bytes.NewReader([]byte(`{"refresh_token": "nonsense"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *AuthHandlerSuite) TestAccount_ReturnsAuthorizedAccount() {
	account := &auth.AuthorizedAccount{AccountID: 7, Roles: []string{"S", "foreign_ministry"}}
	r, _ := newTestRouter(s.T(), account)

	req := httptest.NewRequest(http.MethodGet, "/user/account", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), float64(7), resp["accountId"])
	assert.Equal(s.T(), []any{"S", "foreign_ministry"}, resp["roles"])
}

func (s *AuthHandlerSuite) TestAccount_GateRejectsBeforeHandler() {
	r, _ := newTestRouter(s.T(), nil)

	req := httptest.NewRequest(http.MethodGet, "/user/account", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

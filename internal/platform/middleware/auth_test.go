package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgergate/internal/auth"
	"ledgergate/internal/auth/token"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/requestcontext"
)

type fakeReader struct {
	claim *auth.IdentityClaim
	class token.Class
	ok    bool
}

func (r fakeReader) ReadToken(context.Context, string) (*auth.IdentityClaim, token.Class, bool) {
	return r.claim, r.class, r.ok
}

type fakeResolver struct {
	account *auth.AuthorizedAccount
	err     error
}

func (r fakeResolver) Resolve(context.Context, auth.IdentityClaim) (*auth.AuthorizedAccount, error) {
	return r.account, r.err
}

func runGate(t *testing.T, reader TokenReader, resolver AccountResolver, authHeader string) (*httptest.ResponseRecorder, *auth.AuthorizedAccount) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen *auth.AuthorizedAccount
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Account(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/user/account", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	RequireAuth(reader, resolver, logger)(next).ServeHTTP(w, req)
	return w, seen
}

var gateClaim = &auth.IdentityClaim{RulerName: "Atlantis", UniqueCode: "ABC123"}
var gateAccount = &auth.AuthorizedAccount{AccountID: 7, Roles: []string{"S"}}

func TestRequireAuth_NoCredential(t *testing.T) {
	w, seen := runGate(t, fakeReader{}, fakeResolver{}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, seen)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	w, seen := runGate(t, fakeReader{}, fakeResolver{}, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, seen)
}

func TestRequireAuth_UnreadableToken(t *testing.T) {
	w, seen := runGate(t, fakeReader{ok: false}, fakeResolver{}, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, seen)
}

func TestRequireAuth_RefreshTokenIsNotABearerCredential(t *testing.T) {
	reader := fakeReader{claim: gateClaim, class: token.ClassRefresh, ok: true}
	w, seen := runGate(t, reader, fakeResolver{account: gateAccount}, "Bearer refresh-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, seen)
}

// A valid token for a missing account must look exactly like no token.
func TestRequireAuth_AccountNotFoundMatchesNoToken(t *testing.T) {
	reader := fakeReader{claim: gateClaim, class: token.ClassAccess, ok: true}
	resolver := fakeResolver{err: dErrors.New(dErrors.CodeNotFound, "no account matches the identity")}

	withToken, _ := runGate(t, reader, resolver, "Bearer valid-token")
	withoutToken, _ := runGate(t, fakeReader{}, fakeResolver{}, "")

	assert.Equal(t, http.StatusUnauthorized, withToken.Code)
	assert.Equal(t, withoutToken.Code, withToken.Code)
	assert.JSONEq(t, withoutToken.Body.String(), withToken.Body.String())
}

func TestRequireAuth_StoreOutageIsNotUnauthorized(t *testing.T) {
	reader := fakeReader{claim: gateClaim, class: token.ClassAccess, ok: true}
	resolver := fakeResolver{err: dErrors.New(dErrors.CodeUpstreamUnavailable, "account store lookup failed")}

	w, seen := runGate(t, reader, resolver, "Bearer valid-token")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Nil(t, seen)
}

func TestRequireAuth_AttachesAccount(t *testing.T) {
	reader := fakeReader{claim: gateClaim, class: token.ClassAccess, ok: true}
	w, seen := runGate(t, reader, fakeResolver{account: gateAccount}, "Bearer valid-token")

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, gateAccount, seen)
}

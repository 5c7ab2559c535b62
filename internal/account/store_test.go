package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgergate/internal/auth"
	dErrors "ledgergate/pkg/domain-errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryStore_LookupByNationID(t *testing.T) {
	store := NewMemoryStore(Record{AccountID: 7, NationID: "100541", RulerName: "Atlantis", Roles: []string{"S"}})

	account, err := store.Lookup(context.Background(), auth.IdentityKey{NationID: "100541"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), account.AccountID)
	assert.Equal(t, []string{"S"}, account.Roles)
}

func TestMemoryStore_LookupByRulerName(t *testing.T) {
	store := NewMemoryStore(Record{AccountID: 7, NationID: "100541", RulerName: "Atlantis", Roles: []string{"S"}})

	account, err := store.Lookup(context.Background(), auth.IdentityKey{RulerName: "Atlantis"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), account.AccountID)
}

func TestMemoryStore_NotFoundIsDistinct(t *testing.T) {
	store := NewMemoryStore()

	account, err := store.Lookup(context.Background(), auth.IdentityKey{RulerName: "Nowhere"})
	assert.Nil(t, account)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestResolver_PassesThroughNotFound(t *testing.T) {
	resolver := NewResolver(NewMemoryStore(), nil, discardLogger())

	_, err := resolver.Resolve(context.Background(), auth.IdentityClaim{RulerName: "Nowhere", UniqueCode: "ABC"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

type failingStore struct{ err error }

func (s failingStore) Lookup(context.Context, auth.IdentityKey) (*auth.AuthorizedAccount, error) {
	return nil, s.err
}

func TestResolver_UnclassifiedFailureBecomesUpstream(t *testing.T) {
	resolver := NewResolver(failingStore{err: errors.New("connection reset")}, nil, discardLogger())

	_, err := resolver.Resolve(context.Background(), auth.IdentityClaim{NationID: "1", UniqueCode: "ABC"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable))
}

func TestResolver_KeepsDomainErrorKind(t *testing.T) {
	resolver := NewResolver(failingStore{err: dErrors.New(dErrors.CodeTimeout, "store timed out")}, nil, discardLogger())

	_, err := resolver.Resolve(context.Background(), auth.IdentityClaim{NationID: "1", UniqueCode: "ABC"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

// Resolve is a pure lookup: repeated calls return the same projection.
func TestResolver_Idempotent(t *testing.T) {
	resolver := NewResolver(NewMemoryStore(
		Record{AccountID: 42, RulerName: "Atlantis", Roles: []string{"S", "foreign_ministry"}},
	), nil, discardLogger())
	claim := auth.IdentityClaim{RulerName: "Atlantis", UniqueCode: "ABC123"}

	first, err := resolver.Resolve(context.Background(), claim)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), claim)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

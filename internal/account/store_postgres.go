package account

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"

	"ledgergate/internal/auth"
	dErrors "ledgergate/pkg/domain-errors"
	pstrings "ledgergate/pkg/platform/strings"
)

// PostgresStore reads account projections from the external account
// database. The subsystem never writes to it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing connection pool. The caller owns the
// pool's lifecycle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a lib/pq pool and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open account database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "account database unreachable")
	}
	return db, nil
}

// Lookup fetches the account row keyed by nation id or ruler name and
// projects it to the role-tag shape. The base role char always leads the
// slice; ministry grants follow as capability tags.
func (s *PostgresStore) Lookup(ctx context.Context, key auth.IdentityKey) (*auth.AuthorizedAccount, error) {
	const query = `
		SELECT id, role,
		       has_foreign_ministry,
		       has_federal_aid_commission,
		       has_disaster_relief_agency
		FROM accounts
		WHERE ($1 <> '' AND nation_id = $1)
		   OR ($2 <> '' AND ruler_name = $2)
	`

	var (
		accountID            int64
		role                 string
		foreignMinistry      bool
		federalAidCommission bool
		disasterReliefAgency bool
	)
	err := s.db.QueryRowContext(ctx, query, key.NationID, key.RulerName).Scan(
		&accountID, &role, &foreignMinistry, &federalAidCommission, &disasterReliefAgency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no account matches the identity")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "account lookup query failed")
	}

	roles := []string{role}
	if foreignMinistry {
		roles = append(roles, "foreign_ministry")
	}
	if federalAidCommission {
		roles = append(roles, "federal_aid_commission")
	}
	if disasterReliefAgency {
		roles = append(roles, "disaster_relief_agency")
	}

	return &auth.AuthorizedAccount{AccountID: accountID, Roles: pstrings.DedupeAndTrim(roles)}, nil
}

package account

import (
	"context"
	"sync"

	"ledgergate/internal/auth"
	dErrors "ledgergate/pkg/domain-errors"
	pstrings "ledgergate/pkg/platform/strings"
)

// Record is a seeded account entry for the in-memory store.
type Record struct {
	AccountID int64
	NationID  string
	RulerName string
	Roles     []string
}

// MemoryStore keeps account records in memory for tests and local dev.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore constructs a store seeded with the given records.
func NewMemoryStore(records ...Record) *MemoryStore {
	return &MemoryStore{records: records}
}

// Add seeds another record. Test helper; the production collaborator is
// read-only.
func (s *MemoryStore) Add(record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *MemoryStore) Lookup(_ context.Context, key auth.IdentityKey) (*auth.AuthorizedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.records {
		if key.NationID != "" && record.NationID == key.NationID {
			return toAccount(record), nil
		}
		if key.RulerName != "" && record.RulerName == key.RulerName {
			return toAccount(record), nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "no account matches the identity")
}

func toAccount(record Record) *auth.AuthorizedAccount {
	return &auth.AuthorizedAccount{AccountID: record.AccountID, Roles: pstrings.DedupeAndTrim(record.Roles)}
}

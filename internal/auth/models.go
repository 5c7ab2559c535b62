package auth

import dErrors "ledgergate/pkg/domain-errors"

// IdentityClaim is the unverified assertion a client submits to prove it
// controls a nation in the game registry. Exactly one of NationID or
// RulerName identifies the nation; UniqueCode is the secret the nation's
// owner placed on their in-game profile. The remaining fields are metadata
// carried through token round-trips but never used for authorization
// decisions (role truth comes from the account store).
type IdentityClaim struct {
	NationID                string
	RulerName               string
	UniqueCode              string
	Role                    string
	Discord                 string
	DiscordUniqueID         int64
	HasForeignMinistry      bool
	HasFederalAidCommission bool
	HasDisasterReliefAgency bool
}

// Validate enforces the request contract: UniqueCode is required and exactly
// one of NationID/RulerName must be present.
func (c IdentityClaim) Validate() error {
	if c.UniqueCode == "" {
		return dErrors.New(dErrors.CodeValidation, "must provide a uniqueCode parameter in the request")
	}
	if c.NationID == "" && c.RulerName == "" {
		return dErrors.New(dErrors.CodeValidation, "must provide either a nationId or rulerName parameter in the request")
	}
	if c.NationID != "" && c.RulerName != "" {
		return dErrors.New(dErrors.CodeValidation, "provide only one of nationId or rulerName, not both")
	}
	return nil
}

// IdentityKey is the canonical lookup key shared by the registry verifier and
// the account store.
func (c IdentityClaim) IdentityKey() IdentityKey {
	return IdentityKey{NationID: c.NationID, RulerName: c.RulerName}
}

// IdentityKey identifies a nation by whichever attribute the client supplied.
type IdentityKey struct {
	NationID  string
	RulerName string
}

// TokenPair is the result of a successful authentication or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthorizedAccount is the internal projection of a verified identity after
// lookup in the account store. It exists only for identities the store
// knows about; an unknown identity is a NotFound condition, never an
// account with zero roles.
type AuthorizedAccount struct {
	AccountID int64    `json:"accountId"`
	Roles     []string `json:"roles"`
}

package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ledgergate/internal/auth"
	dErrors "ledgergate/pkg/domain-errors"
)

// Class distinguishes the two credential kinds minted from the same claim
// payload. Access tokens authorize protected requests; refresh tokens are
// accepted only by the refresh endpoint. The two are never interchangeable.
type Class string

const (
	ClassAccess  Class = "access"
	ClassRefresh Class = "refresh"
)

// Claims is the JWT payload for both credential classes: the identity claim
// fields plus the class marker and the registered time bounds.
type Claims struct {
	NationID                string `json:"nation_id,omitempty"`
	RulerName               string `json:"ruler_name,omitempty"`
	UniqueCode              string `json:"unique_code"`
	Role                    string `json:"role,omitempty"`
	Discord                 string `json:"discord,omitempty"`
	DiscordUniqueID         int64  `json:"discord_unique_id,omitempty"`
	HasForeignMinistry      bool   `json:"has_foreign_ministry,omitempty"`
	HasFederalAidCommission bool   `json:"has_federal_aid_commission,omitempty"`
	HasDisasterReliefAgency bool   `json:"has_disaster_relief_agency,omitempty"`
	TokenUse                string `json:"token_use"`
	jwt.RegisteredClaims
}

// Codec signs and verifies credentials with a process-wide HS256 key loaded
// once at startup. Decoding is pure: no I/O, no state.
type Codec struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewCodec(signingKey string, issuer string, audience string) *Codec {
	return &Codec{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Encode mints a signed credential of the given class, issued at now and
// expiring at now + ttl. It never fails for a well-formed claim.
func (c *Codec) Encode(claim auth.IdentityClaim, class Class, now time.Time, ttl time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		NationID:                claim.NationID,
		RulerName:               claim.RulerName,
		UniqueCode:              claim.UniqueCode,
		Role:                    claim.Role,
		Discord:                 claim.Discord,
		DiscordUniqueID:         claim.DiscordUniqueID,
		HasForeignMinistry:      claim.HasForeignMinistry,
		HasFederalAidCommission: claim.HasFederalAidCommission,
		HasDisasterReliefAgency: claim.HasDisasterReliefAgency,
		TokenUse:                string(class),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.issuer,
			Audience:  []string{c.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(c.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signedToken, nil
}

// Decode verifies the signature and expiry and returns the embedded claim
// with its class marker. The error kind is precise so callers can log the
// real reason before collapsing it into "not authenticated":
//
//	CodeBadRequest   - the token cannot be parsed at all
//	CodeUnauthorized - expired ("token has expired") or signature mismatch
func (c *Codec) Decode(tokenString string) (auth.IdentityClaim, Class, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return auth.IdentityClaim{}, "", dErrors.New(dErrors.CodeBadRequest, "malformed token")
		case errors.Is(err, jwt.ErrTokenExpired):
			return auth.IdentityClaim{}, "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		default:
			return auth.IdentityClaim{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return auth.IdentityClaim{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	claim := auth.IdentityClaim{
		NationID:                claims.NationID,
		RulerName:               claims.RulerName,
		UniqueCode:              claims.UniqueCode,
		Role:                    claims.Role,
		Discord:                 claims.Discord,
		DiscordUniqueID:         claims.DiscordUniqueID,
		HasForeignMinistry:      claims.HasForeignMinistry,
		HasFederalAidCommission: claims.HasFederalAidCommission,
		HasDisasterReliefAgency: claims.HasDisasterReliefAgency,
	}
	return claim, Class(claims.TokenUse), nil
}

package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshTokenClaims is a struct that represents the claims section of a JWT for the refresh token.
// It sits between the JSON representation in the token and the [RefreshToken] Go struct.
// Type is always "refresh"; the verifier rejects anything else on the refresh path.
type RefreshTokenClaims struct {
	Tenant string `json:"dev"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// ==============================================

type RefreshToken struct {
	issuer     string
	issuedAt   time.Time
	expiration time.Time
	audience   string
	subject    string
	tenant     string
	encoded    string
}

func (t *RefreshToken) Issuer() string        { return t.issuer }
func (t *RefreshToken) IssuedAt() time.Time   { return t.issuedAt }
func (t *RefreshToken) Expiration() time.Time { return t.expiration }
func (t *RefreshToken) Audience() string      { return t.audience }
func (t *RefreshToken) Subject() string       { return t.subject }
func (t *RefreshToken) Tenant() string        { return t.tenant }
func (t *RefreshToken) Encoded() string       { return t.encoded }

func (token *RefreshToken) intoClaims() *RefreshTokenClaims {
	return &RefreshTokenClaims{
		Tenant: token.tenant,
		Type:   refreshType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    token.issuer,
			Subject:   token.subject,
			Audience:  jwt.ClaimStrings{token.audience},
			IssuedAt:  jwt.NewNumericDate(token.issuedAt),
			ExpiresAt: jwt.NewNumericDate(token.expiration),
		},
	}
}

func (token *RefreshToken) fromClaims(claims *RefreshTokenClaims, encToken string) {
	token.issuer = claims.Issuer
	token.issuedAt = numericDate(claims.IssuedAt)
	token.expiration = numericDate(claims.ExpiresAt)
	token.audience = firstAudience(claims.Audience)
	token.subject = claims.Subject
	token.tenant = claims.Tenant
	token.encoded = encToken
}

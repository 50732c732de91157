package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ==============================================

// AccessTokenClaims represents the JWT claims for an access token.
// It carries the registered claims (sub, iss, aud, iat, exp) plus the tenant
// the user belongs to and the user's email, and sits between the JSON
// representation in the token and the AccessToken Go struct.
type AccessTokenClaims struct {
	Tenant string `json:"dev"`
	Email  string `json:"email"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// ==============================================

// AccessToken represents a short-lived JWT used for API authorization.
// The subject is a user id (or a developer id for dashboard sessions) and the
// tenant is the id of the developer whose user pool the subject lives in.
type AccessToken struct {
	issuer     string
	issuedAt   time.Time
	expiration time.Time
	audience   string
	subject    string
	tenant     string
	email      string
	encoded    string
}

func (t *AccessToken) Issuer() string        { return t.issuer }
func (t *AccessToken) IssuedAt() time.Time   { return t.issuedAt }
func (t *AccessToken) Expiration() time.Time { return t.expiration }
func (t *AccessToken) Audience() string      { return t.audience }
func (t *AccessToken) Subject() string       { return t.subject }
func (t *AccessToken) Tenant() string        { return t.tenant }
func (t *AccessToken) Email() string         { return t.email }
func (t *AccessToken) Encoded() string       { return t.encoded }

func (token *AccessToken) intoClaims() *AccessTokenClaims {
	return &AccessTokenClaims{
		Tenant: token.tenant,
		Email:  token.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    token.issuer,
			Subject:   token.subject,
			Audience:  jwt.ClaimStrings{token.audience},
			IssuedAt:  jwt.NewNumericDate(token.issuedAt),
			ExpiresAt: jwt.NewNumericDate(token.expiration),
		},
	}
}

func (token *AccessToken) fromClaims(claims *AccessTokenClaims, encToken string) {
	token.issuer = claims.Issuer
	token.issuedAt = numericDate(claims.IssuedAt)
	token.expiration = numericDate(claims.ExpiresAt)
	token.audience = firstAudience(claims.Audience)
	token.subject = claims.Subject
	token.tenant = claims.Tenant
	token.email = claims.Email
	token.encoded = encToken
}

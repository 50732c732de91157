package tokens

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultIssuer     = "yourauth.dev"
	DefaultAudience   = "yourauth-users"
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	refreshType = "refresh"
)

var (
	ErrTokenInvalid    = errors.New("token invalid")
	ErrKeyProvisioning = errors.New("key provisioning failed")
	ErrKeyUnavailable  = errors.New("signing key unavailable")
)

var (
	ErrTokenMalformed       = fmt.Errorf("%w: malformed", ErrTokenInvalid)
	ErrTokenBadSignature    = fmt.Errorf("%w: bad signature", ErrTokenInvalid)
	ErrTokenInvalidAudience = fmt.Errorf("%w: invalid audience", ErrTokenInvalid)
	ErrTokenInvalidIssuer   = fmt.Errorf("%w: invalid issuer", ErrTokenInvalid)
	ErrTokenExpired         = fmt.Errorf("%w: expired", ErrTokenInvalid)
	ErrTokenNotIssued       = fmt.Errorf("%w: not issued yet", ErrTokenInvalid)
	ErrTokenWrongType       = fmt.Errorf("%w: wrong token type", ErrTokenInvalid)
)

// validateError carries the parser's detail in Context(); Error() only
// names the failure class.
type validateError struct {
	context string
	err     error
}

func (t *validateError) Context() string {
	return t.context
}
func (t *validateError) Error() string {
	return fmt.Sprintf("%v", t.err)
}
func (t *validateError) Unwrap() error {
	return t.err
}

type Issuer interface {
	IssueAccessToken(subject string, tenant string, email string) (*AccessToken, error)
	IssueRefreshToken(subject string, tenant string) (*RefreshToken, error)
}

type Validator interface {
	VerifyAccessToken(string) (*AccessToken, error)
	VerifyRefreshToken(string) (*RefreshToken, error)
}

// Options configures issuing and validation. Zero values fall back to the
// package defaults.
type Options struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Issuer == "" {
		o.Issuer = DefaultIssuer
	}
	if o.Audience == "" {
		o.Audience = DefaultAudience
	}
	if o.AccessTTL <= 0 {
		o.AccessTTL = DefaultAccessTTL
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = DefaultRefreshTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func InitServer(
	keys *KeyPair,
	opts Options,
) (
	Issuer,
	Validator,
) {
	opts = opts.withDefaults()
	server := &Server{
		keys: keys,
		opts: opts,
		verifier: verifier{
			key:  keys.PublicKey(),
			opts: opts,
		},
	}
	return server, server
}

func InitClient(
	verificationKey *rsa.PublicKey,
	opts Options,
) Validator {
	return &Client{
		verifier: verifier{
			key:  verificationKey,
			opts: opts.withDefaults(),
		},
	}
}

type verifier struct {
	key  *rsa.PublicKey
	opts Options
}

func (v *verifier) parse(tokenStr string, claims jwt.Claims) *validateError {
	if v.key == nil {
		return &validateError{
			context: "no verification key loaded",
			err:     ErrTokenBadSignature,
		}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.opts.Issuer),
		jwt.WithAudience(v.opts.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.opts.Now),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return &validateError{
			context: err.Error(),
			err:     classify(err),
		}
	}
	return nil
}

func (v *verifier) VerifyAccessToken(tokenStr string) (*AccessToken, error) {
	claims := &AccessTokenClaims{}
	if err := v.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Type != "" {
		return nil, &validateError{
			context: fmt.Sprintf("access token carries type %q", claims.Type),
			err:     ErrTokenWrongType,
		}
	}
	token := &AccessToken{}
	token.fromClaims(claims, tokenStr)
	return token, nil
}

func (v *verifier) VerifyRefreshToken(tokenStr string) (*RefreshToken, error) {
	claims := &RefreshTokenClaims{}
	if err := v.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Type != refreshType {
		return nil, &validateError{
			context: fmt.Sprintf("refresh token carries type %q", claims.Type),
			err:     ErrTokenWrongType,
		}
	}
	token := &RefreshToken{}
	token.fromClaims(claims, tokenStr)
	return token, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotIssued
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrTokenInvalidIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrTokenInvalidAudience
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenBadSignature
	default:
		return ErrTokenMalformed
	}
}

func numericDate(t *jwt.NumericDate) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

func firstAudience(aud jwt.ClaimStrings) string {
	if len(aud) == 0 {
		return ""
	}
	return aud[0]
}

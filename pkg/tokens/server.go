package tokens

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Server implements both Issuer and Validator interfaces for the auth service.
// It holds the key pair for signing tokens and the public half for
// verification. Create a Server instance using InitServer.
type Server struct {
	keys *KeyPair
	opts Options
	verifier
}

//
// Issuer interface

func (server *Server) IssueAccessToken(
	subject string,
	tenant string,
	email string,
) (*AccessToken, error) {

	now := server.opts.Now()
	token := &AccessToken{
		issuer:     server.opts.Issuer,
		issuedAt:   now,
		expiration: now.Add(server.opts.AccessTTL),
		audience:   server.opts.Audience,
		subject:    subject,
		tenant:     tenant,
		email:      email,
	}

	encodedToken, err := server.sign(token.intoClaims())
	if err != nil {
		return nil, fmt.Errorf("failed to encode access token: %w", err)
	}
	token.encoded = encodedToken

	return token, nil
}

func (server *Server) IssueRefreshToken(
	subject string,
	tenant string,
) (*RefreshToken, error) {

	now := server.opts.Now()
	token := &RefreshToken{
		issuer:     server.opts.Issuer,
		issuedAt:   now,
		expiration: now.Add(server.opts.RefreshTTL),
		audience:   server.opts.Audience,
		subject:    subject,
		tenant:     tenant,
	}

	encodedToken, err := server.sign(token.intoClaims())
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh token: %w", err)
	}
	token.encoded = encodedToken

	return token, nil
}

func (server *Server) sign(claims jwt.Claims) (string, error) {
	signingKey := server.keys.PrivateKey()
	if signingKey == nil {
		return "", ErrKeyUnavailable
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = KeyID
	return token.SignedString(signingKey)
}

// Package tokens provides RSA key provisioning, JWT issuing and validation,
// and JWKS publication for the yourauth service.
//
// Tokens are RS256 signed JSON Web Tokens with two distinct roles:
//
//   - Server: Issues and validates tokens using the service KeyPair
//   - Client: Validates tokens using only the public key (or a JWKS document)
//
// The package defines two token types:
//
//   - AccessToken: Short-lived (15 minutes by default), carries sub, dev and email
//   - RefreshToken: Long-lived (7 days by default), carries sub, dev and type "refresh"
//
// # Server Usage (Issuing Tokens)
//
//	keys, err := tokens.EnsureKeys("keys")
//	if err != nil {
//	    log.Fatal(err) // errors.Is(err, tokens.ErrKeyProvisioning)
//	}
//	issuer, validator := tokens.InitServer(keys, tokens.Options{
//	    Issuer:   "yourauth.dev",
//	    Audience: "yourauth-users",
//	})
//
//	access, err := issuer.IssueAccessToken(userID, developerID, email)
//	refresh, err := issuer.IssueRefreshToken(userID, developerID)
//	tokenString := access.Encoded()
//
// # Client Usage (Validating Tokens)
//
//	key, err := tokens.ParseJWKS(jwksDocument)
//	validator := tokens.InitClient(key, tokens.Options{})
//	token, err := validator.VerifyAccessToken(tokenString)
//
// # Error Handling
//
// Every validation failure satisfies errors.Is(err, ErrTokenInvalid). The
// finer sentinels distinguish the cause:
//
//	_, err := validator.VerifyRefreshToken(tokenString)
//	switch {
//	case errors.Is(err, tokens.ErrTokenExpired):
//	case errors.Is(err, tokens.ErrTokenWrongType):
//	    // an access token was presented as a refresh token
//	case errors.Is(err, tokens.ErrTokenBadSignature):
//	    // signature, key or algorithm mismatch
//	}
//
// # JWKS
//
// JWKS returns the public key as a one-element key set with kid "1",
// alg "RS256" and use "sig", suitable for serving at
// /.well-known/jwks.json. It fails with ErrKeyUnavailable when no key is
// loaded.
package tokens

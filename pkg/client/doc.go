// Package client is the Go SDK for applications that authenticate their end
// users through yourauth.
//
// A Client is bound to one developer API key. Every request carries the key
// in the X-API-Key header, so users signed up through the client land in
// that developer's pool.
//
// # Quick Start
//
//	auth := client.New(os.Getenv("YOURAUTH_API_KEY"))
//
//	session, err := auth.Signup(ctx, "user@example.com", "secret1")
//	if err != nil {
//	    var apiErr *client.Error
//	    if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests {
//	        // quota exhausted or rate limited
//	    }
//	    return err
//	}
//
// # Verifying Tokens
//
// GetUser and VerifyToken check a token's RS256 signature, issuer, audience
// and expiry locally against the public key published at
// /.well-known/jwks.json. The key set is fetched on first use and cached.
//
//	user, err := auth.GetUser(ctx, accessToken)
//	if err != nil {
//	    // expired, forged or not an access token
//	}
//
// # Protecting Routes
//
// RequireUser wraps a handler so it only runs for requests with a valid
// bearer access token:
//
//	mux.Handle("/profile", auth.RequireUser(profileHandler))
//
//	func profileHandler(w http.ResponseWriter, r *http.Request) {
//	    user, _ := client.UserFrom(r.Context())
//	    fmt.Fprintf(w, "Hello, %s!", user.Email)
//	}
package client

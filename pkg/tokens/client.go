package tokens

// Client implements the Validator interface for applications that only hold
// the auth service's public key, either configured directly or taken from the
// published JWKS document. Create a Client instance using InitClient.
type Client struct {
	verifier
}

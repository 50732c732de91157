package tokens

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

const KeyID = "1"

// PublicJWK projects the public key as a signing JWK. The result depends only
// on the key, so repeated calls serialize identically.
func PublicJWK(keys *KeyPair) (jose.JSONWebKey, error) {
	publicKey := keys.PublicKey()
	if publicKey == nil {
		return jose.JSONWebKey{}, ErrKeyUnavailable
	}
	return jose.JSONWebKey{
		Key:       publicKey,
		KeyID:     KeyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}, nil
}

func JWKS(keys *KeyPair) (jose.JSONWebKeySet, error) {
	jwk, err := PublicJWK(keys)
	if err != nil {
		return jose.JSONWebKeySet{}, err
	}
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}}, nil
}

// ParseJWKS extracts the RSA verification key from a JWKS document, preferring
// the entry with the service's key id.
func ParseJWKS(data []byte) (*rsa.PublicKey, error) {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	candidates := set.Key(KeyID)
	if len(candidates) == 0 {
		candidates = set.Keys
	}
	for _, jwk := range candidates {
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		if key, ok := jwk.Key.(*rsa.PublicKey); ok {
			return key, nil
		}
	}
	return nil, ErrKeyUnavailable
}

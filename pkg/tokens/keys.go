package tokens

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	PrivateKeyFile = "private.pem"
	PublicKeyFile  = "public.pem"
	KeyBits        = 2048
)

// KeyPair is the service's signing identity: the PEM text as persisted plus
// the parsed keys. It is built once at startup and never mutated, so it can
// be shared freely between the issuer, the validator and the JWKS handler.
type KeyPair struct {
	privatePEM []byte
	publicPEM  []byte
	private    *rsa.PrivateKey
	public     *rsa.PublicKey
}

func (k *KeyPair) PrivateKey() *rsa.PrivateKey {
	if k == nil {
		return nil
	}
	return k.private
}

func (k *KeyPair) PublicKey() *rsa.PublicKey {
	if k == nil {
		return nil
	}
	return k.public
}

func (k *KeyPair) PrivatePEM() []byte {
	if k == nil {
		return nil
	}
	return append([]byte(nil), k.privatePEM...)
}

func (k *KeyPair) PublicPEM() []byte {
	if k == nil {
		return nil
	}
	return append([]byte(nil), k.publicPEM...)
}

// EnsureKeys loads the key pair stored in dir, generating and persisting a
// new 2048-bit RSA pair first when either file is missing. Existing keys are
// never replaced.
func EnsureKeys(dir string) (*KeyPair, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create key directory: %v", ErrKeyProvisioning, err)
	}

	privatePath := filepath.Join(dir, PrivateKeyFile)
	publicPath := filepath.Join(dir, PublicKeyFile)

	if !fileExists(privatePath) || !fileExists(publicPath) {
		keys, err := GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(privatePath, keys.privatePEM, 0600); err != nil {
			return nil, fmt.Errorf("%w: write private key: %v", ErrKeyProvisioning, err)
		}
		if err := os.WriteFile(publicPath, keys.publicPEM, 0644); err != nil {
			return nil, fmt.Errorf("%w: write public key: %v", ErrKeyProvisioning, err)
		}
	}

	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: read private key: %v", ErrKeyProvisioning, err)
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read public key: %v", ErrKeyProvisioning, err)
	}

	return LoadKeyPair(privatePEM, publicPEM)
}

// GenerateKeyPair creates a fresh in-memory key pair without touching disk.
func GenerateKeyPair() (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: generate key: %v", ErrKeyProvisioning, err)
	}

	privateDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal private key: %v", ErrKeyProvisioning, err)
	}
	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal public key: %v", ErrKeyProvisioning, err)
	}

	return &KeyPair{
		privatePEM: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER}),
		publicPEM:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}),
		private:    privateKey,
		public:     &privateKey.PublicKey,
	}, nil
}

// LoadKeyPair parses a PKCS8 private key and an SPKI public key from PEM
// text. The public key must belong to the private key.
func LoadKeyPair(privatePEM []byte, publicPEM []byte) (*KeyPair, error) {
	privateKey, err := ParsePrivateKeyPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyProvisioning, err)
	}
	publicKey, err := ParsePublicKeyPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyProvisioning, err)
	}
	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, fmt.Errorf("%w: public key does not match private key", ErrKeyProvisioning)
	}

	return &KeyPair{
		privatePEM: append([]byte(nil), privatePEM...),
		publicPEM:  append([]byte(nil), publicPEM...),
		private:    privateKey,
		public:     publicKey,
	}, nil
}

func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("private key is not PEM encoded")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse PKCS8 private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not an RSA key")
	}
	return key, nil
}

func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("public key is not PEM encoded")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse SPKI public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}
	return key, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package tokens_test

import (
	"bytes"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

func TestEnsureKeys_GeneratesWhenAbsent(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "keys")

	// missing directory and files are created
	keys, err := tokens.EnsureKeys(dir)
	if err != nil {
		t.Fatalf("EnsureKeys failed: %v", err)
	}
	if keys.PrivateKey() == nil || keys.PublicKey() == nil {
		t.Fatal("EnsureKeys returned incomplete key pair")
	}
	if bits := keys.PublicKey().N.BitLen(); bits != tokens.KeyBits {
		t.Errorf("key size = %d, want %d", bits, tokens.KeyBits)
	}

	// private key is PKCS8 and owner-only
	privatePEM, err := os.ReadFile(filepath.Join(dir, tokens.PrivateKeyFile))
	if err != nil {
		t.Fatalf("read private key: %v", err)
	}
	if block, _ := pem.Decode(privatePEM); block == nil || block.Type != "PRIVATE KEY" {
		t.Error("private.pem is not a PKCS8 PEM block")
	}
	info, err := os.Stat(filepath.Join(dir, tokens.PrivateKeyFile))
	if err != nil {
		t.Fatalf("stat private key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("private key mode = %o, want 600", perm)
	}

	// public key is SPKI
	publicPEM, err := os.ReadFile(filepath.Join(dir, tokens.PublicKeyFile))
	if err != nil {
		t.Fatalf("read public key: %v", err)
	}
	if block, _ := pem.Decode(publicPEM); block == nil || block.Type != "PUBLIC KEY" {
		t.Error("public.pem is not an SPKI PEM block")
	}

	// returned PEM matches persisted bytes
	if !bytes.Equal(keys.PrivatePEM(), privatePEM) || !bytes.Equal(keys.PublicPEM(), publicPEM) {
		t.Error("returned PEM differs from files on disk")
	}
}

func TestEnsureKeys_ReusesExisting(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	first, err := tokens.EnsureKeys(dir)
	if err != nil {
		t.Fatalf("EnsureKeys failed: %v", err)
	}

	// second call loads the same pair
	second, err := tokens.EnsureKeys(dir)
	if err != nil {
		t.Fatalf("EnsureKeys failed: %v", err)
	}
	if !first.PublicKey().Equal(second.PublicKey()) {
		t.Error("EnsureKeys replaced existing keys")
	}

	// tokens from the first load verify with the second
	issuer, _ := tokens.InitServer(first, tokens.Options{})
	_, validator := tokens.InitServer(second, tokens.Options{})
	token, err := issuer.IssueAccessToken("user", "dev", "a@b.co")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	if _, err := validator.VerifyAccessToken(token.Encoded()); err != nil {
		t.Errorf("VerifyAccessToken failed: %v", err)
	}
}

func TestEnsureKeys_Unwritable(t *testing.T) {
	t.Parallel()
	parent := t.TempDir()
	blocker := filepath.Join(parent, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	// directory path under a regular file fails
	_, err := tokens.EnsureKeys(filepath.Join(blocker, "keys"))
	if !errors.Is(err, tokens.ErrKeyProvisioning) {
		t.Errorf("err = %v, want ErrKeyProvisioning", err)
	}
}

func TestEnsureKeys_CorruptKey(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if _, err := tokens.EnsureKeys(dir); err != nil {
		t.Fatalf("EnsureKeys failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, tokens.PrivateKeyFile), []byte("garbage"), 0600); err != nil {
		t.Fatalf("corrupt private key: %v", err)
	}

	// unparseable key is a provisioning failure, not a regeneration
	_, err := tokens.EnsureKeys(dir)
	if !errors.Is(err, tokens.ErrKeyProvisioning) {
		t.Errorf("err = %v, want ErrKeyProvisioning", err)
	}
}

func TestLoadKeyPair_Mismatch(t *testing.T) {
	t.Parallel()
	a := getSharedTestKeys(t)
	b := generateTestKeys(t)

	// matching halves load
	if _, err := tokens.LoadKeyPair(a.PrivatePEM(), a.PublicPEM()); err != nil {
		t.Fatalf("LoadKeyPair failed: %v", err)
	}

	// mismatched halves fail
	_, err := tokens.LoadKeyPair(a.PrivatePEM(), b.PublicPEM())
	if !errors.Is(err, tokens.ErrKeyProvisioning) {
		t.Errorf("err = %v, want ErrKeyProvisioning", err)
	}
}

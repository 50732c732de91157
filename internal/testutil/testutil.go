// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"git.sr.ht/~jakintosh/yourauth/internal/api"
	"git.sr.ht/~jakintosh/yourauth/internal/database"
	"git.sr.ht/~jakintosh/yourauth/internal/service"
	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

const (
	DeveloperPassword = "Password123"
	UserPassword      = "secret1"
)

var (
	sharedKeys     *tokens.KeyPair
	sharedKeysOnce sync.Once
)

// getSharedKeys returns a cached RSA key pair for tests.
// This avoids the overhead of generating a new key for each test.
func getSharedKeys() *tokens.KeyPair {
	sharedKeysOnce.Do(func() {
		keys, err := tokens.GenerateKeyPair()
		if err != nil {
			panic("failed to generate shared key pair: " + err.Error())
		}
		sharedKeys = keys
	})
	return sharedKeys
}

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	DB             *database.SQLiteStore
	Service        *service.Service
	Router         http.Handler
	Keys           *tokens.KeyPair
	TokenIssuer    tokens.Issuer
	TokenValidator tokens.Validator
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()

	db, err := database.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	keys := getSharedKeys()
	issuer, validator := tokens.InitServer(keys, tokens.Options{})

	svc := service.New(
		db.DeveloperStore(),
		db.UserStore(),
		db.LogStore(),
		service.NewPlanCatalog(),
		issuer,
		validator,
		service.PasswordModeTesting,
		zaptest.NewLogger(t),
	)

	return &TestEnv{
		DB:             db,
		Service:        svc,
		Keys:           keys,
		TokenIssuer:    issuer,
		TokenValidator: validator,
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the API router
func SetupTestEnvWithRouter(
	t *testing.T,
	opts ...api.Options,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t)

	var o api.Options
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Health = env.DB.Ping
	a := api.New(env.Service, env.Keys, zaptest.NewLogger(t), o)
	env.Router = a.Router()
	return env
}

// RegisterTestDeveloper signs up a developer with DeveloperPassword.
func (env *TestEnv) RegisterTestDeveloper(
	t *testing.T,
	email string,
) *service.DeveloperSession {
	t.Helper()
	session, err := env.Service.SignupDeveloper(context.Background(), email, DeveloperPassword, "")
	if err != nil {
		t.Fatalf("failed to register test developer: %v", err)
	}
	return session
}

// RegisterTestUser signs up an end user with UserPassword in dev's pool.
func (env *TestEnv) RegisterTestUser(
	t *testing.T,
	dev *service.Developer,
	email string,
) *service.UserSession {
	t.Helper()
	session, err := env.Service.SignupUser(
		context.Background(),
		dev,
		email,
		UserPassword,
		"",
		service.RequestMeta{IPAddress: "127.0.0.1"},
	)
	if err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}
	return session
}

// Developer reloads a developer so usage counters and keys are current.
func (env *TestEnv) Developer(
	t *testing.T,
	id string,
) *service.Developer {
	t.Helper()
	dev, err := env.DB.GetDeveloperByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load developer: %v", err)
	}
	return dev
}

// SetTestPlan installs a plan with the given user limit and moves the
// developer with email onto it.
func (env *TestEnv) SetTestPlan(
	t *testing.T,
	email string,
	name string,
	users int,
) {
	t.Helper()
	dir := t.TempDir()
	body := []byte(`{"users": ` + strconv.Itoa(users) + `, "requests": 1000}`)
	if err := os.WriteFile(filepath.Join(dir, name+".json"), body, 0o644); err != nil {
		t.Fatalf("failed to write plan: %v", err)
	}
	if err := env.Service.Plans().LoadDir(dir); err != nil {
		t.Fatalf("failed to load plan: %v", err)
	}
	if _, err := env.Service.ChangePlan(context.Background(), email, name); err != nil {
		t.Fatalf("failed to change plan: %v", err)
	}
}

// IssueTestAccessToken creates an access token for testing
func (env *TestEnv) IssueTestAccessToken(
	t *testing.T,
	subject string,
	tenant string,
	email string,
) *tokens.AccessToken {
	t.Helper()
	token, err := env.TokenIssuer.IssueAccessToken(subject, tenant, email)
	if err != nil {
		t.Fatalf("failed to issue test access token: %v", err)
	}
	return token
}

// IssueTestRefreshToken creates a refresh token for testing
func (env *TestEnv) IssueTestRefreshToken(
	t *testing.T,
	subject string,
	tenant string,
) *tokens.RefreshToken {
	t.Helper()
	token, err := env.TokenIssuer.IssueRefreshToken(subject, tenant)
	if err != nil {
		t.Fatalf("failed to issue test refresh token: %v", err)
	}
	return token
}

package service_test

import (
	"regexp"
	"strings"
	"testing"

	"git.sr.ht/~jakintosh/yourauth/internal/service"
	"git.sr.ht/~jakintosh/yourauth/internal/testutil"
)

var apiKeyPattern = regexp.MustCompile(`^ya_[0-9a-f]{32}$`)

func TestNew_CreatesService(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	if env.Service == nil {
		t.Fatal("expected non-nil service")
	}
}

func TestNew_DefaultPlans(t *testing.T) {
	t.Parallel()

	// nil catalog falls back to the built-in plans
	svc := service.New(nil, nil, nil, nil, nil, nil, service.PasswordModeTesting, nil)
	plan, err := svc.Plans().GetPlan(service.DefaultPlan)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if plan.Users != 100 {
		t.Errorf("free plan users = %d, want 100", plan.Users)
	}
}

func TestPasswordMode_Cost(t *testing.T) {
	t.Parallel()

	if cost := service.PasswordModeProduction.Cost(); cost != 12 {
		t.Errorf("production cost = %d, want 12", cost)
	}
	if cost := service.PasswordModeTesting.Cost(); cost != 4 {
		t.Errorf("testing cost = %d, want 4", cost)
	}
}

func TestGenerateAPIKey_Shape(t *testing.T) {
	t.Parallel()

	key, err := service.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	if !strings.HasPrefix(key, service.APIKeyPrefix) {
		t.Errorf("key %q missing prefix", key)
	}
	if len(key) != len(service.APIKeyPrefix)+32 {
		t.Errorf("key length = %d, want %d", len(key), len(service.APIKeyPrefix)+32)
	}
	if !apiKeyPattern.MatchString(key) {
		t.Errorf("key %q is not lowercase hex", key)
	}

	// keys are unique
	other, _ := service.GenerateAPIKey()
	if other == key {
		t.Error("two generated keys are equal")
	}
}

func TestGenerateAPISecret_Shape(t *testing.T) {
	t.Parallel()

	secret, err := service.GenerateAPISecret()
	if err != nil {
		t.Fatalf("GenerateAPISecret failed: %v", err)
	}
	if len(secret) != 64 {
		t.Errorf("secret length = %d, want 64", len(secret))
	}
}

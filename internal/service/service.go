// Package service implements the business logic layer for the yourauth
// service. It handles developer (tenant) accounts, per-tenant user pools,
// token issuing, quota enforcement and the credential gates.
package service

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

var (
	ErrInvalidLogin      = errors.New("invalid email or password")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountSuspended  = errors.New("account suspended")
	ErrQuotaExceeded     = errors.New("user quota exceeded")
	ErrPlanNotFound      = errors.New("plan not found")
	ErrValidation        = errors.New("validation failed")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrMissingCredential = errors.New("credential required")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInternal          = errors.New("internal error")
)

// PasswordMode controls bcrypt cost for password hashing.
// Use PasswordModeProduction for real deployments and PasswordModeTesting only in tests.
type PasswordMode int

const (
	// PasswordModeProduction hashes with cost 12.
	PasswordModeProduction PasswordMode = iota
	// PasswordModeTesting uses bcrypt.MinCost (4) for fast test execution.
	// WARNING: This mode will panic if used outside of go test.
	PasswordModeTesting
)

const productionCost = 12

// Cost returns the bcrypt cost for this mode.
// Panics if PasswordModeTesting is used outside of a test binary.
func (m PasswordMode) Cost() int {
	switch m {
	case PasswordModeTesting:
		if !testing.Testing() {
			panic("service: PasswordModeTesting used outside of test environment")
		}
		return bcrypt.MinCost
	default:
		return productionCost
	}
}

// Service coordinates developer accounts, user pools and token operations.
// It depends on storage interfaces (DeveloperStore, UserStore, LogStore) and
// delegates to them for persistence.
type Service struct {
	developers     DeveloperStore
	users          UserStore
	logs           LogStore
	plans          *PlanCatalog
	tokenIssuer    tokens.Issuer
	tokenValidator tokens.Validator
	passwordMode   PasswordMode
	logger         *zap.Logger
	now            func() time.Time
}

func New(
	developers DeveloperStore,
	users UserStore,
	logs LogStore,
	plans *PlanCatalog,
	issuer tokens.Issuer,
	validator tokens.Validator,
	passwordMode PasswordMode,
	logger *zap.Logger,
) *Service {
	if plans == nil {
		plans = NewPlanCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		developers:     developers,
		users:          users,
		logs:           logs,
		plans:          plans,
		tokenIssuer:    issuer,
		tokenValidator: validator,
		passwordMode:   passwordMode,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *Service) Plans() *PlanCatalog {
	return s.plans
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	dashboardRecentUsers = 5
	dashboardRecentLogs  = 10
	activeUserWindowDays = 30
)

// DeveloperCredentials are returned exactly once, at signup.
type DeveloperCredentials struct {
	APIKey    string
	APISecret string
}

type DeveloperSession struct {
	Developer   *Developer
	Tokens      TokenPair
	Credentials *DeveloperCredentials
}

func (s *Service) SignupDeveloper(
	ctx context.Context,
	email string,
	password string,
	name string,
) (
	*DeveloperSession,
	error,
) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validateDeveloperPassword(password); err != nil {
		return nil, err
	}
	name, err = normalizeName(name)
	if err != nil {
		return nil, err
	}

	_, err = s.developers.GetDeveloperByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, email)
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: failed to check developer: %v", ErrInternal, err)
	}

	hashPass, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordMode.Cost())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
	}
	apiKey, err := GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	apiSecret, err := GenerateAPISecret()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	dev := &Developer{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hashPass,
		APIKey:       apiKey,
		APISecret:    apiSecret,
		Plan:         DefaultPlan,
		CreatedAt:    s.now(),
	}
	if err := s.developers.InsertDeveloper(ctx, dev); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, fmt.Errorf("%w: %s", ErrAccountExists, email)
		}
		return nil, fmt.Errorf("%w: failed to insert developer: %v", ErrInternal, err)
	}

	pair, err := s.issueTokenPair(dev.ID, dev.ID, dev.Email)
	if err != nil {
		return nil, err
	}

	s.logger.Info("developer signed up", zap.String("developer_id", dev.ID))
	return &DeveloperSession{
		Developer: dev,
		Tokens:    pair,
		Credentials: &DeveloperCredentials{
			APIKey:    apiKey,
			APISecret: apiSecret,
		},
	}, nil
}

func (s *Service) LoginDeveloper(
	ctx context.Context,
	email string,
	password string,
) (
	*DeveloperSession,
	error,
) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	dev, err := s.developers.GetDeveloperByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to retrieve developer: %v", ErrInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword(dev.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidLogin
	}

	pair, err := s.issueTokenPair(dev.ID, dev.ID, dev.Email)
	if err != nil {
		return nil, err
	}
	return &DeveloperSession{Developer: dev, Tokens: pair}, nil
}

// RefreshDeveloperTokens exchanges a developer refresh token for a new pair.
func (s *Service) RefreshDeveloperTokens(
	ctx context.Context,
	encodedRefreshToken string,
) (
	TokenPair,
	error,
) {
	token, err := s.verifyRefresh(encodedRefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if token.Subject() != token.Tenant() {
		return TokenPair{}, fmt.Errorf("%w: not a developer session", ErrTokenInvalid)
	}

	dev, err := s.developers.GetDeveloperByID(ctx, token.Subject())
	if errors.Is(err, ErrAccountNotFound) {
		return TokenPair{}, fmt.Errorf("%w: developer no longer exists", ErrTokenInvalid)
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: failed to retrieve developer: %v", ErrInternal, err)
	}

	return s.issueTokenPair(dev.ID, dev.ID, dev.Email)
}

func (s *Service) Dashboard(
	ctx context.Context,
	dev *Developer,
) (
	*Dashboard,
	error,
) {
	plan, err := s.plans.GetPlan(dev.Plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	stats := DashboardStats{
		UsageCount: dev.UsageCount,
		QuotaLimit: plan.Users,
		Plan:       plan.Name,
	}
	if stats.TotalUsers, err = s.users.CountUsers(ctx, dev.ID); err != nil {
		return nil, fmt.Errorf("%w: failed to count users: %v", ErrInternal, err)
	}
	since := s.now().AddDate(0, 0, -activeUserWindowDays)
	if stats.ActiveUsers, err = s.logs.CountActiveUsers(ctx, dev.ID, since); err != nil {
		return nil, fmt.Errorf("%w: failed to count active users: %v", ErrInternal, err)
	}
	if stats.TotalLogins, err = s.logs.CountEvents(ctx, dev.ID, EventLogin); err != nil {
		return nil, fmt.Errorf("%w: failed to count logins: %v", ErrInternal, err)
	}
	if stats.FailedLogins, err = s.logs.CountEvents(ctx, dev.ID, EventFailedLogin); err != nil {
		return nil, fmt.Errorf("%w: failed to count failed logins: %v", ErrInternal, err)
	}

	recentUsers, err := s.users.RecentUsers(ctx, dev.ID, dashboardRecentUsers)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list users: %v", ErrInternal, err)
	}
	recentLogs, err := s.logs.RecentLogs(ctx, dev.ID, dashboardRecentLogs)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list logs: %v", ErrInternal, err)
	}

	return &Dashboard{
		Developer:   dev,
		Stats:       stats,
		RecentUsers: recentUsers,
		RecentLogs:  recentLogs,
	}, nil
}

// RegenerateAPIKey replaces the developer's API key. The old key stops
// authorizing immediately.
func (s *Service) RegenerateAPIKey(
	ctx context.Context,
	dev *Developer,
) (
	string,
	error,
) {
	apiKey, err := GenerateAPIKey()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := s.developers.UpdateAPIKey(ctx, dev.ID, apiKey); err != nil {
		return "", fmt.Errorf("%w: failed to store api key: %v", ErrInternal, err)
	}

	s.logger.Info("api key regenerated", zap.String("developer_id", dev.ID))
	return apiKey, nil
}

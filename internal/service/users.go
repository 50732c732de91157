package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserSession struct {
	User   *User
	Tokens TokenPair
}

// SignupUser registers an end user in dev's pool. The quota check and the
// usage increment happen atomically with the insert.
func (s *Service) SignupUser(
	ctx context.Context,
	dev *Developer,
	email string,
	password string,
	name string,
	meta RequestMeta,
) (
	*UserSession,
	error,
) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validateUserPassword(password); err != nil {
		return nil, err
	}
	name, err = normalizeName(name)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.GetPlan(dev.Plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	hashPass, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordMode.Cost())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
	}

	user := &User{
		ID:           uuid.NewString(),
		DeveloperID:  dev.ID,
		Email:        email,
		Name:         name,
		PasswordHash: hashPass,
		Status:       UserStatusActive,
		CreatedAt:    s.now(),
	}
	err = s.users.CreateUserWithinQuota(ctx, user, plan.Users)
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return nil, fmt.Errorf("%w: plan '%s' allows %d users", ErrQuotaExceeded, plan.Name, plan.Users)
	case errors.Is(err, ErrAccountExists):
		s.recordEvent(ctx, dev.ID, "", EventSignup, meta, map[string]string{
			"error": "email already exists",
			"email": email,
		})
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, email)
	case err != nil:
		return nil, fmt.Errorf("%w: failed to create user: %v", ErrInternal, err)
	}

	pair, err := s.issueTokenPair(user.ID, dev.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, dev.ID, user.ID, EventSignup, meta, map[string]string{"email": user.Email})
	return &UserSession{User: user, Tokens: pair}, nil
}

func (s *Service) LoginUser(
	ctx context.Context,
	dev *Developer,
	email string,
	password string,
	meta RequestMeta,
) (
	*UserSession,
	error,
) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, dev.ID, email)
	if errors.Is(err, ErrAccountNotFound) {
		s.recordEvent(ctx, dev.ID, "", EventFailedLogin, meta, map[string]string{
			"error": "user not found",
			"email": email,
		})
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to retrieve user: %v", ErrInternal, err)
	}

	if user.Status == UserStatusSuspended {
		s.recordEvent(ctx, dev.ID, user.ID, EventFailedLogin, meta, map[string]string{
			"error": "account suspended",
			"email": email,
		})
		return nil, ErrAccountSuspended
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		s.recordEvent(ctx, dev.ID, user.ID, EventFailedLogin, meta, map[string]string{
			"error": "invalid password",
			"email": email,
		})
		return nil, ErrInvalidLogin
	}

	pair, err := s.issueTokenPair(user.ID, dev.ID, user.Email)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}
	s.recordEvent(ctx, dev.ID, user.ID, EventLogin, meta, map[string]string{"email": user.Email})
	return &UserSession{User: user, Tokens: pair}, nil
}

// ResetPassword accepts a reset request for any email so callers cannot
// probe which users exist. Only known users produce an audit entry.
func (s *Service) ResetPassword(
	ctx context.Context,
	dev *Developer,
	email string,
	meta RequestMeta,
) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(ctx, dev.ID, email)
	if errors.Is(err, ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: failed to retrieve user: %v", ErrInternal, err)
	}

	s.recordEvent(ctx, dev.ID, user.ID, EventReset, meta, map[string]string{"email": user.Email})
	s.logger.Info("password reset requested",
		zap.String("developer_id", dev.ID),
		zap.String("user_id", user.ID),
	)
	return nil
}

// LogoutUser records a logout. Tokens are stateless, so nothing is revoked;
// an unknown userID is logged without a user reference.
func (s *Service) LogoutUser(
	ctx context.Context,
	dev *Developer,
	userID string,
	meta RequestMeta,
) error {
	if userID != "" {
		_, err := s.users.GetUserByID(ctx, dev.ID, userID)
		if errors.Is(err, ErrAccountNotFound) {
			userID = ""
		} else if err != nil {
			return fmt.Errorf("%w: failed to retrieve user: %v", ErrInternal, err)
		}
	}

	s.recordEvent(ctx, dev.ID, userID, EventLogout, meta, nil)
	return nil
}

// RefreshUserTokens exchanges an end user's refresh token for a new pair.
// The token must belong to dev's pool and its user must still be active.
func (s *Service) RefreshUserTokens(
	ctx context.Context,
	dev *Developer,
	encodedRefreshToken string,
) (
	TokenPair,
	error,
) {
	token, err := s.verifyRefresh(encodedRefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if token.Tenant() != dev.ID {
		return TokenPair{}, fmt.Errorf("%w: token belongs to another tenant", ErrTokenInvalid)
	}

	user, err := s.users.GetUserByID(ctx, dev.ID, token.Subject())
	if errors.Is(err, ErrAccountNotFound) {
		return TokenPair{}, fmt.Errorf("%w: user no longer exists", ErrTokenInvalid)
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: failed to retrieve user: %v", ErrInternal, err)
	}
	if user.Status == UserStatusSuspended {
		return TokenPair{}, ErrAccountSuspended
	}

	return s.issueTokenPair(user.ID, dev.ID, user.Email)
}

// recordEvent appends to the audit log. Failures are logged, not returned.
func (s *Service) recordEvent(
	ctx context.Context,
	developerID string,
	userID string,
	event string,
	meta RequestMeta,
	metadata map[string]string,
) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	if meta.UserAgent != "" {
		metadata["user_agent"] = meta.UserAgent
	}
	entry := &LogEntry{
		ID:          uuid.NewString(),
		DeveloperID: developerID,
		UserID:      userID,
		Event:       event,
		IPAddress:   meta.IPAddress,
		Metadata:    metadata,
		CreatedAt:   s.now(),
	}
	if err := s.logs.InsertLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record auth event",
			zap.String("event", event),
			zap.String("developer_id", developerID),
			zap.Error(err),
		)
	}
}

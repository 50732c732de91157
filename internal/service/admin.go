package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SetUserStatus suspends or reactivates a user in dev's pool. Suspended
// users cannot log in or refresh.
func (s *Service) SetUserStatus(
	ctx context.Context,
	dev *Developer,
	userID string,
	status string,
) (
	*User,
	error,
) {
	if status != UserStatusActive && status != UserStatusSuspended {
		return nil, fmt.Errorf("%w: status must be '%s' or '%s'", ErrValidation, UserStatusActive, UserStatusSuspended)
	}

	err := s.users.SetUserStatus(ctx, dev.ID, userID, status)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: user %s", ErrAccountNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update user: %v", ErrInternal, err)
	}

	user, err := s.users.GetUserByID(ctx, dev.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to retrieve user: %v", ErrInternal, err)
	}
	s.logger.Info("user status changed",
		zap.String("developer_id", dev.ID),
		zap.String("user_id", userID),
		zap.String("status", status),
	)
	return user, nil
}

// ChangePlan moves the developer with email onto plan. Existing users are
// kept even when the new plan's limit is lower; only new signups are refused.
func (s *Service) ChangePlan(
	ctx context.Context,
	email string,
	plan string,
) (
	*Developer,
	error,
) {
	if _, err := s.plans.GetPlan(plan); err != nil {
		return nil, err
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	dev, err := s.developers.GetDeveloperByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, email)
		}
		return nil, fmt.Errorf("%w: failed to retrieve developer: %v", ErrInternal, err)
	}

	if err := s.developers.SetPlan(ctx, dev.ID, plan); err != nil {
		return nil, fmt.Errorf("%w: failed to update plan: %v", ErrInternal, err)
	}
	dev.Plan = plan
	return dev, nil
}

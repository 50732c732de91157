package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/yourauth/internal/metrics"
	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

func (s *Service) issueTokenPair(
	subject string,
	tenant string,
	email string,
) (
	TokenPair,
	error,
) {
	accessToken, err := s.tokenIssuer.IssueAccessToken(subject, tenant, email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: couldn't issue access token: %v", ErrInternal, err)
	}
	metrics.RecordTokenIssued(metrics.KindAccess)

	refreshToken, err := s.tokenIssuer.IssueRefreshToken(subject, tenant)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: couldn't issue refresh token: %v", ErrInternal, err)
	}
	metrics.RecordTokenIssued(metrics.KindRefresh)

	return TokenPair{
		AccessToken:  accessToken.Encoded(),
		RefreshToken: refreshToken.Encoded(),
	}, nil
}

func (s *Service) verifyRefresh(
	encodedRefreshToken string,
) (
	*tokens.RefreshToken,
	error,
) {
	token, err := s.tokenValidator.VerifyRefreshToken(encodedRefreshToken)
	metrics.RecordTokenVerification(metrics.KindRefresh, err)
	if err != nil {
		var detailed interface{ Context() string }
		if errors.As(err, &detailed) {
			s.logger.Debug("refresh token rejected", zap.Error(err), zap.String("detail", detailed.Context()))
		}
		return nil, fmt.Errorf("%w: couldn't verify refresh token: %v", ErrTokenInvalid, err)
	}
	return token, nil
}

// VerifyAccessToken checks an end-user access token and resolves its user
// within dev's pool.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	dev *Developer,
	encodedAccessToken string,
) (
	*User,
	error,
) {
	token, err := s.tokenValidator.VerifyAccessToken(encodedAccessToken)
	metrics.RecordTokenVerification(metrics.KindAccess, err)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't verify access token: %v", ErrTokenInvalid, err)
	}
	if token.Tenant() != dev.ID {
		return nil, fmt.Errorf("%w: token belongs to another tenant", ErrTokenInvalid)
	}

	user, err := s.users.GetUserByID(ctx, dev.ID, token.Subject())
	if errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to look up user: %v", ErrInternal, err)
	}
	return user, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/yourauth/internal/metrics"
)

// attempt is the outcome of one way of resolving a credential to a
// developer. ok is false when the credential does not resolve on that path;
// err is reserved for storage failures.
type attempt struct {
	developer *Developer
	ok        bool
	err       error
}

// AuthorizeDeveloper resolves a bearer credential that may be either a
// developer's access token or a developer API key. The token path runs
// first; the API key path runs only when the token path fails.
func (s *Service) AuthorizeDeveloper(
	ctx context.Context,
	credential string,
) (
	*Developer,
	error,
) {
	if credential == "" {
		metrics.RecordGateDecision(metrics.GateDeveloper, metrics.PathNone, ErrMissingCredential)
		return nil, ErrMissingCredential
	}

	jwt := s.attemptJWT(ctx, credential)
	if jwt.err != nil {
		return nil, jwt.err
	}
	if jwt.ok {
		metrics.RecordGateDecision(metrics.GateDeveloper, metrics.PathJWT, nil)
		return jwt.developer, nil
	}

	key := s.attemptAPIKey(ctx, credential)
	if key.err != nil {
		return nil, key.err
	}
	if key.ok {
		metrics.RecordGateDecision(metrics.GateDeveloper, metrics.PathAPIKey, nil)
		return key.developer, nil
	}

	metrics.RecordGateDecision(metrics.GateDeveloper, metrics.PathNone, ErrInvalidCredential)
	return nil, ErrInvalidCredential
}

// AuthorizeSession resolves a developer access token only. API keys are not
// accepted here, so operations behind it need an interactive login.
func (s *Service) AuthorizeSession(
	ctx context.Context,
	credential string,
) (
	*Developer,
	error,
) {
	if credential == "" {
		metrics.RecordGateDecision(metrics.GateSession, metrics.PathNone, ErrMissingCredential)
		return nil, ErrMissingCredential
	}

	jwt := s.attemptJWT(ctx, credential)
	if jwt.err != nil {
		return nil, jwt.err
	}
	if !jwt.ok {
		metrics.RecordGateDecision(metrics.GateSession, metrics.PathNone, ErrInvalidCredential)
		return nil, ErrInvalidCredential
	}

	metrics.RecordGateDecision(metrics.GateSession, metrics.PathJWT, nil)
	return jwt.developer, nil
}

// AuthorizeAPIKey resolves an API key only, as sent by SDK clients.
func (s *Service) AuthorizeAPIKey(
	ctx context.Context,
	apiKey string,
) (
	*Developer,
	error,
) {
	if apiKey == "" {
		metrics.RecordGateDecision(metrics.GateAPIKey, metrics.PathNone, ErrMissingCredential)
		return nil, ErrMissingCredential
	}

	key := s.attemptAPIKey(ctx, apiKey)
	if key.err != nil {
		return nil, key.err
	}
	if !key.ok {
		metrics.RecordGateDecision(metrics.GateAPIKey, metrics.PathNone, ErrInvalidCredential)
		return nil, ErrInvalidCredential
	}

	metrics.RecordGateDecision(metrics.GateAPIKey, metrics.PathAPIKey, nil)
	return key.developer, nil
}

// attemptJWT accepts only developer session tokens: the token must verify,
// its email must resolve to a developer, and that developer must be both the
// subject and the tenant. End-user tokens of the same tenant do not pass.
func (s *Service) attemptJWT(
	ctx context.Context,
	credential string,
) attempt {
	token, err := s.tokenValidator.VerifyAccessToken(credential)
	metrics.RecordTokenVerification(metrics.KindAccess, err)
	if err != nil {
		var detailed interface{ Context() string }
		if errors.As(err, &detailed) {
			s.logger.Debug("gate token rejected", zap.Error(err), zap.String("detail", detailed.Context()))
		}
		return attempt{}
	}

	dev, err := s.developers.GetDeveloperByEmail(ctx, token.Email())
	if errors.Is(err, ErrAccountNotFound) {
		return attempt{}
	}
	if err != nil {
		return attempt{err: fmt.Errorf("%w: failed to look up developer: %v", ErrInternal, err)}
	}
	if dev.ID != token.Tenant() || dev.ID != token.Subject() {
		return attempt{}
	}

	return attempt{developer: dev, ok: true}
}

// attemptAPIKey looks up any credential that is not shaped like a JWT as an
// API key, by exact match.
func (s *Service) attemptAPIKey(
	ctx context.Context,
	credential string,
) attempt {
	if looksLikeJWT(credential) {
		return attempt{}
	}

	dev, err := s.developers.GetDeveloperByAPIKey(ctx, credential)
	if errors.Is(err, ErrAccountNotFound) {
		return attempt{}
	}
	if err != nil {
		return attempt{err: fmt.Errorf("%w: failed to look up api key: %v", ErrInternal, err)}
	}

	return attempt{developer: dev, ok: true}
}

func looksLikeJWT(s string) bool {
	return strings.Count(s, ".") == 2
}

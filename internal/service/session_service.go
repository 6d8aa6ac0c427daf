package service

import (
	"context"
	"fmt"
	"time"

	"shop-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxSessionIssueAttempts = 3

// SessionStore keeps track of issued session tokens
type SessionStore interface {
	CreateSession(ctx context.Context, token string, ttl time.Duration) (bool, error)
	TouchSession(ctx context.Context, token string, ttl time.Duration) (bool, error)
}

// SessionService issues and refreshes anonymous shopper sessions
type SessionService struct {
	store  SessionStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewSessionService creates a new session service
func NewSessionService(store SessionStore, ttl time.Duration) *SessionService {
	return &SessionService{
		store:  store,
		ttl:    ttl,
		logger: util.Named("session-service"),
	}
}

// Resolve returns the session token to use for a request. A known token is
// refreshed and kept; a missing, malformed or expired one is replaced by a
// freshly issued token.
func (s *SessionService) Resolve(ctx context.Context, token string) (string, bool, error) {
	if token != "" {
		if _, err := uuid.Parse(token); err == nil {
			alive, err := s.store.TouchSession(ctx, token, s.ttl)
			if err != nil {
				return "", false, fmt.Errorf("failed to refresh session: %w", err)
			}
			if alive {
				return token, false, nil
			}
		}
	}

	token, err := s.issue(ctx)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (s *SessionService) issue(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxSessionIssueAttempts; attempt++ {
		token := uuid.New().String()
		created, err := s.store.CreateSession(ctx, token, s.ttl)
		if err != nil {
			return "", fmt.Errorf("failed to create session: %w", err)
		}
		if created {
			s.logger.Debug("Session issued", util.SessionField(token))
			return token, nil
		}
	}
	return "", fmt.Errorf("failed to issue a unique session token")
}

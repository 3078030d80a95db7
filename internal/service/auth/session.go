// Package auth manages the sync account session. The desktop client
// holds at most one signed-in account; its JWT authorizes pushes to the
// sync service and identifies the principal for the sync queue.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yy0691/AI-Videos-Play/internal/config"
	"github.com/yy0691/AI-Videos-Play/internal/platform/logger"
)

// Session validation errors.
var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
	ErrNoSession    = errors.New("no active session")
)

// sessionClaims is the JWT claim structure issued by the sync service.
type sessionClaims struct {
	AccountID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

// SessionService validates and holds the current account session. It is
// safe for concurrent use.
type SessionService struct {
	signingKey []byte
	timeFunc   func() time.Time
	clockSkew  time.Duration

	mu        sync.RWMutex
	token     string
	accountID uuid.UUID
	expiresAt time.Time
}

// NewSessionService creates a session service that verifies tokens with
// HMAC-SHA256.
func NewSessionService(cfg config.AuthConfig) (*SessionService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	return &SessionService{
		signingKey: []byte(cfg.JWTSecret),
		timeFunc:   time.Now,
		clockSkew:  2 * time.Minute,
	}, nil
}

// SignIn validates a token issued by the sync service and installs it as
// the active session, replacing any previous one.
func (s *SessionService) SignIn(ctx context.Context, tokenString string) error {
	claims, err := s.validate(ctx, tokenString)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = tokenString
	s.accountID = claims.AccountID
	s.expiresAt = claims.ExpiresAt.Time
	s.mu.Unlock()

	logger.FromContext(ctx).Info("session established",
		"account_id", claims.AccountID,
		"expires_at", claims.ExpiresAt.Time)
	return nil
}

// SignOut clears the active session. Signing out with no session is a
// no-op.
func (s *SessionService) SignOut(ctx context.Context) {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	s.accountID = uuid.Nil
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if had {
		logger.FromContext(ctx).Info("session cleared")
	}
}

// Token returns the active session token, or the empty string when no
// session exists or the token has expired.
func (s *SessionService) Token(_ context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.expired() {
		return ""
	}
	return s.token
}

// Principal returns the signed-in account id, or uuid.Nil when no valid
// session exists.
func (s *SessionService) Principal(_ context.Context) uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.expired() {
		return uuid.Nil
	}
	return s.accountID
}

// expired must be called with the lock held.
func (s *SessionService) expired() bool {
	return !s.expiresAt.IsZero() && s.timeFunc().After(s.expiresAt.Add(s.clockSkew))
}

// validate parses and verifies a session token.
func (s *SessionService) validate(ctx context.Context, tokenString string) (*sessionClaims, error) {
	log := logger.FromContext(ctx)

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(s.timeFunc),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&sessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug("session token validation failed: token expired", "error", err)
			return nil, ErrExpiredToken
		}
		log.Debug("session token validation failed", "error", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.AccountID == uuid.Nil {
		log.Debug("session token validation failed: missing account id")
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		log.Debug("session token validation failed: missing expiry")
		return nil, ErrInvalidToken
	}
	return claims, nil
}

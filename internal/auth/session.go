// Package auth implements session issuance and token resolution for the
// subtrack service. Sessions are deliberately simple: a login is just a
// username (no password, this is a demo), and the returned token is an
// unauthenticated identifier. The token itself must still be unpredictable,
// so generation uses crypto/rand rather than a guessable counter.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"subtrack/internal/types"
)

// SessionRepo defines the data access methods needed by the SessionService.
type SessionRepo interface {
	Create(ctx context.Context, session *types.Session) error
	GetByToken(ctx context.Context, token string) (*types.Session, error)
}

// TokenGenerator abstracts entropy sources for testability.
type TokenGenerator interface {
	GenerateToken() (string, error)
}

// SessionService issues session tokens and resolves them back to users.
type SessionService struct {
	repo     SessionRepo
	tokenGen TokenGenerator
	clock    types.Clock
	logger   *slog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo SessionRepo, tokenGen TokenGenerator, clock types.Clock, logger *slog.Logger) *SessionService {
	if tokenGen == nil {
		tokenGen = NewCryptoTokenGenerator()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		repo:     repo,
		tokenGen: tokenGen,
		clock:    clock,
		logger:   logger,
	}
}

// Login creates a fresh session for the username and returns its token.
// Logins are not deduplicated: every call issues a new token, and prior
// tokens for the same user stay valid.
func (s *SessionService) Login(ctx context.Context, username string) (string, error) {
	token, err := s.tokenGen.GenerateToken()
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to generate session token", err)
	}

	session := &types.Session{
		Token:     token,
		Username:  username,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", err
	}

	s.logger.Info("session created", "username", username)
	return token, nil
}

// Resolve looks the token up and returns the owning session. The repo's
// not_found_session error passes through untouched so callers can tell an
// unknown token from a storage failure.
func (s *SessionService) Resolve(ctx context.Context, token string) (*types.Session, error) {
	return s.repo.GetByToken(ctx, token)
}

// CryptoTokenGenerator is the production TokenGenerator using crypto/rand.
type CryptoTokenGenerator struct {
	// TokenPrefix is prepended to generated tokens.
	TokenPrefix string
}

// NewCryptoTokenGenerator creates a CryptoTokenGenerator with the standard
// "tok_" prefix.
func NewCryptoTokenGenerator() *CryptoTokenGenerator {
	return &CryptoTokenGenerator{TokenPrefix: "tok_"}
}

// GenerateToken generates a cryptographically secure session token.
// Format: "tok_" + 32 random bytes hex-encoded (64 hex chars).
func (g *CryptoTokenGenerator) GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return g.TokenPrefix + hex.EncodeToString(b), nil
}

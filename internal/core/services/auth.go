package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var _ driving.AuthService = (*authService)(nil)

// DefaultTokenTTL is used by IssueToken when no lifetime is given.
const DefaultTokenTTL = 24 * time.Hour

// authService turns bearer tokens into principals. It never stores them.
type authService struct {
	tokens driven.AuthAdapter
}

func NewAuthService(tokens driven.AuthAdapter) driving.AuthService {
	return &authService{tokens: tokens}
}

// ValidateToken resolves a bearer token to the principal it was issued for.
// Every failure collapses to ErrTokenExpired or ErrTokenInvalid.
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.tokens.ParseToken(token)
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return nil, domain.ErrTokenExpired
	case err != nil:
		return nil, domain.ErrTokenInvalid
	}

	if time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.AuthContext{
		UserID:     claims.UserID,
		Email:      claims.Email,
		Role:       claims.Role,
		Department: claims.Department,
	}, nil
}

// IssueToken signs a token for principal valid for ttl, or DefaultTokenTTL
// when ttl is not positive.
func (s *authService) IssueToken(ctx context.Context, principal domain.AuthContext, ttl time.Duration) (string, error) {
	if principal.UserID == "" {
		return "", fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if !principal.Role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, principal.Role)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	return s.tokens.GenerateToken(&domain.TokenClaims{
		UserID:     principal.UserID,
		Email:      principal.Email,
		Role:       principal.Role,
		Department: principal.Department,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(ttl).Unix(),
	})
}

package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type AuthService interface {
	// ValidateToken resolves a bearer token to its principal. Expired
	// tokens fail with domain.ErrTokenExpired.
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// IssueToken is used by the token command for service accounts and
	// local development.
	IssueToken(ctx context.Context, principal domain.AuthContext, ttl time.Duration) (string, error)
}

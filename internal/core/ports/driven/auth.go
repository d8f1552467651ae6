package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// AuthAdapter signs and verifies bearer tokens. Principals are managed
// outside this system; the adapter only carries their claims.
type AuthAdapter interface {
	GenerateToken(claims *domain.TokenClaims) (string, error)
	// ParseToken checks the signature and returns the claims. Expired
	// tokens yield ErrTokenExpired, anything else unusable ErrTokenInvalid.
	ParseToken(token string) (*domain.TokenClaims, error)
}

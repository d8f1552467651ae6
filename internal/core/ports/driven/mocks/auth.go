package mocks

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.AuthAdapter = (*MockAuthAdapter)(nil)

// MockAuthAdapter hands out opaque tokens backed by an in-memory table.
// Expiry is left to the caller, as with the JWT adapter's claims.
type MockAuthAdapter struct {
	mu     sync.Mutex
	next   int
	issued map[string]domain.TokenClaims
}

func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{issued: make(map[string]domain.TokenClaims)}
}

func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	token := fmt.Sprintf("mock-token-%d", m.next)
	m.issued[token] = *claims
	return token, nil
}

func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claims, ok := m.issued[token]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return &claims, nil
}

package tokenstore

import (
	"context"
	"sync"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

// Memory keeps tokens in process memory. Tokens do not survive a restart;
// use it for single-instance development setups and tests.
type Memory struct {
	mu     sync.Mutex
	tokens map[string]string
}

var _ ports.TokenStoreFactory = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]string)}
}

// ForSession returns the slot of one console session.
func (m *Memory) ForSession(sessionID string) ports.TokenStore {
	return &memorySlot{m: m, id: sessionID}
}

// Len reports how many slots hold a token.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

type memorySlot struct {
	m  *Memory
	id string
}

func (s *memorySlot) Load(context.Context) (string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	tok, ok := s.m.tokens[s.id]
	if !ok {
		return "", domain.ErrTokenNotFound
	}
	return tok, nil
}

func (s *memorySlot) Save(_ context.Context, token string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.tokens[s.id] = token
	return nil
}

func (s *memorySlot) Clear(context.Context) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.tokens, s.id)
	return nil
}

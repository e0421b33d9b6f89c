package store

import (
	"sync"

	"github.com/nextlevelbuilder/dentassist/internal/providers"
)

type memoryConversation struct {
	messages  []providers.Message
	greeted   bool
	handedOff bool
}

// MemoryStore is the default in-process ConversationStore.
type MemoryStore struct {
	mu           sync.RWMutex
	convs        map[string]*memoryConversation
	historyLimit int
}

// NewMemoryStore creates an empty store. limit <= 0 uses
// DefaultHistoryLimit.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryStore{
		convs:        make(map[string]*memoryConversation),
		historyLimit: limit,
	}
}

func (s *MemoryStore) get(key string) *memoryConversation {
	c, ok := s.convs[key]
	if !ok {
		c = &memoryConversation{}
		s.convs[key] = c
	}
	return c
}

// AppendMessage adds one message, evicting the oldest beyond the limit.
func (s *MemoryStore) AppendMessage(key string, msg providers.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	c.messages = append(c.messages, msg)
	if overflow := len(c.messages) - s.historyLimit; overflow > 0 {
		c.messages = append([]providers.Message(nil), c.messages[overflow:]...)
	}
}

// History returns a copy of the key's ordered history.
func (s *MemoryStore) History(key string) []providers.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[key]
	if !ok {
		return nil
	}
	msgs := make([]providers.Message, len(c.messages))
	copy(msgs, c.messages)
	return msgs
}

// MarkGreeted flags the conversation and reports whether it was the first
// greeting.
func (s *MemoryStore) MarkGreeted(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	first := !c.greeted
	c.greeted = true
	return first
}

// ClearConversation drops history and the greeted flag, keeping handoff
// membership.
func (s *MemoryStore) ClearConversation(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.convs[key]; ok {
		c.messages = nil
		c.greeted = false
	}
}

// MarkHandedOff permanently escalates the conversation.
func (s *MemoryStore) MarkHandedOff(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(key).handedOff = true
}

// IsHandedOff reports handoff membership.
func (s *MemoryStore) IsHandedOff(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[key]
	return ok && c.handedOff
}

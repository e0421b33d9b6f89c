package pg

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nextlevelbuilder/dentassist/internal/providers"
	"github.com/nextlevelbuilder/dentassist/internal/store"
)

type cachedConversation struct {
	messages  []providers.Message
	greeted   bool
	handedOff bool
}

// ConversationStore implements store.ConversationStore backed by Postgres,
// with an in-memory write-through cache so the hot turn path never waits
// on a read. Write failures are logged, not surfaced: the cache stays
// authoritative for the running process and losing a write degrades to the
// in-memory behavior.
type ConversationStore struct {
	db           *sql.DB
	mu           sync.Mutex
	cache        map[string]*cachedConversation
	historyLimit int
}

// NewConversationStore creates the store. limit <= 0 uses
// store.DefaultHistoryLimit.
func NewConversationStore(db *sql.DB) *ConversationStore {
	return NewConversationStoreWithLimit(db, store.DefaultHistoryLimit)
}

// NewConversationStoreWithLimit creates the store with an explicit history
// cap.
func NewConversationStoreWithLimit(db *sql.DB, limit int) *ConversationStore {
	if limit <= 0 {
		limit = store.DefaultHistoryLimit
	}
	return &ConversationStore{
		db:           db,
		cache:        make(map[string]*cachedConversation),
		historyLimit: limit,
	}
}

// get returns the cached conversation, loading it from the database on the
// first access. Callers must hold s.mu.
func (s *ConversationStore) get(key string) *cachedConversation {
	if c, ok := s.cache[key]; ok {
		return c
	}

	c := &cachedConversation{}
	var msgsJSON []byte
	err := s.db.QueryRow(
		`SELECT greeted, handed_off, messages FROM conversations WHERE key = $1`,
		key,
	).Scan(&c.greeted, &c.handedOff, &msgsJSON)
	switch {
	case err == sql.ErrNoRows:
		// New conversation.
	case err != nil:
		slog.Warn("conversation load failed, starting empty", "key", key, "error", err)
	default:
		if err := json.Unmarshal(msgsJSON, &c.messages); err != nil {
			slog.Warn("conversation history unreadable, starting empty", "key", key, "error", err)
			c.messages = nil
		}
	}

	s.cache[key] = c
	return c
}

// persist writes the cached row through to Postgres. Callers must hold
// s.mu.
func (s *ConversationStore) persist(key string, c *cachedConversation) {
	msgsJSON, err := json.Marshal(c.messages)
	if err != nil {
		slog.Warn("conversation marshal failed", "key", key, "error", err)
		return
	}
	if _, err := s.db.Exec(
		`INSERT INTO conversations (key, greeted, handed_off, messages, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key) DO UPDATE
		 SET greeted = $2, handed_off = $3, messages = $4, updated_at = $5`,
		key, c.greeted, c.handedOff, msgsJSON, time.Now(),
	); err != nil {
		slog.Warn("conversation persist failed", "key", key, "error", err)
	}
}

// AppendMessage adds one message, evicting the oldest beyond the limit.
func (s *ConversationStore) AppendMessage(key string, msg providers.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	c.messages = append(c.messages, msg)
	if overflow := len(c.messages) - s.historyLimit; overflow > 0 {
		c.messages = append([]providers.Message(nil), c.messages[overflow:]...)
	}
	s.persist(key, c)
}

// History returns a copy of the key's ordered history.
func (s *ConversationStore) History(key string) []providers.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	msgs := make([]providers.Message, len(c.messages))
	copy(msgs, c.messages)
	return msgs
}

// MarkGreeted flags the conversation and reports whether it was the first
// greeting.
func (s *ConversationStore) MarkGreeted(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	first := !c.greeted
	if first {
		c.greeted = true
		s.persist(key, c)
	}
	return first
}

// ClearConversation drops history and the greeted flag, keeping handoff
// membership.
func (s *ConversationStore) ClearConversation(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	c.messages = nil
	c.greeted = false
	s.persist(key, c)
}

// MarkHandedOff permanently escalates the conversation.
func (s *ConversationStore) MarkHandedOff(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.get(key)
	c.handedOff = true
	s.persist(key, c)
}

// IsHandedOff reports handoff membership.
func (s *ConversationStore) IsHandedOff(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key).handedOff
}

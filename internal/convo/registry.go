package convo

import (
	"strings"
	"sync"
	"time"
)

// Conversation is the runtime state for one conversation key: the debounce
// buffer, its timer, and the two turn-exclusion flags. Durable state
// (history, greeted flag, handoff membership) lives in the conversation
// store, not here.
//
// The embedded mutex is the buffering lock from the pipeline's lock
// discipline: it serializes buffer mutation for one key. The generating
// flag is independent: it guards the expensive reply round trip and is
// only ever read or written while the mutex is held.
type Conversation struct {
	Key string

	mu         sync.Mutex
	chatID     string
	buffer     []string
	timer      *time.Timer
	generating bool
	failures   int
	ingest     []func()
	draining   bool
}

// Submit schedules fn on the conversation's ingestion queue. Tasks run one
// at a time in submission order, so fragments reach the buffer in arrival
// order even when producing one (say, transcribing a voice note) is slow.
// Queues for different conversations drain concurrently.
func (c *Conversation) Submit(fn func()) {
	c.mu.Lock()
	c.ingest = append(c.ingest, fn)
	if !c.draining {
		c.draining = true
		go c.drainIngest()
	}
	c.mu.Unlock()
}

func (c *Conversation) drainIngest() {
	for {
		c.mu.Lock()
		if len(c.ingest) == 0 {
			c.draining = false
			c.mu.Unlock()
			return
		}
		fn := c.ingest[0]
		c.ingest = c.ingest[1:]
		c.mu.Unlock()
		fn()
	}
}

// IngestPending reports whether ingestion tasks are queued or running.
func (c *Conversation) IngestPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draining || len(c.ingest) > 0
}

// Bind captures the deliverable address (primary JID) from an inbound
// event. Replies and presence updates go there; the Key may be an
// alternate JID that is not directly addressable. First bind wins.
func (c *Conversation) Bind(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chatID == "" {
		c.chatID = chatID
	}
}

// Addr returns the bound reply address, falling back to the key.
func (c *Conversation) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chatID != "" {
		return c.chatID
	}
	return c.Key
}

// Enqueue appends a fragment to the debounce buffer and (re)arms the quiet
// window timer. Arming always cancels any previously armed timer for this
// conversation (last fragment wins). fire runs in its own goroutine when
// the window elapses with no further fragments.
func (c *Conversation) Enqueue(fragment string, window time.Duration, fire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buffer = append(c.buffer, fragment)
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(window, fire)
}

// BeginTurn drains the buffer into one consolidated turn and marks
// generation active. It returns ok=false without draining when a
// generation round trip is already in flight (a stale timer firing must
// not duplicate work) or when the buffer is empty.
func (c *Conversation) BeginTurn() (turn string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generating {
		return "", false
	}
	if len(c.buffer) == 0 {
		return "", false
	}

	c.generating = true
	turn = strings.Join(c.buffer, "\n")
	c.buffer = nil
	c.timer = nil
	return turn, true
}

// EndTurn clears the generation-active flag. Called on every exit path of
// the turn flow: success, handoff, quota abort, and error.
func (c *Conversation) EndTurn() {
	c.mu.Lock()
	c.generating = false
	c.mu.Unlock()
}

// Generating reports whether a reply round trip is currently in flight.
func (c *Conversation) Generating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating
}

// BufferLen returns the number of pending fragments.
func (c *Conversation) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// RecordFailure increments the consecutive generation failure counter and
// returns the new value.
func (c *Conversation) RecordFailure() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	return c.failures
}

// ResetFailures clears the consecutive failure counter after a successful
// generation.
func (c *Conversation) ResetFailures() {
	c.mu.Lock()
	c.failures = 0
	c.mu.Unlock()
}

// Registry owns the per-key conversation runtime state. Implementations
// must be safe for concurrent use; independent keys never block each other.
type Registry interface {
	// Get returns the conversation for key, creating it on first use.
	Get(key string) *Conversation
	// Delete removes a conversation's runtime state.
	Delete(key string)
	// Keys returns all currently tracked conversation keys.
	Keys() []string
}

// MemoryRegistry is the default in-process Registry.
type MemoryRegistry struct {
	mu    sync.RWMutex
	convs map[string]*Conversation
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{convs: make(map[string]*Conversation)}
}

// Get returns the conversation for key, creating it on first use.
func (r *MemoryRegistry) Get(key string) *Conversation {
	r.mu.RLock()
	c, ok := r.convs[key]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[key]; ok {
		return c
	}
	c = &Conversation{Key: key}
	r.convs[key] = c
	return c
}

// Delete removes a conversation's runtime state, stopping any armed timer.
func (r *MemoryRegistry) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[key]; ok {
		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
		}
		c.mu.Unlock()
		delete(r.convs, key)
	}
}

// Keys returns all currently tracked conversation keys.
func (r *MemoryRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.convs))
	for k := range r.convs {
		keys = append(keys, k)
	}
	return keys
}

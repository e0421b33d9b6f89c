package convo

import (
	"sync"
	"testing"
	"time"
)

// TestConversation_EnqueueCoalesces verifies that fragments enqueued within
// the quiet window produce exactly one timer fire with the fragments
// newline-joined in arrival order.
func TestConversation_EnqueueCoalesces(t *testing.T) {
	c := &Conversation{Key: "k"}

	fired := make(chan struct{}, 4)
	fire := func() { fired <- struct{}{} }

	c.Enqueue("hola", 30*time.Millisecond, fire)
	time.Sleep(5 * time.Millisecond)
	c.Enqueue("necesito una cita", 30*time.Millisecond, fire)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	turn, ok := c.BeginTurn()
	if !ok {
		t.Fatal("BeginTurn returned ok=false with a non-empty buffer")
	}
	if turn != "hola\nnecesito una cita" {
		t.Errorf("turn = %q, want fragments newline-joined in order", turn)
	}

	// Only the re-armed timer should have fired.
	select {
	case <-fired:
		t.Error("stale timer fired despite re-arming")
	case <-time.After(60 * time.Millisecond):
	}
}

// TestConversation_RearmStartsIndependentTurn verifies that a fragment
// arriving after the window elapsed starts a new, independent turn.
func TestConversation_RearmStartsIndependentTurn(t *testing.T) {
	c := &Conversation{Key: "k"}
	fired := make(chan struct{}, 2)
	fire := func() { fired <- struct{}{} }

	c.Enqueue("primero", 10*time.Millisecond, fire)
	<-fired
	if turn, ok := c.BeginTurn(); !ok || turn != "primero" {
		t.Fatalf("first turn = (%q, %v), want (%q, true)", turn, ok, "primero")
	}
	c.EndTurn()

	c.Enqueue("segundo", 10*time.Millisecond, fire)
	<-fired
	if turn, ok := c.BeginTurn(); !ok || turn != "segundo" {
		t.Fatalf("second turn = (%q, %v), want (%q, true)", turn, ok, "segundo")
	}
}

// TestConversation_BeginTurnWhileGenerating verifies that a stale timer
// firing during an in-flight generation does not drain the buffer.
func TestConversation_BeginTurnWhileGenerating(t *testing.T) {
	c := &Conversation{Key: "k"}
	c.Enqueue("uno", time.Hour, func() {})

	if _, ok := c.BeginTurn(); !ok {
		t.Fatal("expected first BeginTurn to succeed")
	}

	// New fragment arrives while generating.
	c.Enqueue("dos", time.Hour, func() {})
	if _, ok := c.BeginTurn(); ok {
		t.Fatal("BeginTurn succeeded while generation active")
	}
	if got := c.BufferLen(); got != 1 {
		t.Errorf("buffer drained by rejected BeginTurn, len = %d", got)
	}

	c.EndTurn()
	if turn, ok := c.BeginTurn(); !ok || turn != "dos" {
		t.Errorf("after EndTurn, BeginTurn = (%q, %v), want (%q, true)", turn, ok, "dos")
	}
}

// TestConversation_BeginTurnEmptyBuffer verifies the defensive empty-buffer
// abort.
func TestConversation_BeginTurnEmptyBuffer(t *testing.T) {
	c := &Conversation{Key: "k"}
	if _, ok := c.BeginTurn(); ok {
		t.Error("BeginTurn succeeded on an empty buffer")
	}
	if c.Generating() {
		t.Error("generating flag set by a rejected BeginTurn")
	}
}

// TestConversation_FailureCounter covers increment and reset-on-success.
func TestConversation_FailureCounter(t *testing.T) {
	c := &Conversation{Key: "k"}
	if n := c.RecordFailure(); n != 1 {
		t.Errorf("first failure = %d, want 1", n)
	}
	if n := c.RecordFailure(); n != 2 {
		t.Errorf("second failure = %d, want 2", n)
	}
	c.ResetFailures()
	if n := c.RecordFailure(); n != 1 {
		t.Errorf("failure after reset = %d, want 1", n)
	}
}

// TestMemoryRegistry_GetIsStable verifies that concurrent Gets for the same
// key all observe the same Conversation instance.
func TestMemoryRegistry_GetIsStable(t *testing.T) {
	r := NewMemoryRegistry()

	var wg sync.WaitGroup
	results := make([]*Conversation, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Get("573044356143@s.whatsapp.net")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("Get returned distinct instances for one key")
		}
	}
	if len(r.Keys()) != 1 {
		t.Errorf("registry tracking %d keys, want 1", len(r.Keys()))
	}
}

// TestMemoryRegistry_Delete verifies Delete stops an armed timer and drops
// the state.
func TestMemoryRegistry_Delete(t *testing.T) {
	r := NewMemoryRegistry()
	c := r.Get("k")

	fired := make(chan struct{}, 1)
	c.Enqueue("x", 20*time.Millisecond, func() { fired <- struct{}{} })
	r.Delete("k")

	select {
	case <-fired:
		t.Error("timer fired after Delete")
	case <-time.After(50 * time.Millisecond):
	}
	if len(r.Keys()) != 0 {
		t.Errorf("registry still tracking %d keys after Delete", len(r.Keys()))
	}
}

// TestConversation_BindFirstWins verifies the reply address is captured
// once and later inbound addresses do not overwrite it.
func TestConversation_BindFirstWins(t *testing.T) {
	c := &Conversation{Key: "573001112233@s.whatsapp.net"}
	if got := c.Addr(); got != c.Key {
		t.Errorf("unbound Addr() = %q, want the key", got)
	}

	c.Bind("999888777@lid")
	c.Bind("111222333@lid")
	if got := c.Addr(); got != "999888777@lid" {
		t.Errorf("Addr() = %q, want the first bound address", got)
	}
}

// TestConversation_SubmitRunsInOrder verifies the ingestion queue executes
// tasks strictly in submission order, even when a task is slow.
func TestConversation_SubmitRunsInOrder(t *testing.T) {
	c := &Conversation{Key: "k"}

	const n = 50
	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < n; i++ {
		i := i
		c.Submit(func() {
			if i == 0 {
				time.Sleep(10 * time.Millisecond)
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == n-1 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue did not drain")
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("task %d ran at position %d", got, i)
		}
	}
	if c.IngestPending() {
		t.Error("IngestPending() = true after drain")
	}
}

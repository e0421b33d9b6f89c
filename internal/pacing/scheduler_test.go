package pacing

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeSender records every outbound call in order.
type fakeSender struct {
	mu      sync.Mutex
	calls   []string // "send:<text>" or "presence:<state>"
	sendErr error
}

func (f *fakeSender) SendText(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.calls = append(f.calls, "send:"+text)
	return nil
}

func (f *fakeSender) SetPresence(_ context.Context, _, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "presence:"+state)
	return nil
}

// TestDeliver_PresenceBracketsEachSend verifies composing is toggled on
// before and off after every bubble.
func TestDeliver_PresenceBracketsEachSend(t *testing.T) {
	sender := &fakeSender{}
	s := NewScheduler(sender, NoDelays{})

	err := s.Deliver(context.Background(), "573@s.whatsapp.net", []string{"hola", "¿cómo estás?"})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	want := []string{
		"presence:composing", "send:hola", "presence:paused",
		"presence:composing", "send:¿cómo estás?", "presence:paused",
	}
	if len(sender.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", sender.calls, want)
	}
	for i := range want {
		if sender.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, sender.calls[i], want[i])
		}
	}
}

// TestDeliver_NoChunksNoCalls verifies an empty chunk list is a no-op.
func TestDeliver_NoChunksNoCalls(t *testing.T) {
	sender := &fakeSender{}
	s := NewScheduler(sender, NoDelays{})
	if err := s.Deliver(context.Background(), "573@s.whatsapp.net", nil); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Errorf("expected no outbound calls, got %v", sender.calls)
	}
}

// TestDeliver_SendErrorAborts verifies the first send error stops the
// remaining chunks and clears the composing indicator.
func TestDeliver_SendErrorAborts(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("bridge down")}
	s := NewScheduler(sender, NoDelays{})

	err := s.Deliver(context.Background(), "573@s.whatsapp.net", []string{"a", "b"})
	if err == nil {
		t.Fatal("expected send error to propagate")
	}
	last := sender.calls[len(sender.calls)-1]
	if last != "presence:paused" {
		t.Errorf("last call = %q, want composing cleared after failure", last)
	}
}

// TestDeliver_ContextCancelled verifies a cancelled context aborts delivery.
func TestDeliver_ContextCancelled(t *testing.T) {
	sender := &fakeSender{}
	s := NewScheduler(sender, NoDelays{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Deliver(ctx, "573@s.whatsapp.net", []string{"hola"}); err == nil {
		t.Fatal("expected context error")
	}
}

// TestHumanDelays_TypingClamped verifies the typing duration stays within
// the configured clamp for short and very long chunks.
func TestHumanDelays_TypingClamped(t *testing.T) {
	var d HumanDelays
	short := d.Typing("hola")
	if short < typingMin || short > typingMax {
		t.Errorf("short typing delay %v outside [%v, %v]", short, typingMin, typingMax)
	}

	long := d.Typing(repeatWords(200))
	if long != typingMax {
		t.Errorf("long typing delay = %v, want clamped to %v", long, typingMax)
	}
}

// TestHumanDelays_ThinkingFirstLonger verifies the first-chunk thinking
// range sits above the between-bubbles range.
func TestHumanDelays_ThinkingFirstLonger(t *testing.T) {
	var d HumanDelays
	for range 32 {
		if v := d.Thinking(true); v < thinkingFirstMin || v >= thinkingFirstMax {
			t.Fatalf("first thinking delay %v outside [%v, %v)", v, thinkingFirstMin, thinkingFirstMax)
		}
		if v := d.Thinking(false); v < thinkingNextMin || v >= thinkingNextMax {
			t.Fatalf("next thinking delay %v outside [%v, %v)", v, thinkingNextMin, thinkingNextMax)
		}
	}
}

func repeatWords(n int) string {
	s := make([]byte, 0, n*5)
	for range n {
		s = append(s, "word "...)
	}
	return string(s)
}

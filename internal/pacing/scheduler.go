package pacing

import (
	"context"
	"log/slog"
	"time"
)

// Presence states understood by the transport.
const (
	PresenceComposing = "composing"
	PresencePaused    = "paused"
)

// Sender is the outbound surface the scheduler drives. Implemented by the
// WhatsApp channel; tests use a recording fake.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
	SetPresence(ctx context.Context, chatID, state string) error
}

// Scheduler delivers reply chunks with humanlike timing: reading and
// thinking pauses, a composing indicator held for a synthetic typing
// duration, and a gap between bubbles. Presence failures are logged and
// never fail the delivery; send failures abort the remaining chunks.
type Scheduler struct {
	sender Sender
	delays DelayPolicy
}

// NewScheduler builds a Scheduler. A nil policy gets production HumanDelays.
func NewScheduler(sender Sender, delays DelayPolicy) *Scheduler {
	if delays == nil {
		delays = HumanDelays{}
	}
	return &Scheduler{sender: sender, delays: delays}
}

// Deliver paces the chunks out to chatID in order. It returns early on
// context cancellation or the first send error.
func (s *Scheduler) Deliver(ctx context.Context, chatID string, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}

	if err := sleep(ctx, s.delays.Reading()); err != nil {
		return err
	}

	for i, chunk := range chunks {
		if err := sleep(ctx, s.delays.Thinking(i == 0)); err != nil {
			return err
		}

		s.setPresence(ctx, chatID, PresenceComposing)
		if err := sleep(ctx, s.delays.Typing(chunk)); err != nil {
			s.setPresence(ctx, chatID, PresencePaused)
			return err
		}

		if err := s.sender.SendText(ctx, chatID, chunk); err != nil {
			s.setPresence(ctx, chatID, PresencePaused)
			return err
		}
		s.setPresence(ctx, chatID, PresencePaused)

		if i < len(chunks)-1 {
			if err := sleep(ctx, s.delays.Pause()); err != nil {
				return err
			}
		}
	}
	return nil
}

// setPresence is best-effort: a failed typing indicator never aborts a turn.
func (s *Scheduler) setPresence(ctx context.Context, chatID, state string) {
	if err := s.sender.SetPresence(ctx, chatID, state); err != nil {
		slog.Debug("presence update failed", "chat_id", chatID, "state", state, "error", err)
	}
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still honor an already-cancelled context.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

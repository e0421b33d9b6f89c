package pacing

import (
	"math/rand/v2"
	"strings"
	"time"
)

// DelayPolicy decides how long the scheduler waits at each step of a paced
// delivery. It is injected so tests can substitute a zero-delay policy
// instead of asserting on wall-clock timing.
type DelayPolicy interface {
	// Reading simulates the bot reading the incoming message. Slept once,
	// before the first chunk.
	Reading() time.Duration
	// Thinking simulates composing thought. Slept before each chunk; the
	// first chunk gets a longer pause than the ones between bubbles.
	Thinking(first bool) time.Duration
	// Typing returns the synthetic typing duration for one chunk, derived
	// from its word count.
	Typing(text string) time.Duration
	// Pause is the gap between consecutive bubbles (never after the last).
	Pause() time.Duration
}

// Human timing constants, tuned to read like a quick human typist.
const (
	typingBase    = 1 * time.Second
	typingPerWord = 120 * time.Millisecond
	typingMin     = 1500 * time.Millisecond
	typingMax     = 5 * time.Second

	readingMin = 800 * time.Millisecond
	readingMax = 2 * time.Second

	thinkingFirstMin = 1 * time.Second
	thinkingFirstMax = 2500 * time.Millisecond
	thinkingNextMin  = 400 * time.Millisecond
	thinkingNextMax  = 1200 * time.Millisecond

	pauseBase   = 800 * time.Millisecond
	pauseJitter = 400 * time.Millisecond
)

// HumanDelays is the production DelayPolicy: randomized think/type/pause
// durations with small jitter, typing clamped to [typingMin, typingMax].
type HumanDelays struct{}

func (HumanDelays) Reading() time.Duration {
	return between(readingMin, readingMax)
}

func (HumanDelays) Thinking(first bool) time.Duration {
	if first {
		return between(thinkingFirstMin, thinkingFirstMax)
	}
	return between(thinkingNextMin, thinkingNextMax)
}

func (HumanDelays) Typing(text string) time.Duration {
	words := len(strings.Fields(text))
	d := typingBase + time.Duration(words)*typingPerWord

	// Small multiplicative jitter so identical chunks never take the
	// exact same time: ±10%.
	d = time.Duration(float64(d) * (0.9 + rand.Float64()*0.2))

	if d < typingMin {
		return typingMin
	}
	if d > typingMax {
		return typingMax
	}
	return d
}

func (HumanDelays) Pause() time.Duration {
	return pauseBase + time.Duration(rand.Int64N(int64(pauseJitter)))
}

// NoDelays is a deterministic zero-delay policy for tests.
type NoDelays struct{}

func (NoDelays) Reading() time.Duration      { return 0 }
func (NoDelays) Thinking(bool) time.Duration { return 0 }
func (NoDelays) Typing(string) time.Duration { return 0 }
func (NoDelays) Pause() time.Duration        { return 0 }

// between returns a uniformly random duration in [lo, hi).
func between(lo, hi time.Duration) time.Duration {
	return lo + time.Duration(rand.Int64N(int64(hi-lo)))
}

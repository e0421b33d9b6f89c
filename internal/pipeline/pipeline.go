// Package pipeline is the conversation funnel: inbound events are keyed,
// debounce-buffered per conversation, consolidated into a single turn,
// answered with one gateway round trip, and delivered as paced chunks.
// Exactly one generation round trip runs per conversation at a time;
// independent conversations proceed concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/nextlevelbuilder/dentassist/internal/bus"
	"github.com/nextlevelbuilder/dentassist/internal/channels"
	"github.com/nextlevelbuilder/dentassist/internal/config"
	"github.com/nextlevelbuilder/dentassist/internal/convo"
	"github.com/nextlevelbuilder/dentassist/internal/pacing"
	"github.com/nextlevelbuilder/dentassist/internal/prompt"
	"github.com/nextlevelbuilder/dentassist/internal/providers"
	"github.com/nextlevelbuilder/dentassist/internal/quota"
	"github.com/nextlevelbuilder/dentassist/internal/store"
)

// maxAudioSeconds rejects voice notes longer than five minutes before any
// transcription spend.
const maxAudioSeconds = 300

// summaryMaxTokens bounds the coordinator summary request.
const summaryMaxTokens = 300

// firstContactReadDelay is how long the assistant "takes to pick up the
// phone" before the read receipt on a conversation's first message.
const firstContactReadDelay = 3 * time.Second

// markerRe matches the handoff sentinel anywhere in a reply, any case.
var markerRe = regexp.MustCompile(`(?i)\[HUMANO\]`)

// Options wires a Pipeline. Config, Registry, Store, Provider, Channel and
// Router are required; Transcriber is optional (voice notes get an apology
// without one) and a nil Delays gets the production pacing profile.
type Options struct {
	Config      *config.Config
	Registry    convo.Registry
	Store       store.ConversationStore
	Provider    providers.Provider
	Transcriber providers.Transcriber
	Channel     channels.Channel
	Router      bus.MessageRouter
	Delays      pacing.DelayPolicy
	Policy      Policy
}

// Pipeline routes inbound conversation events to paced replies.
type Pipeline struct {
	cfg         *config.Config
	registry    convo.Registry
	store       store.ConversationStore
	provider    providers.Provider
	transcriber providers.Transcriber
	channel     channels.Channel
	router      bus.MessageRouter
	scheduler   *pacing.Scheduler
	guard       *quota.Guard
	loc         *time.Location
	policy      Policy

	readDelay time.Duration
}

// New validates opts and builds the Pipeline.
func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Config == nil:
		return nil, errors.New("pipeline: config is required")
	case opts.Registry == nil:
		return nil, errors.New("pipeline: registry is required")
	case opts.Store == nil:
		return nil, errors.New("pipeline: store is required")
	case opts.Provider == nil:
		return nil, errors.New("pipeline: provider is required")
	case opts.Channel == nil:
		return nil, errors.New("pipeline: channel is required")
	case opts.Router == nil:
		return nil, errors.New("pipeline: router is required")
	}

	loc, err := time.LoadLocation(opts.Config.Pipeline.Timezone)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load timezone %q: %w", opts.Config.Pipeline.Timezone, err)
	}

	policy := opts.Policy
	if policy == nil {
		policy = NopPolicy{}
	}

	return &Pipeline{
		cfg:         opts.Config,
		registry:    opts.Registry,
		store:       opts.Store,
		provider:    opts.Provider,
		transcriber: opts.Transcriber,
		channel:     opts.Channel,
		router:      opts.Router,
		scheduler:   pacing.NewScheduler(opts.Channel, opts.Delays),
		guard:       quota.New(opts.Config.Pipeline.DailyLimit, loc),
		loc:         loc,
		policy:      policy,
		readDelay:   firstContactReadDelay,
	}, nil
}

// Serve consumes inbound events until ctx is cancelled. Events are handled
// on this goroutine: ingestion is cheap (filters, keying, a queue append),
// and consuming in order is what guarantees fragments for one conversation
// hit that conversation's queue in arrival order. Slow work (transcription)
// runs on the per-conversation queue, so it only ever delays its own key.
func (p *Pipeline) Serve(ctx context.Context) error {
	for {
		msg, ok := p.router.ConsumeInbound(ctx)
		if !ok {
			return ctx.Err()
		}
		p.HandleInbound(ctx, msg)
	}
}

// QuotaUsed returns the number of replies generated today.
func (p *Pipeline) QuotaUsed() int {
	return p.guard.Used()
}

// HandleInbound ingests one inbound event: filter, key and acknowledge
// inline, then hand the fragment to the conversation's FIFO ingestion
// queue. Callers that need arrival-order guarantees must call this in
// arrival order; Serve does.
func (p *Pipeline) HandleInbound(ctx context.Context, msg bus.InboundMessage) {
	if msg.FromSelf {
		return
	}
	if convo.IsBroadcast(msg.ChatID) || convo.IsGroup(msg.ChatID) {
		return
	}

	key := convo.ResolveKey(msg.ChatID, msg.AltChatID, msg.Participant)
	if key == "" {
		return
	}
	if p.store.IsHandedOff(key) {
		slog.Debug("message for handed-off conversation dropped", "key", key)
		return
	}

	c := p.registry.Get(key)
	c.Bind(msg.ChatID)
	chatID := c.Addr()

	firstContact := len(p.store.History(key)) == 0 && c.BufferLen() == 0

	if msg.MessageID != "" {
		delay := time.Duration(0)
		if firstContact {
			delay = p.readDelay
		}
		go p.markRead(ctx, chatID, msg.MessageID, delay)
	}

	c.Submit(func() {
		p.ingest(ctx, c, msg)
	})
}

// ingest produces the fragment's text (transcribing a voice note when
// present) and buffers it, (re)arming the quiet window. Runs on the
// conversation's ingestion queue.
func (p *Pipeline) ingest(ctx context.Context, c *convo.Conversation, msg bus.InboundMessage) {
	content := strings.TrimSpace(msg.Content)
	if msg.Audio != nil {
		transcript, ok := p.transcribe(ctx, c.Addr(), msg.Audio)
		if !ok {
			return
		}
		content = transcript
	}
	if content == "" {
		return
	}

	slog.Debug("fragment buffered", "key", c.Key, "pending", c.BufferLen()+1)
	c.Enqueue(content, p.cfg.QuietWindow(), func() {
		p.processTurn(ctx, c)
	})
}

// transcribe turns a voice note into text. On any failure the user gets an
// apology and ok=false.
func (p *Pipeline) transcribe(ctx context.Context, chatID string, audio *bus.AudioPayload) (string, bool) {
	if audio.Seconds > maxAudioSeconds {
		p.send(ctx, chatID, prompt.MsgAudioTooLong)
		return "", false
	}
	if p.transcriber == nil {
		p.send(ctx, chatID, prompt.MsgAudioFailed)
		return "", false
	}

	p.setPresence(ctx, chatID, pacing.PresenceComposing)
	transcript, err := p.transcriber.Transcribe(ctx, audio.Data, audio.MimeType)
	p.setPresence(ctx, chatID, pacing.PresencePaused)

	transcript = strings.TrimSpace(transcript)
	if err != nil || transcript == "" {
		if err != nil {
			slog.Error("transcription failed", "chat_id", chatID, "error", err)
		}
		p.send(ctx, chatID, prompt.MsgAudioFailed)
		return "", false
	}
	return transcript, true
}

// processTurn runs when a conversation's quiet window elapses: drain the
// buffer, make one gateway round trip, deliver the paced reply, and run the
// handoff protocol when the reply asks for it.
func (p *Pipeline) processTurn(ctx context.Context, c *convo.Conversation) {
	turn, ok := c.BeginTurn()
	if !ok {
		return
	}
	defer c.EndTurn()

	key := c.Key
	chatID := c.Addr()

	// A handoff may have landed while the fragments sat in the buffer.
	if p.store.IsHandedOff(key) {
		return
	}

	if !p.guard.Allow() {
		slog.Warn("daily reply quota reached, turn dropped", "key", key, "used", p.guard.Used())
		if m := p.cfg.Pipeline.QuotaExceededMessage; m != "" {
			p.send(ctx, chatID, m)
		}
		return
	}

	firstTurn := p.store.MarkGreeted(key)
	p.store.AppendMessage(key, providers.Message{Role: providers.RoleUser, Content: turn})

	messages := make([]providers.Message, 0, p.cfg.Pipeline.HistoryLimit+1)
	messages = append(messages, providers.Message{Role: providers.RoleSystem, Content: prompt.System(firstTurn)})
	messages = append(messages, p.store.History(key)...)

	p.setPresence(ctx, chatID, pacing.PresenceComposing)
	resp, err := p.provider.Chat(ctx, providers.ChatRequest{
		Model:       p.cfg.OpenAI.Model,
		Messages:    messages,
		Temperature: p.cfg.OpenAI.Temperature,
		MaxTokens:   p.cfg.OpenAI.MaxTokens,
	})
	p.setPresence(ctx, chatID, pacing.PresencePaused)

	if err != nil {
		failures := c.RecordFailure()
		slog.Error("reply generation failed", "key", key, "consecutive", failures, "error", err)
		if failures >= p.cfg.Pipeline.FailureThreshold {
			p.handOff(ctx, c, true)
			return
		}
		p.send(ctx, chatID, prompt.MsgGenerationRetry)
		return
	}
	c.ResetFailures()

	reply := strings.TrimSpace(resp.Content)

	// The raw reply, marker included, goes into history before anything
	// else so a summary sees what the model actually said.
	p.store.AppendMessage(key, providers.Message{Role: providers.RoleAssistant, Content: reply})
	p.guard.Record()

	wantsHandoff := markerRe.MatchString(reply)
	visible := strings.TrimSpace(markerRe.ReplaceAllString(reply, ""))

	if visible != "" {
		chunks := pacing.SplitReply(visible)
		if err := p.scheduler.Deliver(ctx, chatID, chunks); err != nil {
			slog.Error("paced delivery failed", "key", key, "error", err)
		}
	}

	if wantsHandoff {
		p.handOff(ctx, c, false)
		return
	}
	if p.policy.ShouldEscalate(turn, reply) {
		p.handOff(ctx, c, true)
	}
}

// markRead sends a read receipt after delay, abandoning it on shutdown.
func (p *Pipeline) markRead(ctx context.Context, chatID, messageID string, delay time.Duration) {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
	if err := p.channel.MarkRead(ctx, chatID, messageID); err != nil {
		slog.Debug("read receipt failed", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

// send is a direct, unpaced delivery for service messages.
func (p *Pipeline) send(ctx context.Context, chatID, text string) {
	if err := p.channel.SendText(ctx, chatID, text); err != nil {
		slog.Error("send failed", "chat_id", chatID, "error", err)
	}
}

func (p *Pipeline) setPresence(ctx context.Context, chatID, state string) {
	if err := p.channel.SetPresence(ctx, chatID, state); err != nil {
		slog.Debug("presence update failed", "chat_id", chatID, "state", state, "error", err)
	}
}

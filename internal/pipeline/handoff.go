package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/dentassist/internal/convo"
	"github.com/nextlevelbuilder/dentassist/internal/prompt"
	"github.com/nextlevelbuilder/dentassist/internal/providers"
)

// handOff escalates a conversation to the human coordinator: mark the key
// handed off first so concurrent inbound traffic is dropped immediately,
// summarize the history for the coordinator, notify the operator chat, and
// wipe the conversation so a future reactivation starts fresh.
//
// notifyUser forces the "connecting you with our coordinator" message; it
// is also sent when summarization fails, since on that path the user never
// saw a model-written farewell.
func (p *Pipeline) handOff(ctx context.Context, c *convo.Conversation, notifyUser bool) {
	key := c.Key
	chatID := c.Addr()

	p.store.MarkHandedOff(key)
	history := p.store.History(key)
	phone := convo.DisplayPhone(key)
	now := time.Now().In(p.loc)

	summary, err := p.summarize(ctx, history)
	var note string
	if err != nil {
		slog.Error("handoff summary failed", "key", key, "error", err)
		note = prompt.DegradedNotification(phone, now)
		notifyUser = true
	} else {
		note = prompt.OperatorNotification(phone, summary, now)
	}

	if notifyUser {
		p.send(ctx, chatID, prompt.MsgConnectingHuman)
	}

	if operator := p.cfg.WhatsApp.OperatorJID; operator != "" {
		p.send(ctx, operator, note)
	} else {
		slog.Warn("no operator chat configured, handoff notification dropped", "key", key)
	}

	p.store.ClearConversation(key)
	p.registry.Delete(key)
	slog.Info("conversation handed off", "key", key, "phone", phone)
}

// summarize asks the gateway for the coordinator-facing summary of one
// conversation.
func (p *Pipeline) summarize(ctx context.Context, history []providers.Message) (string, error) {
	if len(history) == 0 {
		return "", errors.New("empty history")
	}

	resp, err := p.provider.Chat(ctx, providers.ChatRequest{
		Model: p.cfg.OpenAI.SummaryModelName(),
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: prompt.SummaryInstruction},
			{Role: providers.RoleUser, Content: prompt.SummaryUserContent(history)},
		},
		Temperature: 0.3,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", errors.New("empty summary")
	}
	return summary, nil
}

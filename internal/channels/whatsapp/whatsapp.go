// Package whatsapp connects to a WhatsApp bridge via WebSocket. The bridge
// (whatsapp-web.js / Baileys based) handles the actual WhatsApp protocol;
// this channel exchanges JSON frames with it.
package whatsapp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/dentassist/internal/bus"
	"github.com/nextlevelbuilder/dentassist/internal/config"
)

const maxReconnectBackoff = 30 * time.Second

// Channel implements channels.Channel over the bridge WebSocket.
type Channel struct {
	cfg     config.WhatsAppConfig
	bus     bus.MessageRouter
	mu      sync.Mutex
	conn    *websocket.Conn
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a WhatsApp channel from config.
func New(cfg config.WhatsAppConfig, router bus.MessageRouter) (*Channel, error) {
	if cfg.BridgeURL == "" {
		return nil, fmt.Errorf("whatsapp bridge_url is required")
	}
	return &Channel{cfg: cfg, bus: router}, nil
}

// Name returns "whatsapp".
func (c *Channel) Name() string { return "whatsapp" }

// IsRunning reports whether the listen loop is active.
func (c *Channel) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start connects to the bridge and begins listening.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting whatsapp channel", "bridge_url", c.cfg.BridgeURL)

	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(); err != nil {
		// Don't fail hard, the listen loop keeps retrying.
		slog.Warn("initial whatsapp bridge connection failed, will retry", "error", err)
	}

	go c.listenLoop()

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	return nil
}

// Stop gracefully shuts down the channel.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping whatsapp channel")

	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.running = false
	return nil
}

// bridgeFrame is the JSON envelope exchanged with the bridge.
type bridgeFrame struct {
	Type string `json:"type"` // "message", "presence", "read"

	// Inbound fields.
	From        string `json:"from,omitempty"`
	FromAlt     string `json:"from_alt,omitempty"`
	Participant string `json:"participant,omitempty"`
	FromMe      bool   `json:"from_me,omitempty"`
	Content     string `json:"content,omitempty"`
	Audio       *struct {
		Data     string `json:"data"` // base64
		Seconds  int    `json:"seconds"`
		MimeType string `json:"mime_type"`
	} `json:"audio,omitempty"`
	ID string `json:"id,omitempty"`

	// Outbound fields.
	To    string `json:"to,omitempty"`
	Text  string `json:"text,omitempty"`
	State string `json:"state,omitempty"`
}

// SendText delivers one text message through the bridge. Each outbound
// message carries a generated ID so bridge-side acks and logs correlate.
func (c *Channel) SendText(_ context.Context, chatID, text string) error {
	return c.write(bridgeFrame{Type: "message", To: chatID, Text: text, ID: uuid.NewString()})
}

// SetPresence toggles the typing indicator for a chat.
func (c *Channel) SetPresence(_ context.Context, chatID, state string) error {
	return c.write(bridgeFrame{Type: "presence", To: chatID, State: state})
}

// MarkRead requests a read receipt for one message.
func (c *Channel) MarkRead(_ context.Context, chatID, messageID string) error {
	return c.write(bridgeFrame{Type: "read", To: chatID, ID: messageID})
}

func (c *Channel) write(frame bridgeFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("whatsapp bridge not connected")
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal bridge frame: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write to whatsapp bridge: %w", err)
	}
	return nil
}

// connect establishes the WebSocket connection to the bridge.
func (c *Channel) connect() error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.cfg.BridgeURL, nil)
	if err != nil {
		return fmt.Errorf("dial whatsapp bridge %s: %w", c.cfg.BridgeURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	slog.Info("whatsapp bridge connected", "url", c.cfg.BridgeURL)
	return nil
}

// listenLoop reads frames from the bridge with automatic reconnection.
func (c *Channel) listenLoop() {
	backoff := time.Second

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			slog.Info("attempting whatsapp bridge reconnect", "backoff", backoff)

			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}

			if err := c.connect(); err != nil {
				slog.Warn("whatsapp bridge reconnect failed", "error", err)
				backoff = min(backoff*2, maxReconnectBackoff)
				continue
			}
			backoff = time.Second
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("whatsapp read error, will reconnect", "error", err)

			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()
			continue
		}

		var frame bridgeFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("invalid whatsapp bridge frame", "error", err)
			continue
		}
		if frame.Type == "message" {
			c.handleIncoming(frame)
		}
	}
}

// handleIncoming converts a bridge message frame into a bus event.
func (c *Channel) handleIncoming(frame bridgeFrame) {
	if frame.From == "" {
		return
	}

	msg := bus.InboundMessage{
		Channel:     c.Name(),
		ChatID:      frame.From,
		AltChatID:   frame.FromAlt,
		Participant: frame.Participant,
		Content:     frame.Content,
		MessageID:   frame.ID,
		FromSelf:    frame.FromMe,
	}

	if frame.Audio != nil {
		audio, err := base64.StdEncoding.DecodeString(frame.Audio.Data)
		if err != nil {
			slog.Warn("whatsapp audio payload undecodable", "chat_id", frame.From, "error", err)
		} else {
			msg.Audio = &bus.AudioPayload{
				Data:     audio,
				Seconds:  frame.Audio.Seconds,
				MimeType: frame.Audio.MimeType,
			}
		}
	}

	slog.Debug("whatsapp message received",
		"chat_id", msg.ChatID,
		"has_audio", msg.Audio != nil,
		"content_len", len(msg.Content),
	)
	c.bus.PublishInbound(msg)
}

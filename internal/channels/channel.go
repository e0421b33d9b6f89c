// Package channels defines the messaging-transport abstraction the
// pipeline talks to. A channel connects one external platform, publishes
// inbound events to the bus, and exposes the outbound primitives the
// pacing scheduler and handoff controller drive.
package channels

import "context"

// Channel is the transport contract. All outbound primitives are
// fire-and-forget from the pipeline's point of view: callers log failures
// and move on, they never fail a turn over them.
type Channel interface {
	// Name returns the channel identifier (e.g. "whatsapp").
	Name() string

	// Start begins listening for messages. Non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// SendText delivers one text message to a chat.
	SendText(ctx context.Context, chatID, text string) error

	// SetPresence toggles the typing indicator: "composing" or "paused".
	SetPresence(ctx context.Context, chatID, state string) error

	// MarkRead requests a read receipt for one message.
	MarkRead(ctx context.Context, chatID, messageID string) error

	// IsRunning reports whether the channel is actively processing.
	IsRunning() bool
}

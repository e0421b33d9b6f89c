package bus

import (
	"context"
	"log/slog"
)

// inboundBuffer absorbs short bursts without blocking the transport's read
// loop.
const inboundBuffer = 256

// MessageBus is a simple buffered in-process MessageRouter.
type MessageBus struct {
	inbound chan InboundMessage
}

// New creates a MessageBus.
func New() *MessageBus {
	return &MessageBus{inbound: make(chan InboundMessage, inboundBuffer)}
}

// PublishInbound enqueues an inbound event. When the buffer is full the
// event is dropped with a log; backpressure onto the transport read loop
// would stall every conversation at once.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
		slog.Warn("inbound bus full, dropping message",
			"channel", msg.Channel, "chat_id", msg.ChatID)
	}
}

// ConsumeInbound blocks until an event is available or ctx is done. The
// second return value is false only on cancellation.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case <-ctx.Done():
		return InboundMessage{}, false
	case msg := <-b.inbound:
		return msg, true
	}
}

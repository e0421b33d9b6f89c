// Package bus carries inbound events from the messaging transport to the
// conversation pipeline. Outbound traffic does not ride the bus: the
// pacing scheduler owns the ordering between presence toggles, sleeps and
// sends, so it talks to the channel directly.
package bus

import "context"

// AudioPayload is a voice-note attachment on an inbound message.
type AudioPayload struct {
	Data     []byte `json:"data"`
	Seconds  int    `json:"seconds"`
	MimeType string `json:"mime_type"`
}

// InboundMessage is one "new message" event from a channel.
type InboundMessage struct {
	Channel string `json:"channel"`

	// Addressing fields, in the transport's own terms. ChatID is the
	// primary conversation JID (also the reply address); AltChatID is the
	// canonical/real-number variant when the primary is anonymized;
	// Participant is set for group-style events.
	ChatID      string `json:"chat_id"`
	AltChatID   string `json:"alt_chat_id,omitempty"`
	Participant string `json:"participant,omitempty"`

	Content   string        `json:"content"`
	Audio     *AudioPayload `json:"audio,omitempty"`
	MessageID string        `json:"message_id,omitempty"`
	FromSelf  bool          `json:"from_self,omitempty"`
}

// MessageRouter abstracts inbound routing between channels and the
// pipeline runtime.
type MessageRouter interface {
	PublishInbound(msg InboundMessage)
	ConsumeInbound(ctx context.Context) (InboundMessage, bool)
}

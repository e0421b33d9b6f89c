// Package convo holds per-conversation identity and runtime state.
//
// A conversation key is derived from a WhatsApp event's addressing fields
// and stays stable for the lifetime of the counterparty's chat thread.
package convo

import "strings"

// WhatsApp JID suffixes.
const (
	SuffixUser      = "@s.whatsapp.net"
	SuffixLID       = "@lid"
	SuffixGroup     = "@g.us"
	SuffixBroadcast = "@broadcast"
)

// Placeholder strings for phone display. User-facing (Spanish, shown to the
// clinic coordinator in handoff notifications).
const (
	PhoneUnavailable = "Número no disponible"
	PhoneEncrypted   = "Número encriptado (WhatsApp LID)"
)

// ResolveKey derives the conversation key from an event's addressing fields.
// Precedence: canonical/alternate JID > participant JID > primary JID.
// The alternate carries the real phone number when the primary is an
// anonymized LID address.
func ResolveKey(primary, alt, participant string) string {
	if alt != "" {
		return alt
	}
	if participant != "" {
		return participant
	}
	return primary
}

// DisplayPhone maps a JID to a presentable phone string. It never fails:
// unrecognized suffixes are stripped generically and an empty input yields
// an explicit unavailable sentinel.
func DisplayPhone(addr string) string {
	switch {
	case addr == "":
		return PhoneUnavailable
	case strings.HasSuffix(addr, SuffixUser):
		return strings.TrimSuffix(addr, SuffixUser)
	case strings.HasSuffix(addr, SuffixLID):
		// LID addresses are opaque; there is no phone number to recover.
		return PhoneEncrypted
	case strings.HasSuffix(addr, SuffixGroup):
		return strings.TrimSuffix(addr, SuffixGroup)
	}
	if idx := strings.Index(addr, "@"); idx >= 0 {
		return addr[:idx]
	}
	return addr
}

// IsGroup reports whether a JID addresses a group chat.
func IsGroup(addr string) bool {
	return strings.HasSuffix(addr, SuffixGroup)
}

// IsBroadcast reports whether a JID addresses a broadcast/status channel.
func IsBroadcast(addr string) bool {
	return strings.HasSuffix(addr, SuffixBroadcast)
}

// Package store holds the durable side of conversation state: message
// history, the greeted flag, and handoff membership. Runtime debounce
// state stays in the convo registry; everything here survives a store swap
// (in-memory default, Postgres for deployments that must not lose state on
// restart).
package store

import "github.com/nextlevelbuilder/dentassist/internal/providers"

// ConversationStore manages durable per-conversation state. All methods
// are safe for concurrent use. Mutations for one key only ever happen from
// that key's serialized turn path, so implementations need no per-key
// ordering guarantees beyond their own internal locking.
type ConversationStore interface {
	// AppendMessage adds one role-tagged message to the key's history,
	// evicting the oldest entries beyond the store's history limit.
	AppendMessage(key string, msg providers.Message)

	// History returns a copy of the key's ordered history.
	History(key string) []providers.Message

	// MarkGreeted flags the conversation as greeted and reports whether
	// this call was the first greeting.
	MarkGreeted(key string) bool

	// ClearConversation drops the key's history and greeted flag so a
	// reactivated conversation starts fresh. Handoff membership is NOT
	// cleared; that is permanent for the process lifetime.
	ClearConversation(key string)

	// MarkHandedOff permanently escalates the conversation to a human.
	MarkHandedOff(key string)

	// IsHandedOff reports whether the conversation belongs to a human.
	IsHandedOff(key string) bool
}

// DefaultHistoryLimit caps per-conversation history length (sliding
// window, oldest evicted first).
const DefaultHistoryLimit = 12

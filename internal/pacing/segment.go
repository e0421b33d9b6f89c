// Package pacing splits generated replies into human-sized message bubbles
// and delivers them with humanlike typing cadence. A counterpart receiving
// three instantaneous messages with no typing indicator reads as an obvious
// bot; this package exists to avoid that.
package pacing

import (
	"regexp"
	"strings"
)

// MaxChunks caps how many bubbles one reply is split into.
const MaxChunks = 3

// chunkSeparator rejoins overflow segments into the final chunk.
const chunkSeparator = "\n\n"

// hardBreak matches a run of two or more line breaks. A single line break
// stays inside one bubble; a blank line is a bubble boundary.
var hardBreak = regexp.MustCompile(`\n{2,}`)

// SplitReply segments a reply into at most MaxChunks trimmed, non-empty
// chunks. When more than MaxChunks segments result, the first two are kept
// as-is and everything remaining is rejoined into the third.
func SplitReply(reply string) []string {
	parts := hardBreak.Split(reply, -1)

	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, p)
		}
	}

	if len(chunks) > MaxChunks {
		rest := strings.Join(chunks[MaxChunks-1:], chunkSeparator)
		chunks = append(chunks[:MaxChunks-1], rest)
	}
	return chunks
}

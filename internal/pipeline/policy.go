package pipeline

// Policy is an optional product-policy hook consulted after each completed
// exchange. It sees the consolidated user turn and the raw reply and may
// request escalation to a human. Content heuristics (lead scoring, urgency
// keywords, frustration detection) belong here, never in the pipeline's
// control flow.
type Policy interface {
	ShouldEscalate(userTurn, reply string) bool
}

// NopPolicy never escalates. The default.
type NopPolicy struct{}

func (NopPolicy) ShouldEscalate(userTurn, reply string) bool { return false }

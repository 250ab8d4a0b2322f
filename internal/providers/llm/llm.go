package llm

import "context"

// Request carries everything a responder may condition on. History is
// oldest-first.
type Request struct {
	Mode        string
	Instruction string
	JobTitle    string
	JDText      string
	Candidate   string
	InboundText string
	History     []string
	Language    string
	State       map[string]any
}

// Responder generates one candidate-facing reply. Implementations
// that fail or return empty must surface that through the error or
// the empty string; the caller, never the responder, decides to fall
// back to its deterministic text.
type Responder interface {
	GenerateCandidateReply(ctx context.Context, req Request) (string, error)
}

// ReplyOrFallback runs the responder and substitutes fallback on
// error, empty output, or a nil responder. This is the only way the
// core consumes a Responder.
func ReplyOrFallback(ctx context.Context, r Responder, req Request, fallback string) string {
	if r == nil {
		return fallback
	}
	out, err := r.GenerateCandidateReply(ctx, req)
	if err != nil || out == "" {
		return fallback
	}
	return out
}

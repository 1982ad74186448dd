package rag

import "patriotpilot/internal/retrieval"

// AskRequest is a grounded question. Policy fields left empty fall back to
// the service defaults.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// Policy is "topk" or "threshold".
	Policy string `json:"policy,omitempty"`
	// K is the neighbor count for the top-k policy.
	K int `json:"k,omitempty"`
	// Threshold is the minimum cosine similarity for the threshold policy.
	Threshold *float64 `json:"threshold,omitempty"`
}

// AskResponse is the generated answer with the chunks it was grounded in.
type AskResponse struct {
	// Answer is the generated text, returned verbatim.
	Answer string `json:"answer"`
	// Sources are the retrieved chunks in ranked order. Empty when nothing matched.
	Sources []retrieval.Hit `json:"sources"`
	// Policy describes the policy that was applied, e.g. "topk(3)".
	Policy string `json:"policy"`
	// ContextLength is the size of the context in the budget unit.
	ContextLength int `json:"context_length"`
}

// RetrieveRequest asks for ranked chunks without generation.
type RetrieveRequest struct {
	Query     string   `json:"query"`
	Policy    string   `json:"policy,omitempty"`
	K         int      `json:"k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// RetrieveResponse lists ranked chunks.
type RetrieveResponse struct {
	Hits   []retrieval.Hit `json:"hits"`
	Policy string          `json:"policy"`
}

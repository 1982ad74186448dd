package retrieval

import (
	"fmt"
	"strings"

	"patriotpilot/internal/service"
)

// PolicyKind selects how neighbors are chosen.
type PolicyKind string

const (
	// TopK returns the k nearest chunks by Euclidean distance.
	TopK PolicyKind = "topk"
	// Threshold returns every chunk whose cosine similarity reaches the threshold.
	Threshold PolicyKind = "threshold"
)

// Defaults used when a policy field is left unset by a caller.
const (
	DefaultK         = 3
	DefaultThreshold = 0.7
)

// Policy is a retrieval policy chosen per call.
type Policy struct {
	Kind      PolicyKind
	K         int
	Threshold float64
}

// TopKPolicy returns a top-k policy.
func TopKPolicy(k int) Policy {
	return Policy{Kind: TopK, K: k}
}

// ThresholdPolicy returns a threshold policy.
func ThresholdPolicy(threshold float64) Policy {
	return Policy{Kind: Threshold, Threshold: threshold}
}

// ParsePolicy builds a policy from its textual kind. Only the parameter the
// kind uses is validated.
func ParsePolicy(kind string, k int, threshold float64) (Policy, error) {
	var p Policy
	switch PolicyKind(strings.ToLower(strings.TrimSpace(kind))) {
	case TopK:
		p = TopKPolicy(k)
	case Threshold:
		p = ThresholdPolicy(threshold)
	default:
		return Policy{}, &service.ValidationError{Field: "policy", Message: fmt.Sprintf("must be %q or %q, got %q", TopK, Threshold, kind)}
	}
	return p, p.Validate()
}

// Validate reports whether the policy can be executed.
func (p Policy) Validate() error {
	switch p.Kind {
	case TopK:
		if p.K < 1 {
			return &service.ValidationError{Field: "k", Message: "must be at least 1"}
		}
	case Threshold:
		if p.Threshold < -1 || p.Threshold > 1 {
			return &service.ValidationError{Field: "threshold", Message: "must be between -1 and 1"}
		}
	default:
		return &service.ValidationError{Field: "policy", Message: fmt.Sprintf("unknown policy %q", p.Kind)}
	}
	return nil
}

func (p Policy) String() string {
	if p.Kind == Threshold {
		return fmt.Sprintf("threshold(%g)", p.Threshold)
	}
	return fmt.Sprintf("topk(%d)", p.K)
}

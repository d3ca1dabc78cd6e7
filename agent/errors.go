package agent

import "fmt"

// Routing error kinds categorize why a router node could not transfer
// control. The set is closed.
const (
	// RoutingUnknownTarget marks a classification label that names no child.
	RoutingUnknownTarget = "UNKNOWN_TARGET"
	// RoutingTimeout marks a classification call that exceeded its deadline.
	RoutingTimeout = "TIMEOUT"
	// RoutingNoDefault marks a failed or empty classification with no
	// default child configured to absorb it.
	RoutingNoDefault = "NO_DEFAULT"
)

// RoutingError reports a router dispatch failure. Label carries the raw
// classifier output when one was produced.
type RoutingError struct {
	Router string `json:"router"`          // Name of the router that failed
	Label  string `json:"label,omitempty"` // Raw label returned by the classifier
	Kind   string `json:"kind"`            // Error kind for categorization
	Err    error  `json:"-"`               // Underlying cause, if any
}

func (e *RoutingError) Error() string {
	switch {
	case e.Label != "" && e.Err != nil:
		return fmt.Sprintf("routing error [%s] in %s: label %q: %v", e.Kind, e.Router, e.Label, e.Err)
	case e.Label != "":
		return fmt.Sprintf("routing error [%s] in %s: label %q", e.Kind, e.Router, e.Label)
	case e.Err != nil:
		return fmt.Sprintf("routing error [%s] in %s: %v", e.Kind, e.Router, e.Err)
	default:
		return fmt.Sprintf("routing error [%s] in %s", e.Kind, e.Router)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *RoutingError) Unwrap() error { return e.Err }

// NewRoutingError creates a RoutingError for the given router and kind.
func NewRoutingError(router, kind, label string, err error) *RoutingError {
	return &RoutingError{Router: router, Kind: kind, Label: label, Err: err}
}

// SynthesisError reports that a parallel node's synthesizer could not
// produce a combined reply from its children's results.
type SynthesisError struct {
	Node string `json:"node"` // Name of the parallel node
	Err  error  `json:"-"`    // Underlying cause
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed in %s: %v", e.Node, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *SynthesisError) Unwrap() error { return e.Err }

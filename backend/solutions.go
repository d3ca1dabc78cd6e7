package backend

// Solution is a generated troubleshooting checklist for an error type.
type Solution struct {
	ErrorType string   `json:"error_type"`
	Context   string   `json:"context,omitempty"`
	Steps     []string `json:"steps"`
	Summary   string   `json:"summary"`
}

// SolutionGuide produces high-level troubleshooting steps. The checklist is
// fixed; a real implementation would tailor it to the error type.
type SolutionGuide struct{}

// NewSolutionGuide constructs a SolutionGuide.
func NewSolutionGuide() *SolutionGuide { return &SolutionGuide{} }

// GenerateSteps returns the troubleshooting checklist for the given error
// type and optional context.
func (SolutionGuide) GenerateSteps(errorType, context string) Solution {
	return Solution{
		ErrorType: errorType,
		Context:   context,
		Steps: []string{
			"Review the full error message and recent changes.",
			"Check relevant logs or dashboards for more details.",
			"Verify configuration and credentials, if applicable.",
			"Try the simplest safe workaround or rollback.",
			"If the issue persists, collect details for escalation.",
		},
		Summary: "Basic troubleshooting checklist generated for this error type.",
	}
}

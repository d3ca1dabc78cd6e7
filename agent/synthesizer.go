package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/tool"
)

// Synthesizer merges a parallel node's settled child results into one
// output. Implementations must produce a useful reply even when some
// children failed; naming unavailable sources beats hiding them.
type Synthesizer interface {
	Synthesize(ctx context.Context, tc *core.TurnContext, input string, results []ChildResult) (string, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, tc *core.TurnContext, input string, results []ChildResult) (string, error)

// Synthesize implements Synthesizer.
func (f SynthesizerFunc) Synthesize(ctx context.Context, tc *core.TurnContext, input string, results []ChildResult) (string, error) {
	return f(ctx, tc, input, results)
}

// DigestSynthesizer is the default: a deterministic formatter that lists
// each child's contribution and names the sources that were unavailable.
// No model call is involved, so it cannot itself fail.
type DigestSynthesizer struct{}

// Synthesize implements Synthesizer.
func (DigestSynthesizer) Synthesize(_ context.Context, _ *core.TurnContext, input string, results []ChildResult) (string, error) {
	return FormatDigest(input, results), nil
}

// LeafSynthesizer delegates synthesis to a designated agent: the digest of
// all child results becomes that agent's input, and its reply becomes the
// parallel node's output. Use it when merging needs model judgement rather
// than plain formatting.
type LeafSynthesizer struct {
	agent core.Agent
}

// NewLeafSynthesizer creates a synthesizer backed by the given agent.
func NewLeafSynthesizer(agent core.Agent) *LeafSynthesizer {
	return &LeafSynthesizer{agent: agent}
}

// Synthesize implements Synthesizer.
func (s *LeafSynthesizer) Synthesize(ctx context.Context, tc *core.TurnContext, input string, results []ChildResult) (string, error) {
	childTC := tc.ForChild(Info(s.agent))

	return s.agent.Execute(ctx, childTC, FormatDigest(input, results))
}

// FormatDigest renders the canonical results digest: the original request
// followed by one line per source, with failed sources marked unavailable.
func FormatDigest(input string, results []ChildResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Request: %s\n\nFindings:\n", input)

	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(&sb, "- %s: unavailable (%s)\n", res.Name, failureReason(res.Err))
			continue
		}

		fmt.Fprintf(&sb, "- %s: %s\n", res.Name, res.Output)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || tool.ErrorKind(err) == tool.CodeTimeout {
		return "timed out"
	}

	return "failed"
}

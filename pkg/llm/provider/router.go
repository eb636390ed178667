package provider

import (
	"github.com/nossamaternidade/nathia/pkg/classify"
	"github.com/nossamaternidade/nathia/pkg/llm"
)

// longContextTokens is the threshold above which the long-context provider
// is preferred.
const longContextTokens = 100_000

// Decision is the routing outcome for one send. Deterministic given the
// same context and capability probe; no side effects.
type Decision struct {
	Provider  string
	Grounding bool

	// Streaming is enabled only when none of crisis/grounding/image/
	// on-device apply: crisis answers must be fully assembled before
	// post-processing, and the grounding/vision/on-device paths do not
	// expose a token-streaming wire format.
	Streaming bool
}

// Router chooses a backend provider and transport mode from conversation
// context flags.
type Router struct {
	capability Capability
}

// NewRouter creates a Router. A nil capability disables the on-device
// branch.
func NewRouter(capability Capability) *Router {
	if capability == nil {
		capability = FixedCapability(false)
	}
	return &Router{capability: capability}
}

// Route decides provider and transport. First match wins; safety takes
// precedence over feature richness, so contradictory inputs (crisis and
// grounding both set) resolve to the crisis branch.
func (r *Router) Route(messages []llm.Message, ctx llm.Context) Decision {
	crisis := ctx.IsCrisis
	if !crisis {
		if last, ok := llm.LastUserMessage(messages); ok {
			crisis = classify.DetectCrisis(last.Content)
		}
	}

	switch {
	case crisis:
		return Decision{Provider: Claude}
	case ctx.ImageData != nil:
		return Decision{Provider: Claude}
	case ctx.RequiresGrounding:
		return Decision{Provider: Gemini, Grounding: true}
	case ctx.EstimatedTokens > longContextTokens:
		return Decision{Provider: Gemini, Streaming: true}
	case r.capability.OnDeviceAvailable():
		return Decision{Provider: OnDevice}
	case ctx.PreferredProvider != "" && Valid(ctx.PreferredProvider) && ctx.PreferredProvider != OnDevice:
		return Decision{Provider: ctx.PreferredProvider, Streaming: true}
	default:
		return Decision{Provider: Gemini, Streaming: true}
	}
}

// Package provider holds the closed set of backend AI providers and the
// routing decision that picks one per send.
package provider

import "fmt"

// Supported provider type constants
const (
	// Claude is the safety-oriented, vision-capable provider.
	Claude = "claude"

	// Gemini is the default provider: cheapest, fastest, long-context,
	// and grounding-capable.
	Gemini = "gemini"

	// OpenAI is the backend's fallback provider.
	OpenAI = "openai"

	// OnDevice is local generation; treated as atomic, never chunked.
	OnDevice = "ondevice"
)

// SupportedProviders returns the list of all supported provider names.
func SupportedProviders() []string {
	return []string{Claude, Gemini, OpenAI, OnDevice}
}

// Valid reports whether name is a known provider.
func Valid(name string) bool {
	switch name {
	case Claude, Gemini, OpenAI, OnDevice:
		return true
	default:
		return false
	}
}

// Validate returns an error naming the supported set when name is unknown.
func Validate(name string) error {
	if !Valid(name) {
		return fmt.Errorf("unknown provider: %q (supported: %v)", name, SupportedProviders())
	}
	return nil
}

// Package generation defines the capability interface for the upstream
// text-generation endpoint, the prompt construction rules shared by every
// provider, and the fallback texts substituted when the upstream fails.
// Provider implementations live in internal/platform/openai and
// internal/platform/gemini.
package generation

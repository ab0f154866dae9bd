// Package constant defines wire-format identifiers used throughout the proxy.
// These constants name the request/response schemas the translator layer
// converts between, ensuring consistent naming across the application.
package constant

const (
	// Gemini represents the Google Generative Language API wire format.
	Gemini = "gemini"

	// OpenAI represents the OpenAI Chat Completions wire format.
	OpenAI = "openai"
)

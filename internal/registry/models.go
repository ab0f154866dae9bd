// Package registry holds the static table of Gemini models exposed through
// the OpenAI-compatible model listing endpoint.
package registry

// Model describes one entry of the /v1/models listing.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// modelIDs lists the upstream models this proxy serves. The proxy does not
// validate availability; unknown models are forwarded as-is and the upstream
// error is relayed.
var modelIDs = []string{
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemma-3-27b-it",
	"gemma-3-12b-it",
}

// GeminiModels returns the model listing in OpenAI schema.
func GeminiModels() []Model {
	models := make([]Model, 0, len(modelIDs))
	for _, id := range modelIDs {
		models = append(models, Model{
			ID:      id,
			Object:  "model",
			Created: 1735689600,
			OwnedBy: "google",
		})
	}
	return models
}

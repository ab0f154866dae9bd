// Package interfaces defines the core types shared between the translator
// layer, the upstream client, and the API handlers.
package interfaces

import "context"

// TranslateRequestFunc converts a request payload from one schema to another.
type TranslateRequestFunc func(modelName string, rawJSON []byte, stream bool) []byte

// TranslateResponseFunc converts one decoded upstream stream event into zero or
// more fully formed SSE blocks in the target schema. param carries translator
// state across calls within one stream.
type TranslateResponseFunc func(ctx context.Context, modelName string, rawJSON []byte, param *any) []string

// TranslateResponseNonStreamFunc converts a complete upstream response into a
// single serialized response in the target schema.
type TranslateResponseNonStreamFunc func(ctx context.Context, modelName string, rawJSON []byte, param *any) string

// TranslateResponse groups the streaming and non-streaming response
// transforms for one source/target schema pair.
type TranslateResponse struct {
	Stream    TranslateResponseFunc
	NonStream TranslateResponseNonStreamFunc
}

// ErrorMessage carries an HTTP status code alongside the underlying error for
// failures on the upstream path.
type ErrorMessage struct {
	StatusCode int
	Error      error
}

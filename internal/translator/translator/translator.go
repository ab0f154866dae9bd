// Package translator maintains the registry of schema translation functions.
// Translator implementations register themselves from their package init(),
// and the API handlers look them up by source/target format pair.
package translator

import (
	"context"

	"github.com/samvilian/gemini-proxy-panel3/internal/interfaces"
	log "github.com/sirupsen/logrus"
)

var (
	// Requests maps source format -> target format -> request translator.
	Requests map[string]map[string]interfaces.TranslateRequestFunc

	// Responses maps source format -> target format -> response translators.
	Responses map[string]map[string]interfaces.TranslateResponse
)

func init() {
	Requests = make(map[string]map[string]interfaces.TranslateRequestFunc)
	Responses = make(map[string]map[string]interfaces.TranslateResponse)
}

// Register records the request and response translators for a format pair.
func Register(from, to string, request interfaces.TranslateRequestFunc, response interfaces.TranslateResponse) {
	log.Debugf("Registering translator from %s to %s", from, to)
	if _, ok := Requests[from]; !ok {
		Requests[from] = make(map[string]interfaces.TranslateRequestFunc)
	}
	Requests[from][to] = request

	if _, ok := Responses[from]; !ok {
		Responses[from] = make(map[string]interfaces.TranslateResponse)
	}
	Responses[from][to] = response
}

// Request translates a request payload, or returns it unchanged when no
// translator is registered for the pair.
func Request(from, to, modelName string, rawJSON []byte, stream bool) []byte {
	if fn, ok := Requests[from][to]; ok {
		return fn(modelName, rawJSON, stream)
	}
	return rawJSON
}

// NeedConvert reports whether a response translator exists for the pair.
func NeedConvert(from, to string) bool {
	_, ok := Responses[from][to]
	return ok
}

// Response translates one streaming event into zero or more output blocks.
func Response(from, to string, ctx context.Context, modelName string, rawJSON []byte, param *any) []string {
	if fn, ok := Responses[from][to]; ok {
		return fn.Stream(ctx, modelName, rawJSON, param)
	}
	return []string{string(rawJSON)}
}

// ResponseNonStream translates a complete response payload.
func ResponseNonStream(from, to string, ctx context.Context, modelName string, rawJSON []byte, param *any) string {
	if fn, ok := Responses[from][to]; ok {
		return fn.NonStream(ctx, modelName, rawJSON, param)
	}
	return string(rawJSON)
}

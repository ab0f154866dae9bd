// Package handlers provides core API handler functionality shared across all
// endpoint handlers: the common dependency bundle, error response shapes, and
// configuration hot-swapping.
package handlers

import (
	"sync"

	"github.com/samvilian/gemini-proxy-panel3/internal/client"
	"github.com/samvilian/gemini-proxy-panel3/internal/config"
	"github.com/samvilian/gemini-proxy-panel3/internal/logging"
	"github.com/samvilian/gemini-proxy-panel3/internal/store"
)

// ErrorResponse represents a standard error response format for the API.
type ErrorResponse struct {
	// Error contains detailed information about the error that occurred.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail provides specific information about an error that occurred.
type ErrorDetail struct {
	// Message is a human-readable message providing more details about the error.
	Message string `json:"message"`

	// Type is the category of error that occurred (e.g., "invalid_request_error").
	Type string `json:"type"`

	// Code is a short code identifying the error, if applicable.
	Code string `json:"code,omitempty"`
}

// BaseAPIHandler bundles the dependencies every endpoint handler needs.
// The configuration and request logger are replaced together on hot reload,
// so both live behind the same mutex.
type BaseAPIHandler struct {
	// Client is the upstream Gemini client.
	Client *client.GeminiClient

	// Store is the durable key-value store backing worker key records.
	Store *store.Store

	// mu guards cfg and reqLogger during hot reloads.
	mu        sync.RWMutex
	cfg       *config.Config
	reqLogger *logging.RequestLogger
}

// NewBaseAPIHandler creates the shared handler dependency bundle.
func NewBaseAPIHandler(cfg *config.Config, geminiClient *client.GeminiClient, kv *store.Store) *BaseAPIHandler {
	return &BaseAPIHandler{
		Client:    geminiClient,
		Store:     kv,
		cfg:       cfg,
		reqLogger: logging.NewRequestLogger(cfg.RequestLog, "request-logs"),
	}
}

// Config returns the current configuration snapshot.
func (h *BaseAPIHandler) Config() *config.Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// RequestLogger returns the current request logger.
func (h *BaseAPIHandler) RequestLogger() *logging.RequestLogger {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.reqLogger
}

// UpdateConfig swaps in a reloaded configuration and propagates it to the
// upstream client and request logger.
func (h *BaseAPIHandler) UpdateConfig(cfg *config.Config) {
	h.mu.Lock()
	h.cfg = cfg
	h.reqLogger = logging.NewRequestLogger(cfg.RequestLog, "request-logs")
	h.mu.Unlock()
	h.Client.UpdateConfig(cfg)
}

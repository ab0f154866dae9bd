// Package openai provides HTTP handlers for the OpenAI-compatible API
// surface: model listing and chat completions. Requests are translated to
// the Gemini wire format, forwarded upstream, and the responses translated
// back, for both streaming and non-streaming modes.
package openai

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samvilian/gemini-proxy-panel3/internal/api/handlers"
	"github.com/samvilian/gemini-proxy-panel3/internal/constant"
	"github.com/samvilian/gemini-proxy-panel3/internal/interfaces"
	"github.com/samvilian/gemini-proxy-panel3/internal/registry"
	"github.com/samvilian/gemini-proxy-panel3/internal/translator/translator"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	_ "github.com/samvilian/gemini-proxy-panel3/internal/translator/gemini/openai/chat-completions"
)

// OpenAIAPIHandler contains the handlers for OpenAI API endpoints.
type OpenAIAPIHandler struct {
	*handlers.BaseAPIHandler
}

// NewOpenAIAPIHandler creates a new OpenAI API handlers instance.
func NewOpenAIAPIHandler(apiHandlers *handlers.BaseAPIHandler) *OpenAIAPIHandler {
	return &OpenAIAPIHandler{
		BaseAPIHandler: apiHandlers,
	}
}

// HandlerType returns the identifier for this handler implementation.
func (h *OpenAIAPIHandler) HandlerType() string {
	return constant.OpenAI
}

// OpenAIModels handles the /v1/models endpoint. It returns the static Gemini
// model table in OpenAI-compatible format.
func (h *OpenAIAPIHandler) OpenAIModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   registry.GeminiModels(),
	})
}

// ChatCompletions handles the /v1/chat/completions endpoint. It translates
// the inbound request, forwards it upstream, and relays the translated
// response in the mode the caller asked for.
func (h *OpenAIAPIHandler) ChatCompletions(c *gin.Context) {
	rawJSON, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Message: "failed to read request body", Type: "invalid_request_error"},
		})
		return
	}
	if !gjson.ValidBytes(rawJSON) {
		c.JSON(http.StatusBadRequest, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Message: "request body is not valid JSON", Type: "invalid_request_error"},
		})
		return
	}

	modelName := gjson.GetBytes(rawJSON, "model").String()
	if modelName == "" {
		c.JSON(http.StatusBadRequest, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Message: "model is required", Type: "invalid_request_error"},
		})
		return
	}
	stream := gjson.GetBytes(rawJSON, "stream").Bool()

	// The safety toggle rides along inside the request so the translator can
	// apply the system-message downgrade without a second parameter.
	cfg := h.Config()
	rawJSON, _ = sjson.SetBytes(rawJSON, "is_safety_enabled", cfg.EnableSafety)

	upstreamJSON := translator.Request(constant.OpenAI, constant.Gemini, modelName, rawJSON, stream)

	if stream {
		h.handleStreamingResponse(c, modelName, rawJSON, upstreamJSON)
		return
	}
	h.handleNonStreamingResponse(c, modelName, rawJSON, upstreamJSON)
}

func (h *OpenAIAPIHandler) handleNonStreamingResponse(c *gin.Context, modelName string, inboundJSON, upstreamJSON []byte) {
	resp, errMsg := h.Client.SendRawMessage(c.Request.Context(), modelName, upstreamJSON)
	if errMsg != nil {
		log.Errorf("upstream request failed: %v", errMsg.Error)
		c.JSON(errMsg.StatusCode, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Message: errMsg.Error.Error(), Type: "upstream_error"},
		})
		return
	}

	var param any
	out := translator.ResponseNonStream(constant.OpenAI, constant.Gemini, c.Request.Context(), modelName, resp, &param)

	h.RequestLogger().LogRequest(c.Request.URL.Path, inboundJSON, upstreamJSON, resp, []byte(out), http.StatusOK)

	c.Data(http.StatusOK, "application/json", []byte(out))
}

func (h *OpenAIAPIHandler) handleStreamingResponse(c *gin.Context, modelName string, inboundJSON, upstreamJSON []byte) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Message: "streaming unsupported by connection", Type: "server_error"},
		})
		return
	}

	streamLog := h.RequestLogger().LogStreamingRequest(c.Request.URL.Path, inboundJSON, upstreamJSON)
	defer streamLog.Close()

	ctx := c.Request.Context()
	dataChan, errChan := h.Client.SendRawMessageStream(ctx, modelName, upstreamJSON)

	var param any
	for {
		select {
		case <-ctx.Done():
			return
		case errMsg, okErr := <-errChan:
			if !okErr {
				errChan = nil
				continue
			}
			if errMsg == nil {
				continue
			}
			log.Errorf("upstream stream failed: %v", errMsg.Error)
			writeSSE(c, errorSSEBlock(errMsg))
			flusher.Flush()
			return
		case chunk, okData := <-dataChan:
			if !okData {
				writeSSE(c, "data: [DONE]\n\n")
				flusher.Flush()
				return
			}
			streamLog.WriteChunk(chunk)
			for _, block := range translator.Response(constant.OpenAI, constant.Gemini, ctx, modelName, chunk, &param) {
				writeSSE(c, block)
			}
			flusher.Flush()
		}
	}
}

// writeSSE writes one pre-formatted SSE block verbatim. Blocks from the
// translator already carry their event lines and terminating blank line.
func writeSSE(c *gin.Context, block string) {
	_, _ = c.Writer.WriteString(block)
}

// errorSSEBlock formats an upstream failure as an SSE error event, matching
// the block layout the translator emits for data and thought events.
func errorSSEBlock(errMsg *interfaces.ErrorMessage) string {
	payload := `{"error":{"type":"upstream_error"}}`
	payload, _ = sjson.Set(payload, "error.message", errMsg.Error.Error())
	payload, _ = sjson.Set(payload, "error.code", errMsg.StatusCode)
	return "event: error\ndata: " + payload + "\n\n"
}

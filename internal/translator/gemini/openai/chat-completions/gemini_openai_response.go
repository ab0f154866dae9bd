package chat_completions

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const chunkTemplate = `{"id":"","object":"chat.completion.chunk","created":0,"model":"","choices":[{"index":0,"delta":{},"logprobs":null,"finish_reason":null}]}`

const responseTemplate = `{"id":"","object":"chat.completion","created":0,"model":"","choices":[{"index":0,"message":{"role":"assistant","content":null},"logprobs":null,"finish_reason":null}],"usage":{"prompt_tokens":0,"completion_tokens":0,"total_tokens":0}}`

const safetyPlaceholderContent = "[Content blocked due to safety settings]"

var chatcmplRunes = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

func chatCompletionID() string {
	suffix := make([]rune, 6)
	for i := range suffix {
		suffix[i] = chatcmplRunes[rand.Intn(len(chatcmplRunes))]
	}
	return fmt.Sprintf("chatcmpl-%d-%s", time.Now().Unix(), string(suffix))
}

// mapFinishReason translates a Gemini finish reason into the OpenAI value.
// The explicit table has absolute priority; the tool_calls branch only
// applies to reasons outside it. Placeholder reasons map to nil, anything
// else recognized passes through unchanged.
func mapFinishReason(reason string, hasToolCalls bool) *string {
	s := func(v string) *string { return &v }
	switch reason {
	case "STOP":
		return s("stop")
	case "MAX_TOKENS":
		return s("length")
	case "SAFETY", "RECITATION":
		return s("content_filter")
	}
	if reason == "TOOL_CALLS" || hasToolCalls {
		return s("tool_calls")
	}
	switch reason {
	case "", "FINISH_REASON_UNSPECIFIED", "OTHER":
		return nil
	}
	return s(reason)
}

type functionCallPart struct {
	index int
	name  string
	args  string
}

type thoughtPart struct {
	isToolCode bool
	content    string
}

// splitCandidateParts walks a candidate's parts, separating thought parts
// from content. Text parts are concatenated in order, functionCall parts are
// collected with their part index for id generation.
func splitCandidateParts(candidate gjson.Result) (text string, calls []functionCallPart, thoughts []thoughtPart) {
	parts := candidate.Get("content.parts")
	if !parts.IsArray() {
		return
	}
	for i, part := range parts.Array() {
		if part.Get("thought").Bool() {
			if t := part.Get("text"); t.Exists() && t.String() != "" {
				thoughts = append(thoughts, thoughtPart{isToolCode: true, content: t.String()})
			} else {
				thoughts = append(thoughts, thoughtPart{})
			}
			continue
		}
		if t := part.Get("text"); t.Exists() {
			text += t.String()
			continue
		}
		if fc := part.Get("functionCall"); fc.Exists() {
			args := fc.Get("args").Raw
			if args == "" {
				args = "{}"
			}
			calls = append(calls, functionCallPart{index: i, name: fc.Get("name").String(), args: args})
		}
	}
	return
}

func thoughtEvent(t thoughtPart) string {
	payload := []byte(`{}`)
	if t.isToolCode {
		payload, _ = sjson.SetBytes(payload, "type", "tool_code")
		payload, _ = sjson.SetBytes(payload, "content", t.content)
	} else {
		payload, _ = sjson.SetBytes(payload, "type", "placeholder")
	}
	return fmt.Sprintf("event: thought_process\ndata: %s\n\n", payload)
}

// setToolCallDeltas writes tool call entries at the given JSON path, one per
// functionCall part, each with a freshly generated correlation id.
func setToolCallDeltas(out []byte, path string, calls []functionCallPart) []byte {
	now := time.Now().UnixMilli()
	for i, call := range calls {
		prefix := fmt.Sprintf("%s.%d", path, i)
		out, _ = sjson.SetBytes(out, prefix+".index", i)
		out, _ = sjson.SetBytes(out, prefix+".id", fmt.Sprintf("call_%s_%d_%d", call.name, now, call.index))
		out, _ = sjson.SetBytes(out, prefix+".type", "function")
		out, _ = sjson.SetBytes(out, prefix+".function.name", call.name)
		out, _ = sjson.SetBytes(out, prefix+".function.arguments", call.args)
	}
	return out
}

func errorChunk(modelName, message string) string {
	out := []byte(chunkTemplate)
	out, _ = sjson.SetBytes(out, "id", chatCompletionID())
	out, _ = sjson.SetBytes(out, "created", time.Now().Unix())
	out, _ = sjson.SetBytes(out, "model", modelName)
	out, _ = sjson.SetBytes(out, "choices.0.delta.content", fmt.Sprintf("[Error: %s]", message))
	out, _ = sjson.SetBytes(out, "choices.0.finish_reason", "error")
	return fmt.Sprintf("data: %s\n\n", out)
}

// ConvertGeminiResponseToOpenAI converts one decoded Gemini stream event into
// zero or more SSE text blocks in the OpenAI chat.completion.chunk schema.
// Thought parts become independent thought_process events emitted before the
// standard chunk. The function never panics past this boundary: a malformed
// event yields a single well-formed error chunk instead.
func ConvertGeminiResponseToOpenAI(_ context.Context, modelName string, rawJSON []byte, _ *any) (blocks []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("stream chunk translation panic: %v", r)
			blocks = []string{errorChunk(modelName, fmt.Sprintf("%v", r))}
		}
	}()

	if !gjson.ValidBytes(rawJSON) {
		log.Error("malformed Gemini stream event")
		return []string{errorChunk(modelName, "malformed upstream event")}
	}

	root := gjson.ParseBytes(rawJSON)
	candidates := root.Get("candidates")
	if !candidates.IsArray() || len(candidates.Array()) == 0 {
		if !root.Get("usageMetadata").Exists() {
			log.Warn("Gemini stream event carries no candidates")
		}
		return nil
	}

	candidate := candidates.Array()[0]
	text, calls, thoughts := splitCandidateParts(candidate)

	for _, t := range thoughts {
		blocks = append(blocks, thoughtEvent(t))
	}

	finishReason := mapFinishReason(candidate.Get("finishReason").String(), len(calls) > 0)

	delta := []byte(`{}`)
	hasDelta := false
	if candidate.Get("content.role").Exists() && (text != "" || len(calls) > 0) {
		delta, _ = sjson.SetBytes(delta, "role", "assistant")
	}
	if len(calls) > 0 {
		delta = setToolCallDeltas(delta, "tool_calls", calls)
		if text != "" {
			delta, _ = sjson.SetBytes(delta, "content", text)
		} else {
			delta, _ = sjson.SetRawBytes(delta, "content", []byte("null"))
		}
		hasDelta = true
	} else if text != "" {
		delta, _ = sjson.SetBytes(delta, "content", text)
		hasDelta = true
	}

	if !hasDelta && finishReason == nil {
		return blocks
	}

	out := []byte(chunkTemplate)
	out, _ = sjson.SetBytes(out, "id", chatCompletionID())
	out, _ = sjson.SetBytes(out, "created", time.Now().Unix())
	out, _ = sjson.SetBytes(out, "model", modelName)
	if idx := candidate.Get("index"); idx.Exists() {
		out, _ = sjson.SetBytes(out, "choices.0.index", idx.Int())
	}
	out, _ = sjson.SetRawBytes(out, "choices.0.delta", delta)
	if finishReason != nil {
		out, _ = sjson.SetBytes(out, "choices.0.finish_reason", *finishReason)
	}

	blocks = append(blocks, fmt.Sprintf("data: %s\n\n", out))
	return blocks
}

func errorResponse(modelName, message, finishReason string) string {
	out := []byte(responseTemplate)
	out, _ = sjson.SetBytes(out, "id", chatCompletionID())
	out, _ = sjson.SetBytes(out, "created", time.Now().Unix())
	out, _ = sjson.SetBytes(out, "model", modelName)
	out, _ = sjson.SetBytes(out, "choices.0.message.content", message)
	out, _ = sjson.SetBytes(out, "choices.0.finish_reason", finishReason)
	return string(out)
}

// ConvertGeminiResponseToOpenAINonStream converts one complete Gemini
// response into a serialized OpenAI chat.completion object. Thought parts
// surface through the x_gemini_thought_process extension field. Blocked or
// candidate-less responses produce a structurally valid error response
// rather than a protocol violation.
func ConvertGeminiResponseToOpenAINonStream(_ context.Context, modelName string, rawJSON []byte, _ *any) (response string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("response translation panic: %v", r)
			response = errorResponse(modelName, fmt.Sprintf("[Error: %v]", r), "error")
		}
	}()

	if !gjson.ValidBytes(rawJSON) {
		log.Error("malformed Gemini response")
		return errorResponse(modelName, "[Error: malformed upstream response]", "error")
	}

	root := gjson.ParseBytes(rawJSON)
	candidates := root.Get("candidates")
	if !candidates.IsArray() || len(candidates.Array()) == 0 {
		if blockReason := root.Get("promptFeedback.blockReason"); blockReason.Exists() {
			return errorResponse(modelName, fmt.Sprintf("Request blocked by Gemini: %s.", blockReason.String()), "content_filter")
		}
		return errorResponse(modelName, "[Error: no candidates returned by Gemini]", "error")
	}

	candidate := candidates.Array()[0]
	text, calls, thoughts := splitCandidateParts(candidate)

	rawReason := candidate.Get("finishReason").String()
	finishReason := mapFinishReason(rawReason, len(calls) > 0)
	if rawReason == "SAFETY" && text == "" && len(calls) == 0 {
		text = safetyPlaceholderContent
	}

	out := []byte(responseTemplate)
	out, _ = sjson.SetBytes(out, "id", chatCompletionID())
	out, _ = sjson.SetBytes(out, "created", time.Now().Unix())
	out, _ = sjson.SetBytes(out, "model", modelName)
	if idx := candidate.Get("index"); idx.Exists() {
		out, _ = sjson.SetBytes(out, "choices.0.index", idx.Int())
	}

	if len(calls) > 0 {
		out = setToolCallDeltas(out, "choices.0.message.tool_calls", calls)
	}
	if text != "" {
		out, _ = sjson.SetBytes(out, "choices.0.message.content", text)
	}
	if finishReason != nil {
		out, _ = sjson.SetBytes(out, "choices.0.finish_reason", *finishReason)
	}

	if len(thoughts) > 0 {
		thoughtList := []byte(`[]`)
		for _, t := range thoughts {
			entry := []byte(`{}`)
			if t.isToolCode {
				entry, _ = sjson.SetBytes(entry, "type", "tool_code")
				entry, _ = sjson.SetBytes(entry, "content", t.content)
			} else {
				entry, _ = sjson.SetBytes(entry, "type", "placeholder")
			}
			thoughtList, _ = sjson.SetRawBytes(thoughtList, "-1", entry)
		}
		out, _ = sjson.SetRawBytes(out, "x_gemini_thought_process", thoughtList)
	}

	usage := root.Get("usageMetadata")
	out, _ = sjson.SetBytes(out, "usage.prompt_tokens", usage.Get("promptTokenCount").Int())
	out, _ = sjson.SetBytes(out, "usage.completion_tokens", usage.Get("candidatesTokenCount").Int())
	out, _ = sjson.SetBytes(out, "usage.total_tokens", usage.Get("totalTokenCount").Int())

	return string(out)
}

// Package chat_completions provides request translation functionality for
// OpenAI to Gemini API compatibility. It converts OpenAI Chat Completions
// requests into Gemini compatible JSON using gjson/sjson only.
package chat_completions

import (
	"regexp"
	"strings"

	"github.com/samvilian/gemini-proxy-panel3/internal/translator/gemini/common"
	"github.com/samvilian/gemini-proxy-panel3/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// toolCallIDPattern matches the synthetic tool call ids this proxy generates,
// "call_<name>_<timestamp>_<index>". The greedy name group keeps underscores
// inside function names intact.
var toolCallIDPattern = regexp.MustCompile(`^call_(.+)_\d+_\d+$`)

// ConvertOpenAIRequestToGemini converts an OpenAI Chat Completions request
// (raw JSON) into a complete Gemini request JSON. All JSON construction uses
// sjson and lookups use gjson.
//
// Messages are processed in input order. Bad input never fails the whole
// request: unsupported roles, duplicate tool results, unparseable tool
// arguments and non-inline image URLs are skipped and logged.
func ConvertOpenAIRequestToGemini(modelName string, inputRawJSON []byte, _ bool) []byte {
	rawJSON := inputRawJSON
	out := []byte(`{"contents":[]}`)

	safetyEnabled := true
	if v := gjson.GetBytes(rawJSON, "is_safety_enabled"); v.Exists() {
		safetyEnabled = v.Bool()
	}
	downgradeSystem := !safetyEnabled || strings.HasPrefix(modelName, "gemma")

	out = setGenerationConfig(out, rawJSON)

	messages := gjson.GetBytes(rawJSON, "messages")
	if messages.IsArray() {
		arr := messages.Array()

		// First pass: map assistant tool call ids to function names so tool
		// results can be correlated without re-parsing formatted ids.
		tcID2Name := map[string]string{}
		for i := 0; i < len(arr); i++ {
			m := arr[i]
			if m.Get("role").String() != "assistant" {
				continue
			}
			tcs := m.Get("tool_calls")
			if !tcs.IsArray() {
				continue
			}
			for _, tc := range tcs.Array() {
				id := tc.Get("id").String()
				name := tc.Get("function.name").String()
				if id != "" && name != "" {
					tcID2Name[id] = name
				}
			}
		}

		consumedToolCallIDs := map[string]bool{}
		systemPartIndex := 0
		loggedSystemDowngrade := false

		for i := 0; i < len(arr); i++ {
			m := arr[i]
			role := m.Get("role").String()
			content := m.Get("content")

			switch role {
			case "user":
				node := buildContentNode("user", content)
				out = appendContentNode(out, node, content)
			case "assistant":
				node := buildContentNode("model", content)
				node = appendToolCallParts(node, m.Get("tool_calls"))
				out = appendContentNode(out, node, content)
			case "system":
				if downgradeSystem {
					if !loggedSystemDowngrade {
						log.Infof("safety disabled or gemma model requested, converting system message to user message")
						loggedSystemDowngrade = true
					}
					node := buildContentNode("user", content)
					out = appendContentNode(out, node, content)
					continue
				}
				if text := extractSystemText(content); text != "" {
					out, _ = sjson.SetBytes(out, "systemInstruction.role", "user")
					out, _ = sjson.SetBytes(out, "systemInstruction.parts."+itoa(systemPartIndex)+".text", text)
					systemPartIndex++
				}
			case "tool":
				toolCallID := m.Get("tool_call_id").String()
				if toolCallID == "" {
					log.Error("tool message missing tool_call_id, skipping")
					continue
				}
				if consumedToolCallIDs[toolCallID] {
					log.Warnf("duplicate tool_call_id %s, skipping repeated tool result", toolCallID)
					continue
				}
				consumedToolCallIDs[toolCallID] = true

				name := recoverFunctionName(toolCallID, m, tcID2Name)
				node := []byte(`{"role":"user","parts":[]}`)
				node, _ = sjson.SetBytes(node, "parts.0.functionResponse.name", name)
				node, _ = sjson.SetRawBytes(node, "parts.0.functionResponse.response", toolResponseObject(content))
				out, _ = sjson.SetRawBytes(out, "contents.-1", node)
			default:
				log.Warnf("unsupported message role '%s', skipping", role)
			}
		}
	}

	out = setFunctionDeclarations(out, rawJSON)

	if !safetyEnabled {
		out = common.AttachPermissiveSafetySettings(out, "safetySettings")
	}

	return out
}

// setGenerationConfig forwards the OpenAI sampling parameters Gemini
// understands into generationConfig.
func setGenerationConfig(out, rawJSON []byte) []byte {
	if v := gjson.GetBytes(rawJSON, "temperature"); v.Exists() && v.Type == gjson.Number {
		out, _ = sjson.SetBytes(out, "generationConfig.temperature", v.Num)
	}
	if v := gjson.GetBytes(rawJSON, "top_p"); v.Exists() && v.Type == gjson.Number {
		out, _ = sjson.SetBytes(out, "generationConfig.topP", v.Num)
	}
	if v := gjson.GetBytes(rawJSON, "top_k"); v.Exists() && v.Type == gjson.Number {
		out, _ = sjson.SetBytes(out, "generationConfig.topK", v.Num)
	}
	if v := gjson.GetBytes(rawJSON, "max_tokens"); v.Exists() && v.Type == gjson.Number {
		out, _ = sjson.SetBytes(out, "generationConfig.maxOutputTokens", v.Int())
	}
	if v := gjson.GetBytes(rawJSON, "n"); v.Exists() && v.Type == gjson.Number {
		if val := v.Int(); val > 1 {
			out, _ = sjson.SetBytes(out, "generationConfig.candidateCount", val)
		}
	}
	if v := gjson.GetBytes(rawJSON, "stop"); v.Exists() {
		if v.Type == gjson.String {
			out, _ = sjson.SetBytes(out, "generationConfig.stopSequences", []string{v.String()})
		} else if v.IsArray() {
			var stops []string
			for _, s := range v.Array() {
				stops = append(stops, s.String())
			}
			if len(stops) > 0 {
				out, _ = sjson.SetBytes(out, "generationConfig.stopSequences", stops)
			}
		}
	}
	return out
}

// buildContentNode maps an OpenAI message content (string or typed part
// array) onto a Gemini content node with the given role.
func buildContentNode(role string, content gjson.Result) []byte {
	node := []byte(`{"role":"","parts":[]}`)
	node, _ = sjson.SetBytes(node, "role", role)

	if content.Type == gjson.String {
		if content.String() != "" {
			node, _ = sjson.SetBytes(node, "parts.-1.text", content.String())
		}
		return node
	}
	if !content.IsArray() {
		return node
	}

	p := 0
	for _, item := range content.Array() {
		switch item.Get("type").String() {
		case "text":
			text := item.Get("text").String()
			if text != "" {
				node, _ = sjson.SetBytes(node, "parts."+itoa(p)+".text", text)
				p++
			}
		case "image_url":
			imageURL := item.Get("image_url.url").String()
			mime, data, ok := util.ParseDataURI(imageURL)
			if !ok {
				log.Warnf("image_url is not an inline data URI, skipping (remote fetch unsupported)")
				continue
			}
			node, _ = sjson.SetBytes(node, "parts."+itoa(p)+".inlineData.mimeType", mime)
			node, _ = sjson.SetBytes(node, "parts."+itoa(p)+".inlineData.data", data)
			p++
		default:
			log.Warnf("unsupported content part type '%s', skipping", item.Get("type").String())
		}
	}
	return node
}

// appendToolCallParts adds one functionCall part per assistant tool call.
// A tool call whose arguments are not valid JSON is skipped; the rest of the
// message still proceeds.
func appendToolCallParts(node []byte, toolCalls gjson.Result) []byte {
	if !toolCalls.IsArray() {
		return node
	}
	for _, tc := range toolCalls.Array() {
		name := tc.Get("function.name").String()
		args := tc.Get("function.arguments").String()
		if args == "" {
			args = "{}"
		}
		if !gjson.Valid(args) {
			log.Errorf("tool call '%s' has unparseable arguments, skipping", name)
			continue
		}
		idx := len(gjson.GetBytes(node, "parts").Array())
		node, _ = sjson.SetBytes(node, "parts."+itoa(idx)+".functionCall.name", name)
		node, _ = sjson.SetRawBytes(node, "parts."+itoa(idx)+".functionCall.args", []byte(args))
	}
	return node
}

// appendContentNode appends node to contents when it carries at least one
// part; empty nodes are dropped and logged when the source had content.
func appendContentNode(out, node []byte, content gjson.Result) []byte {
	if len(gjson.GetBytes(node, "parts").Array()) == 0 {
		if content.Exists() && content.Type != gjson.Null {
			log.Warnf("message produced no translatable parts, dropping")
		}
		return out
	}
	out, _ = sjson.SetRawBytes(out, "contents.-1", node)
	return out
}

// extractSystemText pulls the instruction text out of a system message:
// string content directly, or the first text part of an array content.
func extractSystemText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.String()
	}
	if content.IsArray() {
		for _, item := range content.Array() {
			if item.Get("type").String() == "text" {
				return item.Get("text").String()
			}
		}
	}
	return ""
}

// recoverFunctionName resolves the function name for a tool result. The side
// map built from assistant tool_calls is authoritative; parsing the formatted
// id is the fallback, then an explicit name field, then a placeholder.
func recoverFunctionName(toolCallID string, m gjson.Result, tcID2Name map[string]string) string {
	if name, ok := tcID2Name[toolCallID]; ok {
		return name
	}
	if matches := toolCallIDPattern.FindStringSubmatch(toolCallID); matches != nil {
		return matches[1]
	}
	if name := m.Get("name").String(); name != "" {
		return name
	}
	log.Warnf("cannot recover function name from tool_call_id %s, using placeholder", toolCallID)
	return "unknown_tool"
}

// toolResponseObject turns a tool message content into the JSON object Gemini
// expects as functionResponse.response. String content that parses as JSON is
// used as-is, anything else is wrapped, absent content becomes {}.
func toolResponseObject(content gjson.Result) []byte {
	switch {
	case !content.Exists(), content.Type == gjson.Null:
		return []byte(`{}`)
	case content.Type == gjson.String:
		text := content.String()
		if gjson.Valid(text) && (gjson.Parse(text).IsObject() || gjson.Parse(text).IsArray()) {
			if gjson.Parse(text).IsArray() {
				wrapped, _ := sjson.SetRawBytes([]byte(`{}`), "content", []byte(text))
				return wrapped
			}
			return []byte(text)
		}
		wrapped, _ := sjson.SetBytes([]byte(`{}`), "content", text)
		return wrapped
	case content.IsObject():
		return []byte(content.Raw)
	default:
		wrapped, _ := sjson.SetRawBytes([]byte(`{}`), "content", []byte(content.Raw))
		return wrapped
	}
}

// setFunctionDeclarations maps OpenAI function tools onto Gemini
// functionDeclarations with sanitized parameter schemas. tools is omitted
// entirely when no valid function tool remains.
func setFunctionDeclarations(out, rawJSON []byte) []byte {
	tools := gjson.GetBytes(rawJSON, "tools")
	if !tools.IsArray() {
		return out
	}

	declarations := []byte(`[]`)
	count := 0
	for _, t := range tools.Array() {
		if t.Get("type").String() != "function" {
			continue
		}
		fn := t.Get("function")
		if !fn.Exists() || fn.Get("name").String() == "" {
			continue
		}
		decl := []byte(`{}`)
		decl, _ = sjson.SetBytes(decl, "name", fn.Get("name").String())
		if desc := fn.Get("description"); desc.Exists() {
			decl, _ = sjson.SetBytes(decl, "description", desc.String())
		}
		if params := fn.Get("parameters"); params.IsObject() {
			decl, _ = sjson.SetRawBytes(decl, "parameters", util.SanitizeFunctionParameters([]byte(params.Raw)))
		}
		declarations, _ = sjson.SetRawBytes(declarations, "-1", decl)
		count++
	}

	if count == 0 {
		return out
	}
	out, _ = sjson.SetRawBytes(out, "tools.0.functionDeclarations", declarations)
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

package chat_completions

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestConvertRequest_SimpleUserMessage(t *testing.T) {
	input := `{"messages":[{"role":"user","content":"hi"}]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-flash", []byte(input), false)

	contents := gjson.GetBytes(out, "contents")
	if len(contents.Array()) != 1 {
		t.Fatalf("expected 1 content, got %d: %s", len(contents.Array()), out)
	}
	if got := gjson.GetBytes(out, "contents.0.role").String(); got != "user" {
		t.Errorf("role = %q, want user", got)
	}
	if got := gjson.GetBytes(out, "contents.0.parts.0.text").String(); got != "hi" {
		t.Errorf("text = %q, want hi", got)
	}
	if gjson.GetBytes(out, "systemInstruction").Exists() {
		t.Error("systemInstruction should be absent")
	}
	if gjson.GetBytes(out, "tools").Exists() {
		t.Error("tools should be absent")
	}
}

func TestConvertRequest_RoleMapping(t *testing.T) {
	input := `{"messages":[
		{"role":"user","content":"question"},
		{"role":"assistant","content":"answer"},
		{"role":"user","content":"followup"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	contents := gjson.GetBytes(out, "contents").Array()
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	wantRoles := []string{"user", "model", "user"}
	for i, want := range wantRoles {
		if got := contents[i].Get("role").String(); got != want {
			t.Errorf("contents[%d].role = %q, want %q", i, got, want)
		}
	}
}

func TestConvertRequest_SystemMessageWithSafetyEnabled(t *testing.T) {
	input := `{"is_safety_enabled":true,"messages":[
		{"role":"system","content":"be terse"},
		{"role":"user","content":"hi"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	if got := gjson.GetBytes(out, "systemInstruction.parts.0.text").String(); got != "be terse" {
		t.Errorf("systemInstruction text = %q, want 'be terse'", got)
	}
	if len(gjson.GetBytes(out, "contents").Array()) != 1 {
		t.Errorf("system message leaked into contents: %s", out)
	}
}

func TestConvertRequest_SystemMessageDowngradedWhenSafetyDisabled(t *testing.T) {
	input := `{"is_safety_enabled":false,"messages":[
		{"role":"system","content":"be terse"},
		{"role":"user","content":"hi"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	if gjson.GetBytes(out, "systemInstruction").Exists() {
		t.Error("systemInstruction should be absent when safety is disabled")
	}
	contents := gjson.GetBytes(out, "contents").Array()
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if got := contents[0].Get("role").String(); got != "user" {
		t.Errorf("downgraded system role = %q, want user", got)
	}
	if got := contents[0].Get("parts.0.text").String(); got != "be terse" {
		t.Errorf("downgraded system text = %q", got)
	}
	if !gjson.GetBytes(out, "safetySettings").Exists() {
		t.Error("permissive safetySettings should be attached when safety is disabled")
	}
}

func TestConvertRequest_SystemMessageDowngradedForGemma(t *testing.T) {
	input := `{"messages":[
		{"role":"system","content":"be terse"},
		{"role":"user","content":"hi"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemma-3-27b-it", []byte(input), false)

	if gjson.GetBytes(out, "systemInstruction").Exists() {
		t.Error("gemma models must not receive systemInstruction")
	}
	if got := gjson.GetBytes(out, "contents.0.role").String(); got != "user" {
		t.Errorf("downgraded system role = %q, want user", got)
	}
	if gjson.GetBytes(out, "safetySettings").Exists() {
		t.Error("safetySettings should not be attached when safety stays enabled")
	}
}

func TestConvertRequest_DuplicateToolCallID(t *testing.T) {
	input := `{"messages":[
		{"role":"tool","tool_call_id":"call_getWeather_1700000000000_0","content":"{\"temp\":21}"},
		{"role":"tool","tool_call_id":"call_getWeather_1700000000000_0","content":"{\"temp\":22}"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	count := 0
	for _, content := range gjson.GetBytes(out, "contents").Array() {
		for _, part := range content.Get("parts").Array() {
			if part.Get("functionResponse").Exists() {
				count++
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 functionResponse part, got %d: %s", count, out)
	}
	if got := gjson.GetBytes(out, "contents.0.parts.0.functionResponse.response.temp").Int(); got != 21 {
		t.Errorf("kept response should be the first one, got temp=%d", got)
	}
}

func TestConvertRequest_FunctionNameRecoveredFromID(t *testing.T) {
	input := `{"messages":[
		{"role":"tool","tool_call_id":"call_getWeather_1700000000000_0","content":"{}"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	if got := gjson.GetBytes(out, "contents.0.parts.0.functionResponse.name").String(); got != "getWeather" {
		t.Errorf("recovered name = %q, want getWeather", got)
	}
}

func TestConvertRequest_FunctionNameWithUnderscores(t *testing.T) {
	input := `{"messages":[
		{"role":"tool","tool_call_id":"call_get_current_weather_1700000000000_2","content":"{}"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	if got := gjson.GetBytes(out, "contents.0.parts.0.functionResponse.name").String(); got != "get_current_weather" {
		t.Errorf("recovered name = %q, want get_current_weather", got)
	}
}

func TestConvertRequest_FunctionNamePrefersSideMap(t *testing.T) {
	input := `{"messages":[
		{"role":"assistant","content":null,"tool_calls":[
			{"id":"opaque-id-123","type":"function","function":{"name":"lookupOrder","arguments":"{}"}}
		]},
		{"role":"tool","tool_call_id":"opaque-id-123","content":"{\"status\":\"shipped\"}"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	found := false
	for _, content := range gjson.GetBytes(out, "contents").Array() {
		for _, part := range content.Get("parts").Array() {
			if part.Get("functionResponse.name").String() == "lookupOrder" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("function name should come from the assistant tool_calls map: %s", out)
	}
}

func TestConvertRequest_UnknownToolFallback(t *testing.T) {
	input := `{"messages":[
		{"role":"tool","tool_call_id":"not-a-generated-id","content":"{}"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	if got := gjson.GetBytes(out, "contents.0.parts.0.functionResponse.name").String(); got != "unknown_tool" {
		t.Errorf("fallback name = %q, want unknown_tool", got)
	}
}

func TestConvertRequest_ToolMessageMissingID(t *testing.T) {
	input := `{"messages":[
		{"role":"tool","content":"{}"},
		{"role":"user","content":"hi"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	if len(gjson.GetBytes(out, "contents").Array()) != 1 {
		t.Errorf("tool message without tool_call_id must be skipped: %s", out)
	}
}

func TestConvertRequest_ToolContentWrapping(t *testing.T) {
	input := `{"messages":[
		{"role":"tool","tool_call_id":"call_a_1_0","content":"plain text result"},
		{"role":"tool","tool_call_id":"call_b_1_0","content":null}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	if got := gjson.GetBytes(out, "contents.0.parts.0.functionResponse.response.content").String(); got != "plain text result" {
		t.Errorf("non-JSON content should be wrapped, got %s", out)
	}
	resp := gjson.GetBytes(out, "contents.1.parts.0.functionResponse.response")
	if !resp.IsObject() || len(resp.Map()) != 0 {
		t.Errorf("null content should become an empty object, got %s", resp.Raw)
	}
}

func TestConvertRequest_AssistantToolCalls(t *testing.T) {
	input := `{"messages":[
		{"role":"assistant","content":null,"tool_calls":[
			{"id":"call_getWeather_1700000000000_0","type":"function","function":{"name":"getWeather","arguments":"{\"city\":\"Oslo\"}"}},
			{"id":"call_broken_1700000000000_1","type":"function","function":{"name":"broken","arguments":"{not json"}}
		]}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	parts := gjson.GetBytes(out, "contents.0.parts").Array()
	if len(parts) != 1 {
		t.Fatalf("expected 1 functionCall part (invalid arguments skipped), got %d: %s", len(parts), out)
	}
	if got := parts[0].Get("functionCall.name").String(); got != "getWeather" {
		t.Errorf("functionCall name = %q", got)
	}
	if got := parts[0].Get("functionCall.args.city").String(); got != "Oslo" {
		t.Errorf("functionCall args = %s", parts[0].Get("functionCall.args").Raw)
	}
}

func TestConvertRequest_ImageDataURI(t *testing.T) {
	input := `{"messages":[{"role":"user","content":[
		{"type":"text","text":"what is this?"},
		{"type":"image_url","image_url":{"url":"data:image/png;base64,iVBORw0KGgo="}},
		{"type":"image_url","image_url":{"url":"https://example.com/cat.png"}}
	]}]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	parts := gjson.GetBytes(out, "contents.0.parts").Array()
	if len(parts) != 2 {
		t.Fatalf("expected text + inlineData (remote URL skipped), got %d parts: %s", len(parts), out)
	}
	if got := parts[1].Get("inlineData.mimeType").String(); got != "image/png" {
		t.Errorf("mimeType = %q", got)
	}
	if got := parts[1].Get("inlineData.data").String(); got != "iVBORw0KGgo=" {
		t.Errorf("data = %q", got)
	}
}

func TestConvertRequest_UnknownRoleSkipped(t *testing.T) {
	input := `{"messages":[
		{"role":"moderator","content":"hello"},
		{"role":"user","content":"hi"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	if len(gjson.GetBytes(out, "contents").Array()) != 1 {
		t.Errorf("unknown role must be skipped without failing the request: %s", out)
	}
}

func TestConvertRequest_ToolDeclarations(t *testing.T) {
	input := `{"messages":[{"role":"user","content":"weather?"}],"tools":[
		{"type":"function","function":{"name":"getWeather","description":"Get weather",
			"parameters":{"type":"object","additionalProperties":false,"properties":{
				"city":{"type":"string"},
				"opts":{"type":"object","additionalProperties":false}
			}}}},
		{"type":"retrieval"}
	]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	decls := gjson.GetBytes(out, "tools.0.functionDeclarations").Array()
	if len(decls) != 1 {
		t.Fatalf("expected 1 functionDeclaration, got %d: %s", len(decls), out)
	}
	if got := decls[0].Get("name").String(); got != "getWeather" {
		t.Errorf("name = %q", got)
	}
	if strings.Contains(decls[0].Raw, "additionalProperties") {
		t.Errorf("parameters were not sanitized: %s", decls[0].Raw)
	}
}

func TestConvertRequest_ToolsOmittedWhenNoFunctions(t *testing.T) {
	input := `{"messages":[{"role":"user","content":"hi"}],"tools":[{"type":"retrieval"}]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	if gjson.GetBytes(out, "tools").Exists() {
		t.Errorf("tools must be omitted entirely when no function tools remain: %s", out)
	}
}

func TestConvertRequest_GenerationConfigPassthrough(t *testing.T) {
	input := `{"messages":[{"role":"user","content":"hi"}],
		"temperature":0.7,"top_p":0.9,"top_k":40,"max_tokens":1024,"n":2,"stop":["END"]}`

	out := ConvertOpenAIRequestToGemini("gemini-2.5-pro", []byte(input), false)

	gc := gjson.GetBytes(out, "generationConfig")
	if gc.Get("temperature").Float() != 0.7 ||
		gc.Get("topP").Float() != 0.9 ||
		gc.Get("topK").Int() != 40 ||
		gc.Get("maxOutputTokens").Int() != 1024 ||
		gc.Get("candidateCount").Int() != 2 ||
		gc.Get("stopSequences.0").String() != "END" {
		t.Errorf("generationConfig passthrough incomplete: %s", gc.Raw)
	}
}

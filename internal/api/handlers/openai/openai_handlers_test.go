package openai

import (
	"errors"
	"strings"
	"testing"

	"github.com/samvilian/gemini-proxy-panel3/internal/interfaces"
	"github.com/tidwall/gjson"
)

func TestErrorSSEBlockFormat(t *testing.T) {
	block := errorSSEBlock(&interfaces.ErrorMessage{
		StatusCode: 429,
		Error:      errors.New("quota exceeded"),
	})

	if !strings.HasPrefix(block, "event: error\ndata: ") {
		t.Fatalf("block missing event and data lines: %q", block)
	}
	if !strings.HasSuffix(block, "\n\n") {
		t.Fatalf("block missing terminating blank line: %q", block)
	}

	payload := strings.TrimSuffix(strings.TrimPrefix(block, "event: error\ndata: "), "\n\n")
	if !gjson.Valid(payload) {
		t.Fatalf("data line is not valid JSON: %q", payload)
	}
	if got := gjson.Get(payload, "error.message").String(); got != "quota exceeded" {
		t.Errorf("expected error message in payload, got %q", got)
	}
	if got := gjson.Get(payload, "error.type").String(); got != "upstream_error" {
		t.Errorf("expected upstream_error type, got %q", got)
	}
	if got := gjson.Get(payload, "error.code").Int(); got != 429 {
		t.Errorf("expected code 429, got %d", got)
	}
}

// Package common holds helpers shared by the Gemini-bound translators.
package common

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// PermissiveSafetySettings returns the Gemini safety configuration attached to
// upstream requests when safety filtering is disabled: every harm category is
// set to its most permissive threshold.
func PermissiveSafetySettings() []map[string]string {
	return []map[string]string{
		{
			"category":  "HARM_CATEGORY_HARASSMENT",
			"threshold": "BLOCK_NONE",
		},
		{
			"category":  "HARM_CATEGORY_HATE_SPEECH",
			"threshold": "BLOCK_NONE",
		},
		{
			"category":  "HARM_CATEGORY_SEXUALLY_EXPLICIT",
			"threshold": "BLOCK_NONE",
		},
		{
			"category":  "HARM_CATEGORY_DANGEROUS_CONTENT",
			"threshold": "BLOCK_NONE",
		},
		{
			"category":  "HARM_CATEGORY_CIVIC_INTEGRITY",
			"threshold": "BLOCK_NONE",
		},
	}
}

// AttachPermissiveSafetySettings ensures permissive safety settings are present
// at the given JSON path when absent (e.g. "safetySettings").
func AttachPermissiveSafetySettings(rawJSON []byte, path string) []byte {
	if gjson.GetBytes(rawJSON, path).Exists() {
		return rawJSON
	}

	out, err := sjson.SetBytes(rawJSON, path, PermissiveSafetySettings())
	if err != nil {
		return rawJSON
	}

	return out
}

package util

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestSanitizeFunctionParameters_NestedAdditionalProperties(t *testing.T) {
	input := `{
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"location": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"coords": {
						"type": "object",
						"additionalProperties": true
					}
				}
			},
			"items": {
				"type": "array",
				"items": {
					"type": "object",
					"additionalProperties": false
				}
			}
		}
	}`

	result := string(SanitizeFunctionParameters([]byte(input)))

	if strings.Contains(result, "additionalProperties") {
		t.Fatalf("sanitized schema still contains additionalProperties: %s", result)
	}

	expected := `{
		"type": "object",
		"properties": {
			"location": {
				"type": "object",
				"properties": {
					"coords": {
						"type": "object"
					}
				}
			},
			"items": {
				"type": "array",
				"items": {
					"type": "object"
				}
			}
		}
	}`
	compareJSON(t, expected, result)
}

func TestSanitizeFunctionParameters_TopLevelSchemaKey(t *testing.T) {
	input := `{"$schema":"http://json-schema.org/draft-07/schema#","type":"object","properties":{"q":{"type":"string"}}}`

	result := string(SanitizeFunctionParameters([]byte(input)))

	if gjson.Get(result, "$schema").Exists() {
		t.Errorf("top-level $schema was not removed: %s", result)
	}
	if gjson.Get(result, "properties.q.type").String() != "string" {
		t.Errorf("unrelated schema content was altered: %s", result)
	}
}

func TestSanitizeFunctionParameters_RemovesPropertyNamedLikeKeyword(t *testing.T) {
	input := `{"type":"object","properties":{"additionalProperties":{"type":"boolean"},"name":{"type":"string"}}}`

	result := string(SanitizeFunctionParameters([]byte(input)))

	if strings.Contains(result, "additionalProperties") {
		t.Errorf("output must contain zero occurrences of additionalProperties: %s", result)
	}
	if gjson.Get(result, "properties.name.type").String() != "string" {
		t.Errorf("sibling properties must survive: %s", result)
	}
}

func compareJSON(t *testing.T, expectedJSON, actualJSON string) {
	var expMap, actMap map[string]interface{}
	errExp := json.Unmarshal([]byte(expectedJSON), &expMap)
	errAct := json.Unmarshal([]byte(actualJSON), &actMap)

	if errExp != nil || errAct != nil {
		t.Fatalf("JSON Unmarshal error. Exp: %v, Act: %v", errExp, errAct)
	}

	if !reflect.DeepEqual(expMap, actMap) {
		expBytes, _ := json.MarshalIndent(expMap, "", "  ")
		actBytes, _ := json.MarshalIndent(actMap, "", "  ")
		t.Errorf("JSON mismatch:\nExpected:\n%s\n\nActual:\n%s", string(expBytes), string(actBytes))
	}
}

package util

import (
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var gjsonPathKeyReplacer = strings.NewReplacer(".", "\\.", "*", "\\*", "?", "\\?")

// SanitizeFunctionParameters prepares a JSON Schema for the Gemini tool-calling
// API. It strips every key literally named "additionalProperties" at any
// nesting depth, including property definitions carrying that name, and drops
// a top-level "$schema" declaration. Gemini rejects both keywords.
func SanitizeFunctionParameters(raw []byte) []byte {
	jsonStr := string(raw)

	paths := findPaths(jsonStr, "additionalProperties")
	sortByDepth(paths)
	for _, p := range paths {
		jsonStr, _ = sjson.Delete(jsonStr, p)
	}

	if gjson.Get(jsonStr, "$schema").Exists() {
		log.Debug("removing $schema declaration from function parameters")
		jsonStr, _ = sjson.Delete(jsonStr, "$schema")
	}

	return []byte(jsonStr)
}

func findPaths(jsonStr, field string) []string {
	var paths []string
	walkForField(gjson.Parse(jsonStr), "", field, &paths)
	return paths
}

func walkForField(value gjson.Result, path, field string, paths *[]string) {
	if !value.IsObject() && !value.IsArray() {
		return
	}
	i := 0
	value.ForEach(func(key, val gjson.Result) bool {
		var childPath string
		if value.IsArray() {
			childPath = joinPath(path, itoa(i))
			i++
		} else {
			keyStr := key.String()
			childPath = joinPath(path, escapeGJSONPathKey(keyStr))
			if keyStr == field {
				*paths = append(*paths, childPath)
			}
		}
		walkForField(val, childPath, field, paths)
		return true
	})
}

// sortByDepth orders paths so the deepest are deleted first, keeping
// shallower paths valid while their descendants are removed.
func sortByDepth(paths []string) {
	sort.Slice(paths, func(i, j int) bool { return len(paths[i]) > len(paths[j]) })
}

func joinPath(base, suffix string) string {
	if base == "" {
		return suffix
	}
	return base + "." + suffix
}

func escapeGJSONPathKey(key string) string {
	if strings.IndexAny(key, ".*?") == -1 {
		return key
	}
	return gjsonPathKeyReplacer.Replace(key)
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

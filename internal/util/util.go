// Package util provides utility functions for the proxy server.
// It includes helper functions for proxy configuration, API key masking,
// and data URI parsing used across the application.
package util

import "strings"

// InArray reports whether item is present in items.
func InArray(items []string, item string) bool {
	for _, eachItem := range items {
		if eachItem == item {
			return true
		}
	}
	return false
}

// HideAPIKey masks the middle of an API key for log output.
func HideAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// ParseDataURI splits a base64 data URI into its MIME type and payload.
// The expected shape is "data:<mime>;base64,<payload>". It returns ok=false
// for anything else, including non-base64 data URIs and plain URLs.
func ParseDataURI(uri string) (mimeType, data string, ok bool) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", false
	}
	pieces := strings.SplitN(uri[len("data:"):], ";", 2)
	if len(pieces) != 2 || !strings.HasPrefix(pieces[1], "base64,") {
		return "", "", false
	}
	return pieces[0], pieces[1][len("base64,"):], true
}

// Package middleware provides gin middleware for the proxy API surface:
// inbound API key authentication against the configured key list and the
// worker keys persisted in the store.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samvilian/gemini-proxy-panel3/internal/api/handlers"
	"github.com/samvilian/gemini-proxy-panel3/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const workerKeyPrefix = "workerkey:"

// extractAPIKey pulls the client credential from the request, accepting both
// the OpenAI Authorization bearer style and the x-api-key header.
func extractAPIKey(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.GetHeader("x-api-key")
}

// APIKeyAuth authenticates inbound requests. A key is accepted when it is in
// the configured api-keys list or stored as a worker key; worker key usage
// counters are incremented on each authenticated request.
func APIKeyAuth(base *handlers.BaseAPIHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorResponse{
				Error: handlers.ErrorDetail{Message: "missing API key", Type: "authentication_error"},
			})
			return
		}

		if util.InArray(base.Config().APIKeys, key) {
			c.Next()
			return
		}

		record, err := base.Store.Get(workerKeyPrefix + key)
		if err != nil {
			log.Errorf("worker key lookup failed: %v", err)
		}
		if record != nil {
			bumpUsage(base, key, record)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Message: "invalid API key", Type: "authentication_error"},
		})
	}
}

// bumpUsage increments the usage counter on a worker key record. Failures
// only log; authentication already succeeded.
func bumpUsage(base *handlers.BaseAPIHandler, key string, record []byte) {
	count := gjson.GetBytes(record, "usage_count").Int() + 1
	updated, err := sjson.SetBytes(record, "usage_count", count)
	if err != nil {
		log.Warnf("failed to update worker key usage: %v", err)
		return
	}
	if err = base.Store.Put(workerKeyPrefix+key, updated); err != nil {
		log.Warnf("failed to persist worker key usage: %v", err)
	}
}

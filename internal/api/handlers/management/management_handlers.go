// Package management provides the worker key management API: create, list
// and delete worker keys persisted in the key-value store. The endpoints are
// protected by a bcrypt-hashed management key.
package management

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samvilian/gemini-proxy-panel3/internal/api/handlers"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/crypto/bcrypt"
)

const workerKeyPrefix = "workerkey:"

// ManagementAPIHandler contains the handlers for the management endpoints.
type ManagementAPIHandler struct {
	*handlers.BaseAPIHandler
}

// NewManagementAPIHandler creates a new management API handlers instance.
func NewManagementAPIHandler(apiHandlers *handlers.BaseAPIHandler) *ManagementAPIHandler {
	return &ManagementAPIHandler{
		BaseAPIHandler: apiHandlers,
	}
}

// Auth verifies the management key against the configured bcrypt hash.
func (h *ManagementAPIHandler) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("x-management-key")
		if key == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		hash := h.Config().ManagementKey
		if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorResponse{
				Error: handlers.ErrorDetail{Message: "invalid management key", Type: "authentication_error"},
			})
			return
		}
		c.Next()
	}
}

// CreateWorkerKey handles POST /management/keys. It generates a new worker
// key, stores its record, and returns the key once.
func (h *ManagementAPIHandler) CreateWorkerKey(c *gin.Context) {
	rawJSON, _ := c.GetRawData()
	name := gjson.GetBytes(rawJSON, "name").String()

	key := "sk-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	record := []byte(`{}`)
	record, _ = sjson.SetBytes(record, "name", name)
	record, _ = sjson.SetBytes(record, "created_at", time.Now().UTC().Format(time.RFC3339))
	record, _ = sjson.SetBytes(record, "usage_count", 0)

	if err := h.Store.Put(workerKeyPrefix+key, record); err != nil {
		log.Errorf("failed to store worker key: %v", err)
		c.JSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Message: "failed to store worker key", Type: "server_error"},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"key":  key,
		"name": name,
	})
}

// ListWorkerKeys handles GET /management/keys. Keys are reported in masked
// form together with their usage counters.
func (h *ManagementAPIHandler) ListWorkerKeys(c *gin.Context) {
	records, err := h.Store.List(workerKeyPrefix)
	if err != nil {
		log.Errorf("failed to list worker keys: %v", err)
		c.JSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Message: "failed to list worker keys", Type: "server_error"},
		})
		return
	}

	keys := make([]gin.H, 0, len(records))
	for storeKey, record := range records {
		key := strings.TrimPrefix(storeKey, workerKeyPrefix)
		masked := key
		if len(key) > 8 {
			masked = key[:6] + "..." + key[len(key)-4:]
		}
		keys = append(keys, gin.H{
			"key":         masked,
			"name":        gjson.GetBytes(record, "name").String(),
			"created_at":  gjson.GetBytes(record, "created_at").String(),
			"usage_count": gjson.GetBytes(record, "usage_count").Int(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// DeleteWorkerKey handles DELETE /management/keys/:key.
func (h *ManagementAPIHandler) DeleteWorkerKey(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Message: "key is required", Type: "invalid_request_error"},
		})
		return
	}
	if err := h.Store.Delete(workerKeyPrefix + key); err != nil {
		log.Errorf("failed to delete worker key: %v", err)
		c.JSON(http.StatusInternalServerError, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{Message: "failed to delete worker key", Type: "server_error"},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": key})
}

package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDocs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("serves the api document", func(t *testing.T) {
		router := gin.New()
		registerDocs(router, false)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var doc struct {
			Paths map[string]map[string]interface{} `json:"paths"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.Contains(t, doc.Paths["/api/v1/bridge"], "post")
		assert.Contains(t, doc.Paths["/api/v1/bridge"], "get")
		assert.Contains(t, doc.Paths["/api/v1/bridge/{id}"], "get")
		assert.Contains(t, doc.Paths["/api/v1/bridge/{id}/resume"], "post")
		assert.Contains(t, doc.Paths["/api/v1/wallets/{chain}"], "get")
		assert.Contains(t, doc.Paths["/api/v1/wallets/{chain}/balance"], "get")
		assert.Contains(t, doc.Paths["/api/v1/chains"], "get")
	})

	t.Run("hidden in production", func(t *testing.T) {
		router := gin.New()
		registerDocs(router, true)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

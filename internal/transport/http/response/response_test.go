package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	assert.Equal(t, "not found", Error(CodeNotFound, "").Error)
	assert.Equal(t, "patient not found", Error(CodeNotFound, "patient not found").Error)
	assert.Equal(t, "error", Error(418, "").Error)
}

func TestAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Abort(c, CodeConflict, "")

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "conflict"}, body)
}

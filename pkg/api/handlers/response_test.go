package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgb-tools/rgb-multisig-bridge/internal/logger"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge"
)

func TestWriteErrorLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "DEBUG")

	// client-shaped failures stay below ERROR
	rec := httptest.NewRecorder()
	WriteError(rec, bridge.ErrOperationNotFound)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, buf.String(), "[DEBUG]")
	assert.NotContains(t, buf.String(), "[ERROR]")

	buf.Reset()
	rec = httptest.NewRecorder()
	WriteError(rec, bridge.ErrDatabase(fmt.Errorf("disk I/O error")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "disk I/O error")
}

func TestWriteErrorCollapsesNewlines(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "DEBUG")

	rec := httptest.NewRecorder()
	WriteError(rec, bridge.ErrInvalidRequest("line one\nline two"))

	var errBody ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "Invalid request: line one line two", errBody.Error)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rgb-tools/rgb-multisig-bridge/internal/logger"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge"
)

// ErrorResponse is the uniform JSON error body returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
	Name  string `json:"name"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteError writes an error as the uniform JSON error body. Errors that are
// not *bridge.APIError are reported as 500 Unexpected.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *bridge.APIError
	if !errors.As(err, &apiErr) {
		apiErr = bridge.ErrUnexpected(err.Error())
	}

	msg := strings.ReplaceAll(apiErr.Error(), "\n", " ")
	if apiErr.Code >= http.StatusInternalServerError {
		logger.Error("API error", "error", msg, "name", apiErr.Name)
	} else {
		logger.Debug("request rejected", "error", msg, "name", apiErr.Name)
	}

	WriteJSON(w, apiErr.Code, ErrorResponse{
		Error: msg,
		Code:  apiErr.Code,
		Name:  apiErr.Name,
	})
}

// decodeJSONBody decodes a JSON request body, reporting failures as
// InvalidRequest.
func decodeJSONBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return bridge.ErrInvalidRequest(err.Error())
	}
	return nil
}

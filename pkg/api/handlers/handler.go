// Package handlers implements the bridge's HTTP endpoints.
//
// All endpoints sit behind the bearer-token authentication middleware; the
// handlers read the resolved caller from the request context. Responses are
// plain JSON payloads, errors use the uniform {error, code, name} body.
package handlers

import (
	"net/http"

	"github.com/rgb-tools/rgb-multisig-bridge/pkg/api/middleware"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge"
)

// Handler serves all bridge API endpoints.
type Handler struct {
	bridge *bridge.Bridge
}

// New creates the endpoint handler on top of the bridge core.
func New(b *bridge.Bridge) *Handler {
	return &Handler{bridge: b}
}

// cosigner returns the authenticated cosigner for the request. The auth
// middleware guarantees one on every route outside the watch-only allow-list.
func cosigner(r *http.Request) (*middleware.Cosigner, error) {
	c := middleware.CosignerFromContext(r.Context())
	if c == nil {
		return nil, bridge.ErrUnexpected("missing authenticated cosigner")
	}
	return c, nil
}

// Info handles GET /info.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.bridge.Info()
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}

// GetLastProcessedOpIdxResponse is the GET /getlastprocessedopidx payload.
type GetLastProcessedOpIdxResponse struct {
	OperationIdx int32 `json:"operation_idx"`
}

// GetLastProcessedOpIdx handles GET /getlastprocessedopidx.
func (h *Handler) GetLastProcessedOpIdx(w http.ResponseWriter, r *http.Request) {
	c, err := cosigner(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	idx, err := h.bridge.LastProcessedOpIdx(c.Idx)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, GetLastProcessedOpIdxResponse{OperationIdx: idx})
}

// GetOperationByIdxRequest is the POST /getoperationbyidx body.
type GetOperationByIdxRequest struct {
	OperationIdx int32 `json:"operation_idx"`
}

// GetOperationByIdx handles POST /getoperationbyidx. Unknown indices yield a
// JSON null, not an error.
func (h *Handler) GetOperationByIdx(w http.ResponseWriter, r *http.Request) {
	var req GetOperationByIdxRequest
	if err := decodeJSONBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	var viewerIdx *int32
	if c := middleware.CosignerFromContext(r.Context()); c != nil {
		viewerIdx = &c.Idx
	}

	view, err := h.bridge.OperationByIdx(req.OperationIdx, viewerIdx)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// MarkOperationProcessedRequest is the POST /markoperationprocessed body.
type MarkOperationProcessedRequest struct {
	OperationIdx int32 `json:"operation_idx"`
}

// EmptyResponse is the body of endpoints with nothing to report.
type EmptyResponse struct{}

// MarkOperationProcessed handles POST /markoperationprocessed.
func (h *Handler) MarkOperationProcessed(w http.ResponseWriter, r *http.Request) {
	c, err := cosigner(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req MarkOperationProcessedRequest
	if err := decodeJSONBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.bridge.MarkOperationProcessed(c.Idx, req.OperationIdx); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, EmptyResponse{})
}

package handlers

import (
	"net/http"
)

// BumpAddressIndicesRequest is the POST /bumpaddressindices body.
type BumpAddressIndicesRequest struct {
	Count    uint8 `json:"count"`
	Internal bool  `json:"internal"`
}

// BumpAddressIndicesResponse carries the first index of the reserved range.
type BumpAddressIndicesResponse struct {
	First uint32 `json:"first"`
}

// BumpAddressIndices handles POST /bumpaddressindices.
func (h *Handler) BumpAddressIndices(w http.ResponseWriter, r *http.Request) {
	if _, err := cosigner(r); err != nil {
		WriteError(w, err)
		return
	}

	var req BumpAddressIndicesRequest
	if err := decodeJSONBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	first, err := h.bridge.BumpAddressIndices(req.Count, req.Internal)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, BumpAddressIndicesResponse{First: first})
}

// GetCurrentAddressIndicesResponse reports the last reserved index per
// chain, null when nothing was reserved yet.
type GetCurrentAddressIndicesResponse struct {
	Internal *uint32 `json:"internal"`
	External *uint32 `json:"external"`
}

// GetCurrentAddressIndices handles GET /getcurrentaddressindices.
func (h *Handler) GetCurrentAddressIndices(w http.ResponseWriter, r *http.Request) {
	internal, external, err := h.bridge.CurrentAddressIndices()
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, GetCurrentAddressIndicesResponse{
		Internal: internal,
		External: external,
	})
}

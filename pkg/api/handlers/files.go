package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rgb-tools/rgb-multisig-bridge/internal/logger"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/filestore"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/metrics"
)

// GetFileRequest is the POST /getfile body.
type GetFileRequest struct {
	FileID string `json:"file_id"`
}

// GetFile handles POST /getfile, streaming the file bytes back.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	var req GetFileRequest
	if err := decodeJSONBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	f, size, err := h.bridge.Files().Open(req.FileID)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			WriteError(w, bridge.ErrFileNotFound)
			return
		}
		WriteError(w, bridge.ErrIO(err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		// headers are already out, nothing to report to the client
		logger.Warn("file download aborted", "file_id", req.FileID, "error", err)
		return
	}
	metrics.RecordFileServed(size)
}

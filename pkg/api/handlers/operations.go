package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/models"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/metrics"
)

// PostOperationResponse carries the idx assigned to a new operation.
type PostOperationResponse struct {
	OperationIdx int32 `json:"operation_idx"`
}

// PostOperation handles POST /postoperation.
//
// The multipart form carries an operation_type field (single raw byte) plus
// any number of file_media / file_operation_data / file_consignment parts
// and at most one file_psbt part. Files are streamed to the staging area as
// the form is read.
func (h *Handler) PostOperation(w http.ResponseWriter, r *http.Request) {
	c, err := cosigner(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var opType models.OperationType
	opIdx, err := h.bridge.PostOperation(c.Idx, func() (*bridge.OperationSubmission, error) {
		sub, err := h.parseOperationForm(r)
		if sub != nil && sub.Type != nil {
			opType = *sub.Type
		}
		return sub, err
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	metrics.RecordOperationPosted(opType.String())
	WriteJSON(w, http.StatusOK, PostOperationResponse{OperationIdx: opIdx})
}

// RespondToOperation handles POST /respondtooperation.
//
// The multipart form carries a "request" part with the JSON body
// {operation_idx, ack} and, for ACKs, a file_psbt part with the signed PSBT.
func (h *Handler) RespondToOperation(w http.ResponseWriter, r *http.Request) {
	c, err := cosigner(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var acked bool
	view, err := h.bridge.RespondToOperation(c.Idx, func() (*bridge.ResponseSubmission, error) {
		sub, err := h.parseResponseForm(r)
		if sub != nil {
			acked = sub.Ack
		}
		return sub, err
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	metrics.RecordOperationResponse(acked)
	if view.Status != models.OperationStatusPending {
		metrics.RecordOperationFinalized(view.Status.String())
	}
	WriteJSON(w, http.StatusOK, view)
}

// parseOperationForm streams a postoperation multipart form. All staged
// paths are recorded in the returned submission even on error, so the caller
// can always clean up.
func (h *Handler) parseOperationForm(r *http.Request) (*bridge.OperationSubmission, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, bridge.ErrInvalidRequest("failed to parse multipart")
	}

	sub := &bridge.OperationSubmission{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sub, bridge.ErrInvalidRequest("failed to parse multipart")
		}

		name := part.FormName()
		switch {
		case name == "operation_type":
			data, err := io.ReadAll(part)
			if err != nil {
				return sub, bridge.ErrInvalidRequest(fmt.Sprintf("failed to read field: %v", err))
			}
			if len(data) == 0 {
				return sub, bridge.ErrInvalidRequest("failed to read field: operation_type is empty")
			}
			opType, ok := models.ParseOperationType(data[0])
			if !ok {
				return sub, bridge.ErrInvalidOperationType(data[0])
			}
			sub.Type = &opType

		case strings.HasPrefix(name, "file_"):
			fileType, ok := fileTypeForField(name)
			if !ok {
				return sub, bridge.ErrInvalidRequest(fmt.Sprintf("invalid file type '%s'", name))
			}

			tempPath, size, err := h.bridge.Files().Stage(part)
			if err != nil {
				return sub, bridge.ErrIO(err)
			}
			duplicatePsbt := fileType == models.FileTypePsbt && sub.PsbtTempPath != ""
			if fileType == models.FileTypePsbt && !duplicatePsbt {
				sub.PsbtTempPath = tempPath
			} else {
				// duplicate PSBTs land here too, so cleanup removes them
				sub.Files = append(sub.Files, bridge.StagedFile{Type: fileType, TempPath: tempPath})
			}
			if size == 0 {
				return sub, bridge.ErrInvalidRequest(fmt.Sprintf("empty file %s", name))
			}
			if duplicatePsbt {
				return sub, bridge.ErrInvalidRequest("more than one PSBT provided")
			}

		default:
			return sub, bridge.ErrInvalidRequest(fmt.Sprintf("unexpected field '%s'", name))
		}
	}
	return sub, nil
}

// respondRequest is the JSON payload of the "request" multipart field.
type respondRequest struct {
	OperationIdx int32 `json:"operation_idx"`
	Ack          bool  `json:"ack"`
}

// parseResponseForm streams a respondtooperation multipart form.
func (h *Handler) parseResponseForm(r *http.Request) (*bridge.ResponseSubmission, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, bridge.ErrInvalidRequest("failed to parse multipart")
	}

	sub := &bridge.ResponseSubmission{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sub, bridge.ErrInvalidRequest("failed to parse multipart")
		}

		switch name := part.FormName(); name {
		case "request":
			data, err := io.ReadAll(part)
			if err != nil {
				return sub, bridge.ErrInvalidRequest(fmt.Sprintf("failed to read field: %v", err))
			}
			var req respondRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return sub, bridge.ErrInvalidRequest(fmt.Sprintf("failed to parse JSON: %v", err))
			}
			sub.HasRequest = true
			sub.OperationIdx = req.OperationIdx
			sub.Ack = req.Ack

		case "file_psbt":
			if sub.PsbtTempPath != "" {
				return sub, bridge.ErrInvalidRequest("more than one PSBT provided")
			}
			tempPath, size, err := h.bridge.Files().Stage(part)
			if err != nil {
				return sub, bridge.ErrIO(err)
			}
			sub.PsbtTempPath = tempPath
			if size == 0 {
				return sub, bridge.ErrInvalidRequest("empty file")
			}

		default:
			return sub, bridge.ErrInvalidRequest(fmt.Sprintf("unexpected field '%s'", name))
		}
	}
	return sub, nil
}

func fileTypeForField(fieldName string) (models.FileType, bool) {
	switch strings.TrimPrefix(fieldName, "file_") {
	case "psbt":
		return models.FileTypePsbt, true
	case "media":
		return models.FileTypeMedia, true
	case "operation_data":
		return models.FileTypeOperationData, true
	case "consignment":
		return models.FileTypeConsignment, true
	}
	return 0, false
}

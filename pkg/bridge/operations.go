package bridge

import (
	"time"

	"github.com/rgb-tools/rgb-multisig-bridge/internal/logger"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/models"
)

// StagedFile is an uploaded file already streamed to a temp path inside the
// files directory, waiting to be persisted.
type StagedFile struct {
	Type     models.FileType
	TempPath string
}

// OperationSubmission is a parsed postoperation form.
type OperationSubmission struct {
	// Type is nil when the form had no operation_type field.
	Type *models.OperationType
	// Files holds the non-PSBT files in form order.
	Files []StagedFile
	// PsbtTempPath is the staged PSBT, "" if none was uploaded.
	PsbtTempPath string
}

// ResponseSubmission is a parsed respondtooperation form.
type ResponseSubmission struct {
	// HasRequest is false when the form had no request field.
	HasRequest   bool
	OperationIdx int32
	Ack          bool
	// PsbtTempPath is the staged PSBT, "" if none was uploaded.
	PsbtTempPath string
}

// PostOperation creates a new operation on behalf of initiatorIdx.
//
// parseForm is invoked under the write lock, after the posting
// preconditions pass, so a request carrying a large body is rejected before
// its files are streamed to disk. Staged temp files are always cleaned up;
// persisted ones survive only if the transaction commits.
func (b *Bridge) PostOperation(initiatorIdx int32, parseForm func() (*OperationSubmission, error)) (int32, error) {
	b.writeLock.Lock()
	defer b.writeLock.Unlock()

	// check if request is allowed
	hasPending, err := b.store.HasPendingOperation()
	if err != nil {
		return 0, ErrDatabase(err)
	}
	if hasPending {
		return 0, ErrCannotPostNewOperation("another operation is still pending")
	}
	hasUnprocessed, err := b.store.HasUnprocessedOperation(initiatorIdx)
	if err != nil {
		return 0, ErrDatabase(err)
	}
	if hasUnprocessed {
		return 0, ErrCannotPostNewOperation("initiator has unprocessed operations")
	}

	sub, err := parseForm()
	if sub != nil {
		defer func() {
			for _, file := range sub.Files {
				b.files.Discard(file.TempPath)
			}
			b.files.Discard(sub.PsbtTempPath)
		}()
	}
	if err != nil {
		return 0, err
	}

	// check if request is valid
	if len(sub.Files) == 0 && sub.PsbtTempPath == "" {
		return 0, ErrInvalidRequest("no files nor PSBT provided")
	}
	if sub.Type == nil {
		return 0, ErrInvalidRequest("operation type not provided")
	}
	operationType := *sub.Type

	now := time.Now().Unix()

	// request is valid and allowed, start transaction
	tx, err := b.store.Begin()
	if err != nil {
		return 0, ErrDatabase(err)
	}
	defer tx.Rollback()

	initialStatus := models.OperationStatusPending
	if operationType.AutoApproved() {
		initialStatus = models.OperationStatusApproved
	}
	operationIdx, err := b.store.InsertOperation(tx, &models.Operation{
		Type:         operationType,
		Status:       initialStatus,
		CreatedAt:    now,
		InitiatorIdx: initiatorIdx,
	})
	if err != nil {
		return 0, ErrDatabase(err)
	}

	for _, file := range sub.Files {
		fileID, err := b.files.Persist(file.TempPath)
		if err != nil {
			return 0, ErrIO(err)
		}
		if _, err := b.store.InsertOpFile(tx, &models.OpFile{
			FileID:       fileID,
			Type:         file.Type,
			OperationIdx: operationIdx,
		}); err != nil {
			return 0, ErrDatabase(err)
		}
	}

	var psbtOpFileIdx *int32
	if sub.PsbtTempPath != "" {
		fileID, err := b.files.Persist(sub.PsbtTempPath)
		if err != nil {
			return 0, ErrIO(err)
		}
		idx, err := b.store.InsertOpFile(tx, &models.OpFile{
			FileID:       fileID,
			Type:         models.FileTypePsbt,
			OperationIdx: operationIdx,
		})
		if err != nil {
			return 0, ErrDatabase(err)
		}
		psbtOpFileIdx = &idx
	}

	// one status row per cosigner; the initiator counts as an implicit ACK
	ack := true
	for cosignerIdx := range b.cosignersByIdx {
		status := &models.CosignerOpStatus{
			OperationIdx: operationIdx,
			CosignerIdx:  cosignerIdx,
		}
		if cosignerIdx == initiatorIdx {
			status.Ack = &ack
			status.RespondedAt = &now
			status.PsbtOpFileIdx = psbtOpFileIdx
		}
		if _, err := b.store.InsertCosignerOpStatus(tx, status); err != nil {
			return 0, ErrDatabase(err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return 0, ErrDatabase(err)
	}

	logger.Info("operation posted",
		"operation_idx", operationIdx,
		"type", operationType.String(),
		"status", initialStatus.String(),
		"initiator_idx", initiatorIdx)
	return operationIdx, nil
}

// RespondToOperation records cosignerIdx's ACK or NACK and finalizes the
// operation when the decision threshold is reached. Returns the updated
// operation view.
func (b *Bridge) RespondToOperation(cosignerIdx int32, parseForm func() (*ResponseSubmission, error)) (*OperationView, error) {
	b.writeLock.Lock()
	defer b.writeLock.Unlock()

	sub, err := parseForm()
	if sub != nil {
		defer b.files.Discard(sub.PsbtTempPath)
	}
	if err != nil {
		return nil, err
	}

	// check if request is valid and allowed
	if !sub.HasRequest {
		return nil, ErrInvalidRequest("missing request body")
	}
	if sub.Ack && sub.PsbtTempPath == "" {
		return nil, ErrInvalidRequest("ACK requires PSBT file")
	}
	op, err := b.store.GetOperationByIdx(sub.OperationIdx)
	if err != nil {
		return nil, ErrDatabase(err)
	}
	if op == nil {
		return nil, ErrOperationNotFound
	}
	if op.InitiatorIdx == cosignerIdx {
		return nil, ErrCannotRespondToOperation("cannot respond to your own operation")
	}
	if op.Status != models.OperationStatusPending {
		return nil, ErrCannotRespondToOperation("operation is not pending")
	}
	statusEntry, err := b.store.GetCosignerOpStatus(cosignerIdx, sub.OperationIdx)
	if err != nil {
		return nil, ErrDatabase(err)
	}
	if statusEntry == nil {
		return nil, ErrUnexpected("CosignerOpStatus entry should exist")
	}
	if statusEntry.Ack != nil {
		return nil, ErrCannotRespondToOperation("already responded to this operation")
	}
	lastProcessed, err := b.store.GetLastProcessedOpIdx(cosignerIdx)
	if err != nil {
		return nil, ErrDatabase(err)
	}
	if sub.OperationIdx != lastProcessed+1 {
		return nil, ErrCannotRespondToOperation("operation is not the next one to be processed")
	}

	// request is valid and allowed, start transaction
	tx, err := b.store.Begin()
	if err != nil {
		return nil, ErrDatabase(err)
	}
	defer tx.Rollback()

	if sub.PsbtTempPath != "" {
		fileID, err := b.files.Persist(sub.PsbtTempPath)
		if err != nil {
			return nil, ErrIO(err)
		}
		idx, err := b.store.InsertOpFile(tx, &models.OpFile{
			FileID:       fileID,
			Type:         models.FileTypePsbt,
			OperationIdx: op.Idx,
		})
		if err != nil {
			return nil, ErrDatabase(err)
		}
		statusEntry.PsbtOpFileIdx = &idx
	}

	now := time.Now().Unix()
	statusEntry.Ack = &sub.Ack
	statusEntry.RespondedAt = &now
	if err := b.store.UpdateCosignerOpStatus(tx, statusEntry); err != nil {
		return nil, ErrDatabase(err)
	}

	// count ACKs and NACKs to determine the new status
	statuses, err := b.store.ListCosignerOpStatusByOperation(tx, op.Idx)
	if err != nil {
		return nil, ErrDatabase(err)
	}
	var ackCount, nackCount uint8
	for _, status := range statuses {
		if status.Ack == nil {
			continue
		}
		if *status.Ack {
			ackCount++
		} else {
			nackCount++
		}
	}
	thresholdPtr := op.Type.Threshold(b.thresholdVanilla, b.thresholdColored)
	if thresholdPtr == nil {
		return nil, ErrUnexpected("threshold should be set for non-auto-approved operations")
	}
	threshold := *thresholdPtr
	totalCosigners := uint8(len(b.cosignersByXpub))

	// ACK wins ties: the approval check runs first
	var newStatus *models.OperationStatus
	if ackCount >= threshold {
		approved := models.OperationStatusApproved
		newStatus = &approved
	} else if nackCount > totalCosigners-threshold {
		discarded := models.OperationStatusDiscarded
		newStatus = &discarded
	}

	if newStatus != nil {
		op.Status = *newStatus
		if err := b.store.UpdateOperation(tx, op); err != nil {
			return nil, ErrDatabase(err)
		}
		logger.Debug("operation finalized",
			"operation_idx", op.Idx, "status", newStatus.String())
	}

	if err := tx.Commit().Error; err != nil {
		return nil, ErrDatabase(err)
	}

	logger.Info("response recorded",
		"operation_idx", op.Idx, "cosigner_idx", cosignerIdx, "ack", sub.Ack)

	view, err := b.OperationByIdx(sub.OperationIdx, &cosignerIdx)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, ErrUnexpected("operation should exist after response")
	}
	return view, nil
}

// MarkOperationProcessed records that cosignerIdx has acted on a finalized
// operation, unblocking their response to the next one.
func (b *Bridge) MarkOperationProcessed(cosignerIdx, operationIdx int32) error {
	b.writeLock.Lock()
	defer b.writeLock.Unlock()

	// check if request is allowed
	op, err := b.store.GetOperationByIdx(operationIdx)
	if err != nil {
		return ErrDatabase(err)
	}
	if op == nil {
		return ErrOperationNotFound
	}
	if op.Status == models.OperationStatusPending {
		return ErrCannotMarkOperationProcessed("a pending operation cannot be marked as processed")
	}
	status, err := b.store.GetCosignerOpStatus(cosignerIdx, operationIdx)
	if err != nil {
		return ErrDatabase(err)
	}
	if status == nil {
		return ErrOperationNotFound
	}
	if status.ProcessedAt != nil {
		return ErrCannotMarkOperationProcessed("already marked this operation as processed")
	}

	now := time.Now().Unix()
	status.ProcessedAt = &now
	if err := b.store.UpdateCosignerOpStatus(nil, status); err != nil {
		return ErrDatabase(err)
	}

	logger.Info("operation marked processed",
		"operation_idx", operationIdx, "cosigner_idx", cosignerIdx)
	return nil
}

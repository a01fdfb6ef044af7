package bridge

import (
	"sort"

	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/models"
)

// FileMetadata describes one file of an operation view.
type FileMetadata struct {
	FileID       string          `json:"file_id"`
	Type         models.FileType `json:"type"`
	PostedByXpub string          `json:"posted_by_xpub"`
	SizeBytes    uint64          `json:"size_bytes"`
}

// OperationView is the full client-facing picture of one operation.
// MyResponse and ProcessedAt are only populated for cosigner viewers.
type OperationView struct {
	OperationIdx  int32                  `json:"operation_idx"`
	InitiatorXpub string                 `json:"initiator_xpub"`
	CreatedAt     int64                  `json:"created_at"`
	OperationType models.OperationType   `json:"operation_type"`
	Status        models.OperationStatus `json:"status"`
	AckedBy       []string               `json:"acked_by"`
	NackedBy      []string               `json:"nacked_by"`
	Threshold     *uint8                 `json:"threshold"`
	MyResponse    *bool                  `json:"my_response"`
	ProcessedAt   *int64                 `json:"processed_at"`
	Files         []FileMetadata         `json:"files"`
}

// OperationByIdx assembles the view of an operation, or nil if the idx is
// unknown. viewerCosigner selects whose my_response/processed_at to report;
// nil for watch-only viewers.
func (b *Bridge) OperationByIdx(operationIdx int32, viewerCosigner *int32) (*OperationView, error) {
	op, err := b.store.GetOperationByIdx(operationIdx)
	if err != nil {
		return nil, ErrDatabase(err)
	}
	if op == nil {
		return nil, nil
	}

	initiator, err := b.store.GetCosignerByIdx(op.InitiatorIdx)
	if err != nil {
		return nil, ErrDatabase(err)
	}
	if initiator == nil {
		return nil, ErrUnexpected("initiator should be set")
	}

	statusEntries, err := b.store.ListCosignerOpStatusWithCosigners(op.Idx)
	if err != nil {
		return nil, ErrDatabase(err)
	}

	var myResponse *bool
	var processedAt *int64
	if viewerCosigner != nil {
		for _, entry := range statusEntries {
			if entry.Status.CosignerIdx == *viewerCosigner {
				myResponse = entry.Status.Ack
				processedAt = entry.Status.ProcessedAt
				break
			}
		}
	}

	// files posted with the operation, attributed to the initiator
	opFiles, err := b.store.ListOpFilesByOperation(op.Idx)
	if err != nil {
		return nil, ErrDatabase(err)
	}
	files := make([]FileMetadata, 0, len(opFiles))
	for _, file := range opFiles {
		size, err := b.files.Stat(file.FileID)
		if err != nil {
			return nil, ErrIO(err)
		}
		files = append(files, FileMetadata{
			FileID:       file.FileID,
			Type:         file.Type,
			PostedByXpub: initiator.Xpub,
			SizeBytes:    uint64(size),
		})
	}

	// responder PSBTs, attributed to their cosigners
	for _, entry := range statusEntries {
		if entry.Cosigner.Xpub == initiator.Xpub {
			continue
		}
		if entry.Status.PsbtOpFileIdx == nil {
			continue
		}
		psbtFile, err := b.store.GetOpFileByIdx(*entry.Status.PsbtOpFileIdx)
		if err != nil {
			return nil, ErrDatabase(err)
		}
		if psbtFile == nil {
			return nil, ErrUnexpected("PSBT op file should exist")
		}
		size, err := b.files.Stat(psbtFile.FileID)
		if err != nil {
			return nil, ErrIO(err)
		}
		files = append(files, FileMetadata{
			FileID:       psbtFile.FileID,
			Type:         models.FileTypePsbt,
			PostedByXpub: entry.Cosigner.Xpub,
			SizeBytes:    uint64(size),
		})
	}

	ackedBy := make([]string, 0)
	nackedBy := make([]string, 0)
	for _, entry := range statusEntries {
		if entry.Status.Ack == nil {
			continue
		}
		if *entry.Status.Ack {
			ackedBy = append(ackedBy, entry.Cosigner.Xpub)
		} else {
			nackedBy = append(nackedBy, entry.Cosigner.Xpub)
		}
	}
	sort.Strings(ackedBy)
	sort.Strings(nackedBy)

	return &OperationView{
		OperationIdx:  op.Idx,
		InitiatorXpub: initiator.Xpub,
		CreatedAt:     op.CreatedAt,
		OperationType: op.Type,
		Status:        op.Status,
		AckedBy:       ackedBy,
		NackedBy:      nackedBy,
		Threshold:     op.Type.Threshold(b.thresholdVanilla, b.thresholdColored),
		MyResponse:    myResponse,
		ProcessedAt:   processedAt,
		Files:         files,
	}, nil
}

package bridge

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/models"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/store"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/config"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/filestore"
)

func testParams(xpubs []string, thresholdVanilla, thresholdColored uint8) *config.Params {
	return &config.Params{
		CosignerXpubs:    xpubs,
		ThresholdVanilla: thresholdVanilla,
		ThresholdColored: thresholdColored,
		RgbLibVersion:    "0.3",
	}
}

func newTestBridge(t *testing.T, params *config.Params) *Bridge {
	t.Helper()
	st, err := store.Open(store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	files, err := filestore.New(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	b, err := New(st, files, params)
	require.NoError(t, err)
	return b
}

// stage writes content into the bridge's file store staging area.
func stage(t *testing.T, b *Bridge, content string) string {
	t.Helper()
	path, _, err := b.Files().Stage(bytes.NewReader([]byte(content)))
	require.NoError(t, err)
	return path
}

func postSubmission(opType models.OperationType, psbtPath string, files ...StagedFile) func() (*OperationSubmission, error) {
	return func() (*OperationSubmission, error) {
		return &OperationSubmission{
			Type:         &opType,
			Files:        files,
			PsbtTempPath: psbtPath,
		}, nil
	}
}

func respondSubmission(operationIdx int32, ack bool, psbtPath string) func() (*ResponseSubmission, error) {
	return func() (*ResponseSubmission, error) {
		return &ResponseSubmission{
			HasRequest:   true,
			OperationIdx: operationIdx,
			Ack:          ack,
			PsbtTempPath: psbtPath,
		}, nil
	}
}

func TestNewSeedsDatabase(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC"}, 2, 3))

	assert.Equal(t, 3, b.NumCosigners())
	idx, ok := b.CosignerByXpub("xpubB")
	assert.True(t, ok)
	assert.Equal(t, int32(2), idx)
	_, ok = b.CosignerByXpub("unknown")
	assert.False(t, ok)
}

func TestNewRejectsChangedConfiguration(t *testing.T) {
	st, err := store.Open(store.Config{Path: ":memory:"})
	require.NoError(t, err)
	defer st.Close()
	files, err := filestore.New(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)

	_, err = New(st, files, testParams([]string{"xpubA", "xpubB"}, 2, 2))
	require.NoError(t, err)

	// same database, different threshold
	_, err = New(st, files, testParams([]string{"xpubA", "xpubB"}, 1, 2))
	var thErr *config.InvalidThresholdError
	assert.ErrorAs(t, err, &thErr)

	// same database, different cosigner set
	_, err = New(st, files, testParams([]string{"xpubA", "xpubZ"}, 2, 2))
	assert.ErrorIs(t, err, config.ErrCannotChangeCosigners)
	_, err = New(st, files, testParams([]string{"xpubA", "xpubB", "xpubC"}, 2, 2))
	assert.ErrorIs(t, err, config.ErrCannotChangeCosigners)

	// unchanged configuration restarts fine
	b, err := New(st, files, testParams([]string{"xpubB", "xpubA"}, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, b.NumCosigners())
}

func TestPostOperationPending(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC"}, 2, 3))

	psbt := stage(t, b, "psbt v1")
	opIdx, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, psbt))
	require.NoError(t, err)
	assert.Equal(t, int32(1), opIdx)

	view, err := b.OperationByIdx(opIdx, nil)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, models.OperationStatusPending, view.Status)
	assert.Equal(t, models.OperationTypeSendBtc, view.OperationType)
	assert.Equal(t, "xpubA", view.InitiatorXpub)
	assert.Equal(t, []string{"xpubA"}, view.AckedBy)
	assert.Empty(t, view.NackedBy)
	require.NotNil(t, view.Threshold)
	assert.Equal(t, uint8(2), *view.Threshold)
	assert.Nil(t, view.MyResponse)
	require.Len(t, view.Files, 1)
	assert.Equal(t, models.FileTypePsbt, view.Files[0].Type)
	assert.Equal(t, "xpubA", view.Files[0].PostedByXpub)
	assert.Equal(t, uint64(len("psbt v1")), view.Files[0].SizeBytes)
}

func TestPostOperationAutoApproved(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB"}, 2, 2))

	consignment := StagedFile{
		Type:     models.FileTypeConsignment,
		TempPath: stage(t, b, "consignment bytes"),
	}
	opIdx, err := b.PostOperation(2, postSubmission(models.OperationTypeIssuance, "", consignment))
	require.NoError(t, err)

	view, err := b.OperationByIdx(opIdx, nil)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, models.OperationStatusApproved, view.Status)
	assert.Nil(t, view.Threshold)
	assert.Equal(t, "xpubB", view.InitiatorXpub)
	require.Len(t, view.Files, 1)
	assert.Equal(t, models.FileTypeConsignment, view.Files[0].Type)
}

func TestPostOperationValidation(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB"}, 2, 2))

	_, err := b.PostOperation(1, func() (*OperationSubmission, error) {
		return &OperationSubmission{}, nil
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "InvalidRequest", apiErr.Name)
	assert.Equal(t, "Invalid request: no files nor PSBT provided", apiErr.Error())

	_, err = b.PostOperation(1, func() (*OperationSubmission, error) {
		return &OperationSubmission{PsbtTempPath: stage(t, b, "psbt")}, nil
	})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid request: operation type not provided", apiErr.Error())
}

func TestPostOperationBlockedByPending(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC"}, 2, 3))

	_, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, stage(t, b, "psbt")))
	require.NoError(t, err)

	_, err = b.PostOperation(2, postSubmission(models.OperationTypeSendBtc, stage(t, b, "psbt2")))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "CannotPostNewOperation", apiErr.Name)
	assert.Equal(t, "Cannot post new operation: another operation is still pending", apiErr.Error())
}

func TestPostOperationBlockedByUnprocessed(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB"}, 2, 2))

	// auto-approved, so nothing stays pending
	_, err := b.PostOperation(1, postSubmission(models.OperationTypeIssuance, "", StagedFile{
		Type: models.FileTypeConsignment, TempPath: stage(t, b, "c1"),
	}))
	require.NoError(t, err)

	_, err = b.PostOperation(1, postSubmission(models.OperationTypeIssuance, "", StagedFile{
		Type: models.FileTypeConsignment, TempPath: stage(t, b, "c2"),
	}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Cannot post new operation: initiator has unprocessed operations", apiErr.Error())

	// a different cosigner without a backlog can still post
	require.NoError(t, b.MarkOperationProcessed(2, 1))
	_, err = b.PostOperation(2, postSubmission(models.OperationTypeIssuance, "", StagedFile{
		Type: models.FileTypeConsignment, TempPath: stage(t, b, "c3"),
	}))
	require.NoError(t, err)
}

func TestPostOperationSerializesConcurrentPosts(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC"}, 2, 3))

	psbtA := stage(t, b, "psbt A")
	psbtB := stage(t, b, "psbt B")

	results := make(chan error, 2)
	go func() {
		_, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, psbtA))
		results <- err
	}()
	go func() {
		_, err := b.PostOperation(2, postSubmission(models.OperationTypeSendBtc, psbtB))
		results <- err
	}()

	// exactly one post wins; the loser sees the winner's pending operation
	first, second := <-results, <-results
	failed := first
	if first == nil {
		failed = second
	} else {
		require.NoError(t, second)
	}
	var apiErr *APIError
	require.ErrorAs(t, failed, &apiErr)
	assert.Equal(t, "Cannot post new operation: another operation is still pending", apiErr.Error())

	last, err := b.Info()
	require.NoError(t, err)
	require.NotNil(t, last.LastOperationIdx)
	assert.Equal(t, int32(1), *last.LastOperationIdx)
}

func TestIdenticalPsbtsShareFileID(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC"}, 2, 3))

	opIdx, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, stage(t, b, "countersigned psbt")))
	require.NoError(t, err)
	view, err := b.RespondToOperation(2, respondSubmission(opIdx, true, stage(t, b, "countersigned psbt")))
	require.NoError(t, err)

	// two op_file rows, one content-addressed file behind both
	require.Len(t, view.Files, 2)
	assert.Equal(t, view.Files[0].FileID, view.Files[1].FileID)
	assert.ElementsMatch(t, []string{"xpubA", "xpubB"},
		[]string{view.Files[0].PostedByXpub, view.Files[1].PostedByXpub})

	size, err := b.Files().Stat(view.Files[0].FileID)
	require.NoError(t, err)
	assert.Equal(t, int64(len("countersigned psbt")), size)
}

func TestRespondReachesApproval(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC"}, 2, 3))

	opIdx, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, stage(t, b, "psbt A")))
	require.NoError(t, err)

	// initiator ACK + one more reaches the vanilla threshold of 2
	view, err := b.RespondToOperation(2, respondSubmission(opIdx, true, stage(t, b, "psbt B")))
	require.NoError(t, err)
	assert.Equal(t, models.OperationStatusApproved, view.Status)
	assert.Equal(t, []string{"xpubA", "xpubB"}, view.AckedBy)
	require.NotNil(t, view.MyResponse)
	assert.True(t, *view.MyResponse)

	// the responder PSBT shows up attributed to the responder
	require.Len(t, view.Files, 2)
	byXpub := map[string]FileMetadata{}
	for _, f := range view.Files {
		byXpub[f.PostedByXpub] = f
	}
	assert.Equal(t, models.FileTypePsbt, byXpub["xpubB"].Type)
	assert.Equal(t, uint64(len("psbt B")), byXpub["xpubB"].SizeBytes)
}

func TestRespondReachesDiscard(t *testing.T) {
	// 3-of-3: a single NACK makes approval impossible
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC"}, 3, 3))

	opIdx, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, stage(t, b, "psbt")))
	require.NoError(t, err)

	view, err := b.RespondToOperation(2, respondSubmission(opIdx, false, ""))
	require.NoError(t, err)
	assert.Equal(t, models.OperationStatusDiscarded, view.Status)
	assert.Equal(t, []string{"xpubB"}, view.NackedBy)
	require.NotNil(t, view.MyResponse)
	assert.False(t, *view.MyResponse)
}

func TestRespondStaysPendingBelowThreshold(t *testing.T) {
	// 3-of-4: one NACK still leaves approval reachable
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC", "xpubD"}, 3, 3))

	opIdx, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, stage(t, b, "psbt")))
	require.NoError(t, err)

	view, err := b.RespondToOperation(2, respondSubmission(opIdx, false, ""))
	require.NoError(t, err)
	assert.Equal(t, models.OperationStatusPending, view.Status)

	// the second NACK exceeds N-T=1 and discards
	view, err = b.RespondToOperation(3, respondSubmission(opIdx, false, ""))
	require.NoError(t, err)
	assert.Equal(t, models.OperationStatusDiscarded, view.Status)
	assert.Equal(t, []string{"xpubB", "xpubC"}, view.NackedBy)
}

func TestRespondValidation(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC", "xpubD"}, 3, 3))

	opIdx, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, stage(t, b, "psbt")))
	require.NoError(t, err)

	var apiErr *APIError

	_, err = b.RespondToOperation(2, func() (*ResponseSubmission, error) {
		return &ResponseSubmission{}, nil
	})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid request: missing request body", apiErr.Error())

	_, err = b.RespondToOperation(2, respondSubmission(opIdx, true, ""))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid request: ACK requires PSBT file", apiErr.Error())

	_, err = b.RespondToOperation(2, respondSubmission(99, false, ""))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "OperationNotFound", apiErr.Name)

	_, err = b.RespondToOperation(1, respondSubmission(opIdx, false, ""))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Cannot respond to operation: cannot respond to your own operation", apiErr.Error())

	// first response sticks, second is rejected
	_, err = b.RespondToOperation(2, respondSubmission(opIdx, true, stage(t, b, "psbt B")))
	require.NoError(t, err)
	_, err = b.RespondToOperation(2, respondSubmission(opIdx, false, ""))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Cannot respond to operation: already responded to this operation", apiErr.Error())
}

func TestRespondRejectsFinalizedOperation(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC"}, 2, 2))

	opIdx, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, stage(t, b, "psbt")))
	require.NoError(t, err)
	_, err = b.RespondToOperation(2, respondSubmission(opIdx, true, stage(t, b, "psbt B")))
	require.NoError(t, err)

	_, err = b.RespondToOperation(3, respondSubmission(opIdx, false, ""))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Cannot respond to operation: operation is not pending", apiErr.Error())
}

func TestRespondEnforcesProcessingOrder(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC"}, 2, 2))

	op1, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, stage(t, b, "psbt 1")))
	require.NoError(t, err)
	_, err = b.RespondToOperation(2, respondSubmission(op1, true, stage(t, b, "psbt 1B")))
	require.NoError(t, err)

	// cosigner C posts the next operation after clearing their backlog
	require.NoError(t, b.MarkOperationProcessed(3, op1))
	op2, err := b.PostOperation(3, postSubmission(models.OperationTypeSendBtc, stage(t, b, "psbt 2")))
	require.NoError(t, err)

	// B has not processed op1 yet, so op2 is not their next operation
	_, err = b.RespondToOperation(2, respondSubmission(op2, true, stage(t, b, "psbt 2B")))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Cannot respond to operation: operation is not the next one to be processed", apiErr.Error())

	require.NoError(t, b.MarkOperationProcessed(2, op1))
	_, err = b.RespondToOperation(2, respondSubmission(op2, true, stage(t, b, "psbt 2B")))
	require.NoError(t, err)
}

func TestMarkOperationProcessed(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB", "xpubC"}, 2, 2))

	opIdx, err := b.PostOperation(1, postSubmission(models.OperationTypeSendBtc, stage(t, b, "psbt")))
	require.NoError(t, err)

	var apiErr *APIError
	err = b.MarkOperationProcessed(2, opIdx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Cannot mark operation as processed: a pending operation cannot be marked as processed", apiErr.Error())

	err = b.MarkOperationProcessed(2, 99)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "OperationNotFound", apiErr.Name)

	_, err = b.RespondToOperation(2, respondSubmission(opIdx, true, stage(t, b, "psbt B")))
	require.NoError(t, err)

	require.NoError(t, b.MarkOperationProcessed(2, opIdx))
	last, err := b.LastProcessedOpIdx(2)
	require.NoError(t, err)
	assert.Equal(t, opIdx, last)

	err = b.MarkOperationProcessed(2, opIdx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Cannot mark operation as processed: already marked this operation as processed", apiErr.Error())

	view, err := b.OperationByIdx(opIdx, ptr(int32(2)))
	require.NoError(t, err)
	require.NotNil(t, view.ProcessedAt)
}

func TestOperationByIdxUnknown(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB"}, 2, 2))

	view, err := b.OperationByIdx(1, nil)
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestAddressIndices(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB"}, 2, 2))

	internal, external, err := b.CurrentAddressIndices()
	require.NoError(t, err)
	assert.Nil(t, internal)
	assert.Nil(t, external)

	first, err := b.BumpAddressIndices(3, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), first)

	first, err = b.BumpAddressIndices(2, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), first)

	first, err = b.BumpAddressIndices(1, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), first)

	internal, external, err = b.CurrentAddressIndices()
	require.NoError(t, err)
	require.NotNil(t, internal)
	require.NotNil(t, external)
	assert.Equal(t, uint32(0), *internal)
	assert.Equal(t, uint32(4), *external)

	_, err = b.BumpAddressIndices(0, false)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestInfo(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB"}, 2, 2))

	info, err := b.Info()
	require.NoError(t, err)
	assert.Equal(t, config.MinRgbLibVersion, info.MinRgbLibVersion)
	assert.Equal(t, config.MaxRgbLibVersion, info.MaxRgbLibVersion)
	assert.Equal(t, "0.3", info.RgbLibVersion)
	assert.Nil(t, info.LastOperationIdx)

	opIdx, err := b.PostOperation(1, postSubmission(models.OperationTypeIssuance, "", StagedFile{
		Type: models.FileTypeConsignment, TempPath: stage(t, b, "c"),
	}))
	require.NoError(t, err)

	info, err = b.Info()
	require.NoError(t, err)
	require.NotNil(t, info.LastOperationIdx)
	assert.Equal(t, opIdx, *info.LastOperationIdx)
}

func TestParseErrorAborts(t *testing.T) {
	b := newTestBridge(t, testParams([]string{"xpubA", "xpubB"}, 2, 2))

	parseErr := ErrInvalidRequest("failed to parse multipart")
	_, err := b.PostOperation(1, func() (*OperationSubmission, error) {
		return nil, parseErr
	})
	assert.ErrorIs(t, err, parseErr)

	// staged files are cleaned up even when parsing fails halfway
	temp := stage(t, b, "half-read")
	_, err = b.PostOperation(1, func() (*OperationSubmission, error) {
		return &OperationSubmission{PsbtTempPath: temp}, fmt.Errorf("connection reset")
	})
	require.Error(t, err)
	_, statErr := os.Stat(temp)
	assert.True(t, os.IsNotExist(statErr))
}

func ptr[T any](v T) *T { return &v }

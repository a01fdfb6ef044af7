package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperationType(t *testing.T) {
	for v, want := range map[uint8]OperationType{
		1: OperationTypeCreateUtxos,
		2: OperationTypeIssuance,
		3: OperationTypeSendRgb,
		4: OperationTypeSendBtc,
		5: OperationTypeInflation,
		6: OperationTypeBlindReceive,
		7: OperationTypeWitnessReceive,
	} {
		got, ok := ParseOperationType(v)
		require.True(t, ok, v)
		assert.Equal(t, want, got)
	}

	_, ok := ParseOperationType(0)
	assert.False(t, ok)
	_, ok = ParseOperationType(8)
	assert.False(t, ok)
}

func TestAutoApproved(t *testing.T) {
	assert.True(t, OperationTypeIssuance.AutoApproved())
	assert.True(t, OperationTypeBlindReceive.AutoApproved())
	assert.True(t, OperationTypeWitnessReceive.AutoApproved())

	assert.False(t, OperationTypeCreateUtxos.AutoApproved())
	assert.False(t, OperationTypeSendRgb.AutoApproved())
	assert.False(t, OperationTypeSendBtc.AutoApproved())
	assert.False(t, OperationTypeInflation.AutoApproved())
}

func TestThreshold(t *testing.T) {
	vanilla, colored := uint8(2), uint8(3)

	for _, tt := range []OperationType{OperationTypeCreateUtxos, OperationTypeSendBtc} {
		th := tt.Threshold(vanilla, colored)
		require.NotNil(t, th, tt)
		assert.Equal(t, vanilla, *th, tt)
	}
	for _, tt := range []OperationType{OperationTypeSendRgb, OperationTypeInflation} {
		th := tt.Threshold(vanilla, colored)
		require.NotNil(t, th, tt)
		assert.Equal(t, colored, *th, tt)
	}
	for _, tt := range []OperationType{
		OperationTypeIssuance, OperationTypeBlindReceive, OperationTypeWitnessReceive,
	} {
		assert.Nil(t, tt.Threshold(vanilla, colored), tt)
	}
}

func TestEnumJSON(t *testing.T) {
	data, err := json.Marshal(OperationTypeSendRgb)
	require.NoError(t, err)
	assert.Equal(t, `"SendRgb"`, string(data))

	var ot OperationType
	require.NoError(t, json.Unmarshal([]byte(`"WitnessReceive"`), &ot))
	assert.Equal(t, OperationTypeWitnessReceive, ot)
	assert.Error(t, json.Unmarshal([]byte(`"Bogus"`), &ot))

	data, err = json.Marshal(OperationStatusPending)
	require.NoError(t, err)
	assert.Equal(t, `"Pending"`, string(data))

	var st OperationStatus
	require.NoError(t, json.Unmarshal([]byte(`"Discarded"`), &st))
	assert.Equal(t, OperationStatusDiscarded, st)

	data, err = json.Marshal(FileTypeOperationData)
	require.NoError(t, err)
	assert.Equal(t, `"OperationData"`, string(data))

	var ft FileType
	require.NoError(t, json.Unmarshal([]byte(`"Psbt"`), &ft))
	assert.Equal(t, FileTypePsbt, ft)
}

package models

import (
	"encoding/json"
	"fmt"
)

// OperationType identifies what a posted operation does. Values are stored
// in the DB and carried as a raw byte in the post form; JSON uses the names.
type OperationType uint8

const (
	OperationTypeCreateUtxos    OperationType = 1
	OperationTypeIssuance       OperationType = 2
	OperationTypeSendRgb        OperationType = 3
	OperationTypeSendBtc        OperationType = 4
	OperationTypeInflation      OperationType = 5
	OperationTypeBlindReceive   OperationType = 6
	OperationTypeWitnessReceive OperationType = 7
)

var operationTypeNames = map[OperationType]string{
	OperationTypeCreateUtxos:    "CreateUtxos",
	OperationTypeIssuance:       "Issuance",
	OperationTypeSendRgb:        "SendRgb",
	OperationTypeSendBtc:        "SendBtc",
	OperationTypeInflation:      "Inflation",
	OperationTypeBlindReceive:   "BlindReceive",
	OperationTypeWitnessReceive: "WitnessReceive",
}

// ParseOperationType validates a raw operation type byte.
func ParseOperationType(v uint8) (OperationType, bool) {
	t := OperationType(v)
	_, ok := operationTypeNames[t]
	return t, ok
}

func (t OperationType) String() string {
	if name, ok := operationTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("OperationType(%d)", uint8(t))
}

// AutoApproved reports whether operations of this type skip the approval
// round and are created directly in Approved status.
func (t OperationType) AutoApproved() bool {
	switch t {
	case OperationTypeIssuance, OperationTypeBlindReceive, OperationTypeWitnessReceive:
		return true
	}
	return false
}

// Threshold returns the approval threshold for this operation type, or nil
// for auto-approved types.
func (t OperationType) Threshold(vanilla, colored uint8) *uint8 {
	switch t {
	case OperationTypeCreateUtxos, OperationTypeSendBtc:
		return &vanilla
	case OperationTypeSendRgb, OperationTypeInflation:
		return &colored
	}
	return nil
}

func (t OperationType) MarshalJSON() ([]byte, error) {
	name, ok := operationTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown operation type %d", uint8(t))
	}
	return json.Marshal(name)
}

func (t *OperationType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for v, n := range operationTypeNames {
		if n == name {
			*t = v
			return nil
		}
	}
	return fmt.Errorf("unknown operation type %q", name)
}

// OperationStatus is the operation state machine: Pending until the
// threshold decides, then Approved or Discarded, both terminal.
type OperationStatus uint8

const (
	OperationStatusPending   OperationStatus = 1
	OperationStatusApproved  OperationStatus = 2
	OperationStatusDiscarded OperationStatus = 3
)

var operationStatusNames = map[OperationStatus]string{
	OperationStatusPending:   "Pending",
	OperationStatusApproved:  "Approved",
	OperationStatusDiscarded: "Discarded",
}

func (s OperationStatus) String() string {
	if name, ok := operationStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OperationStatus(%d)", uint8(s))
}

func (s OperationStatus) MarshalJSON() ([]byte, error) {
	name, ok := operationStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown operation status %d", uint8(s))
	}
	return json.Marshal(name)
}

func (s *OperationStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for v, n := range operationStatusNames {
		if n == name {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown operation status %q", name)
}

// FileType classifies operation files.
type FileType uint8

const (
	FileTypeConsignment   FileType = 1
	FileTypeMedia         FileType = 2
	FileTypeOperationData FileType = 3
	FileTypePsbt          FileType = 4
)

var fileTypeNames = map[FileType]string{
	FileTypeConsignment:   "Consignment",
	FileTypeMedia:         "Media",
	FileTypeOperationData: "OperationData",
	FileTypePsbt:          "Psbt",
}

func (f FileType) String() string {
	if name, ok := fileTypeNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FileType(%d)", uint8(f))
}

func (f FileType) MarshalJSON() ([]byte, error) {
	name, ok := fileTypeNames[f]
	if !ok {
		return nil, fmt.Errorf("unknown file type %d", uint8(f))
	}
	return json.Marshal(name)
}

func (f *FileType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for v, n := range fileTypeNames {
		if n == name {
			*f = v
			return nil
		}
	}
	return fmt.Errorf("unknown file type %q", name)
}

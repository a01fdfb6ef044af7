// Package models defines the persistence entities of the bridge.
//
// The schema is six tables: config, next_address_index, cosigner, operation,
// op_file and cosigner_op_status. All tables use an auto-increment "idx"
// primary key; cross-table references are RESTRICT foreign keys so nothing
// referenced can ever be deleted from under an operation.
package models

// Config holds the wallet-wide thresholds. Written once on first start and
// verified on every restart; a single row with idx 1.
type Config struct {
	Idx              int32 `gorm:"column:idx;primaryKey;autoIncrement"`
	ThresholdColored uint8 `gorm:"column:threshold_colored;not null"`
	ThresholdVanilla uint8 `gorm:"column:threshold_vanilla;not null"`
}

func (Config) TableName() string { return "config" }

// NextAddressIndex tracks the next unassigned derivation index for the
// internal and external keychains; a single row with idx 1.
type NextAddressIndex struct {
	Idx      int32  `gorm:"column:idx;primaryKey;autoIncrement"`
	Internal uint32 `gorm:"column:internal;not null"`
	External uint32 `gorm:"column:external;not null"`
}

func (NextAddressIndex) TableName() string { return "next_address_index" }

// Cosigner is a member of the multisig community, identified by xpub.
type Cosigner struct {
	Idx  int32  `gorm:"column:idx;primaryKey;autoIncrement"`
	Xpub string `gorm:"column:xpub;not null;unique"`
}

func (Cosigner) TableName() string { return "cosigner" }

// Operation is a posted wallet operation.
type Operation struct {
	Idx          int32           `gorm:"column:idx;primaryKey;autoIncrement"`
	Type         OperationType   `gorm:"column:type;not null"`
	Status       OperationStatus `gorm:"column:status;not null;index:idx-operation-status"`
	CreatedAt    int64           `gorm:"column:created_at;not null"`
	InitiatorIdx int32           `gorm:"column:initiator_idx;not null"`
}

func (Operation) TableName() string { return "operation" }

// OpFile is a content-addressed file attached to an operation. FileID is the
// hex SHA-256 of the content, which is also the file name on disk.
type OpFile struct {
	Idx          int32    `gorm:"column:idx;primaryKey;autoIncrement"`
	FileID       string   `gorm:"column:file_id;not null"`
	Type         FileType `gorm:"column:type;not null"`
	OperationIdx int32    `gorm:"column:operation_idx;not null;index:idx-opfile-operationidx"`
}

func (OpFile) TableName() string { return "op_file" }

// CosignerOpStatus tracks one cosigner's relationship to one operation:
// their ACK/NACK (nil until they respond), their response PSBT and when they
// marked the finalized operation as processed. One row per cosigner per
// operation, created when the operation is posted.
type CosignerOpStatus struct {
	Idx           int32  `gorm:"column:idx;primaryKey;autoIncrement"`
	CosignerIdx   int32  `gorm:"column:cosigner_idx;not null"`
	OperationIdx  int32  `gorm:"column:operation_idx;not null"`
	Ack           *bool  `gorm:"column:ack"`
	RespondedAt   *int64 `gorm:"column:responded_at"`
	ProcessedAt   *int64 `gorm:"column:processed_at"`
	PsbtOpFileIdx *int32 `gorm:"column:psbt_op_file_idx"`
}

func (CosignerOpStatus) TableName() string { return "cosigner_op_status" }

// AllModels returns every entity, in FK dependency order.
func AllModels() []any {
	return []any{
		&Config{},
		&NextAddressIndex{},
		&Cosigner{},
		&Operation{},
		&OpFile{},
		&CosignerOpStatus{},
	}
}

package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/models"
)

// InsertConfig stores the thresholds row and returns its idx.
func (s *Store) InsertConfig(cfg *models.Config) (int32, error) {
	if err := s.db.Create(cfg).Error; err != nil {
		return 0, err
	}
	return cfg.Idx, nil
}

// InsertCosigners stores the cosigner set and returns the inserted count.
func (s *Store) InsertCosigners(cosigners []models.Cosigner) (int64, error) {
	res := s.db.Create(&cosigners)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// InsertNextAddressIndex stores the counters row and returns its idx.
func (s *Store) InsertNextAddressIndex(idx *models.NextAddressIndex) (int32, error) {
	if err := s.db.Create(idx).Error; err != nil {
		return 0, err
	}
	return idx.Idx, nil
}

// InsertOperation stores an operation and returns its idx.
func (s *Store) InsertOperation(tx *gorm.DB, op *models.Operation) (int32, error) {
	if err := s.conn(tx).Create(op).Error; err != nil {
		return 0, err
	}
	return op.Idx, nil
}

// InsertOpFile stores an operation file row and returns its idx.
func (s *Store) InsertOpFile(tx *gorm.DB, file *models.OpFile) (int32, error) {
	if err := s.conn(tx).Create(file).Error; err != nil {
		return 0, err
	}
	return file.Idx, nil
}

// InsertCosignerOpStatus stores a per-cosigner status row.
func (s *Store) InsertCosignerOpStatus(tx *gorm.DB, status *models.CosignerOpStatus) (int32, error) {
	if err := s.conn(tx).Create(status).Error; err != nil {
		return 0, err
	}
	return status.Idx, nil
}

// UpdateCosignerOpStatus persists all fields of a status row.
func (s *Store) UpdateCosignerOpStatus(tx *gorm.DB, status *models.CosignerOpStatus) error {
	return s.conn(tx).Save(status).Error
}

// UpdateNextAddressIndex persists the counters row.
func (s *Store) UpdateNextAddressIndex(tx *gorm.DB, idx *models.NextAddressIndex) error {
	return s.conn(tx).Save(idx).Error
}

// UpdateOperation persists all fields of an operation row.
func (s *Store) UpdateOperation(tx *gorm.DB, op *models.Operation) error {
	return s.conn(tx).Save(op).Error
}

// GetConfig returns the thresholds row, or nil if the database is fresh.
func (s *Store) GetConfig() (*models.Config, error) {
	var cfg models.Config
	notFound, err := asNotFound(s.db.First(&cfg).Error)
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, nil
	}
	return &cfg, nil
}

// GetCosignerByIdx returns a cosigner by idx, or nil if unknown.
func (s *Store) GetCosignerByIdx(idx int32) (*models.Cosigner, error) {
	var cosigner models.Cosigner
	notFound, err := asNotFound(s.db.First(&cosigner, idx).Error)
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, nil
	}
	return &cosigner, nil
}

// ListCosigners returns the full cosigner set.
func (s *Store) ListCosigners() ([]models.Cosigner, error) {
	var cosigners []models.Cosigner
	if err := s.db.Find(&cosigners).Error; err != nil {
		return nil, err
	}
	return cosigners, nil
}

// GetCosignerOpStatus returns the status row for one cosigner on one
// operation, or nil if the operation does not exist.
func (s *Store) GetCosignerOpStatus(cosignerIdx, operationIdx int32) (*models.CosignerOpStatus, error) {
	var status models.CosignerOpStatus
	notFound, err := asNotFound(s.db.
		Where("cosigner_idx = ? AND operation_idx = ?", cosignerIdx, operationIdx).
		First(&status).Error)
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, nil
	}
	return &status, nil
}

// StatusWithCosigner pairs a status row with its cosigner.
type StatusWithCosigner struct {
	Status   models.CosignerOpStatus
	Cosigner models.Cosigner
}

// ListCosignerOpStatusWithCosigners returns every status row of an
// operation joined with its cosigner.
func (s *Store) ListCosignerOpStatusWithCosigners(operationIdx int32) ([]StatusWithCosigner, error) {
	statuses, err := s.ListCosignerOpStatusByOperation(nil, operationIdx)
	if err != nil {
		return nil, err
	}
	result := make([]StatusWithCosigner, 0, len(statuses))
	for _, status := range statuses {
		cosigner, err := s.GetCosignerByIdx(status.CosignerIdx)
		if err != nil {
			return nil, err
		}
		if cosigner == nil {
			return nil, fmt.Errorf("cosigner op status entry missing cosigner %d", status.CosignerIdx)
		}
		result = append(result, StatusWithCosigner{Status: status, Cosigner: *cosigner})
	}
	return result, nil
}

// ListCosignerOpStatusByOperation returns every status row of an operation.
func (s *Store) ListCosignerOpStatusByOperation(tx *gorm.DB, operationIdx int32) ([]models.CosignerOpStatus, error) {
	var statuses []models.CosignerOpStatus
	if err := s.conn(tx).
		Where("operation_idx = ?", operationIdx).
		Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

// GetLastProcessedOpIdx returns the highest operation idx the cosigner has
// marked as processed, or 0 if they never processed anything.
func (s *Store) GetLastProcessedOpIdx(cosignerIdx int32) (int32, error) {
	var status models.CosignerOpStatus
	notFound, err := asNotFound(s.db.
		Where("cosigner_idx = ? AND processed_at IS NOT NULL", cosignerIdx).
		Order("operation_idx DESC").
		First(&status).Error)
	if err != nil {
		return 0, err
	}
	if notFound {
		return 0, nil
	}
	return status.OperationIdx, nil
}

// GetLastOperationIdx returns the idx of the newest operation, or nil if
// none was ever posted.
func (s *Store) GetLastOperationIdx() (*int32, error) {
	var op models.Operation
	notFound, err := asNotFound(s.db.Order("idx DESC").First(&op).Error)
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, nil
	}
	return &op.Idx, nil
}

// GetNextAddressIndex returns the counters row, created at startup.
func (s *Store) GetNextAddressIndex(tx *gorm.DB) (*models.NextAddressIndex, error) {
	var idx models.NextAddressIndex
	if err := s.conn(tx).First(&idx).Error; err != nil {
		return nil, err
	}
	return &idx, nil
}

// GetOpFileByIdx returns an operation file row by idx, or nil if unknown.
func (s *Store) GetOpFileByIdx(idx int32) (*models.OpFile, error) {
	var file models.OpFile
	notFound, err := asNotFound(s.db.First(&file, idx).Error)
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, nil
	}
	return &file, nil
}

// ListOpFilesByOperation returns every op_file row of an operation.
func (s *Store) ListOpFilesByOperation(operationIdx int32) ([]models.OpFile, error) {
	var files []models.OpFile
	if err := s.db.
		Where("operation_idx = ?", operationIdx).
		Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// GetOperationByIdx returns an operation by idx, or nil if unknown.
func (s *Store) GetOperationByIdx(idx int32) (*models.Operation, error) {
	var op models.Operation
	notFound, err := asNotFound(s.db.First(&op, idx).Error)
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, nil
	}
	return &op, nil
}

// HasPendingOperation reports whether any operation is still pending.
func (s *Store) HasPendingOperation() (bool, error) {
	var count int64
	if err := s.db.Model(&models.Operation{}).
		Where("status = ?", models.OperationStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasUnprocessedOperation reports whether the cosigner has any operation
// not yet marked as processed.
func (s *Store) HasUnprocessedOperation(cosignerIdx int32) (bool, error) {
	var count int64
	if err := s.db.Model(&models.CosignerOpStatus{}).
		Where("cosigner_idx = ? AND processed_at IS NULL", cosignerIdx).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

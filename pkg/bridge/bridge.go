// Package bridge is the coordination core: it owns the operation state
// machine, the approval thresholds, the address-index counters and the
// write serialization that keeps database and file store consistent.
package bridge

import (
	"sync"

	"github.com/rgb-tools/rgb-multisig-bridge/internal/logger"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/models"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/store"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/config"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/filestore"
)

// Bridge coordinates all wallet operations for one cosigner community.
//
// All mutating entry points serialize on writeLock: the lock is taken
// before the precondition reads and held through the transaction commit, so
// precondition checks can never race with a concurrent mutation.
type Bridge struct {
	store *store.Store
	files *filestore.Store

	// read-only after New
	cosignersByXpub  map[string]int32
	cosignersByIdx   map[int32]string
	thresholdColored uint8
	thresholdVanilla uint8
	rgbLibVersion    string

	writeLock sync.Mutex
}

// New builds the Bridge on an opened store and file store.
//
// On a fresh database it seeds the config, the cosigner set and the address
// counters; on a restart it verifies that thresholds and cosigners have not
// changed. Seeding failures indicate a database this process does not own.
func New(st *store.Store, files *filestore.Store, params *config.Params) (*Bridge, error) {
	cosigners, err := setupDatabase(st, params)
	if err != nil {
		return nil, err
	}

	byXpub := make(map[string]int32, len(cosigners))
	byIdx := make(map[int32]string, len(cosigners))
	for _, c := range cosigners {
		byXpub[c.Xpub] = c.Idx
		byIdx[c.Idx] = c.Xpub
	}

	return &Bridge{
		store:            st,
		files:            files,
		cosignersByXpub:  byXpub,
		cosignersByIdx:   byIdx,
		thresholdColored: params.ThresholdColored,
		thresholdVanilla: params.ThresholdVanilla,
		rgbLibVersion:    params.RgbLibVersion,
	}, nil
}

func setupDatabase(st *store.Store, params *config.Params) ([]models.Cosigner, error) {
	dbConfig, err := st.GetConfig()
	if err != nil {
		return nil, err
	}

	if dbConfig != nil {
		// already started at least once
		if dbConfig.ThresholdColored != params.ThresholdColored ||
			dbConfig.ThresholdVanilla != params.ThresholdVanilla {
			return nil, &config.InvalidThresholdError{
				Reason: "cannot change threshold on already configured service"}
		}
		cosigners, err := st.ListCosigners()
		if err != nil {
			return nil, err
		}
		dbXpubs := make(map[string]struct{}, len(cosigners))
		for _, c := range cosigners {
			dbXpubs[c.Xpub] = struct{}{}
		}
		if len(dbXpubs) != len(params.CosignerXpubs) {
			return nil, config.ErrCannotChangeCosigners
		}
		for _, xpub := range params.CosignerXpubs {
			if _, ok := dbXpubs[xpub]; !ok {
				return nil, config.ErrCannotChangeCosigners
			}
		}
		logger.Debug("database already configured", "cosigners", len(cosigners))
		return cosigners, nil
	}

	// first start
	idx, err := st.InsertConfig(&models.Config{
		ThresholdColored: params.ThresholdColored,
		ThresholdVanilla: params.ThresholdVanilla,
	})
	if err != nil {
		return nil, err
	}
	if idx != 1 {
		return nil, &config.InconsistentStateError{Reason: "there should not be a config entry"}
	}

	toInsert := make([]models.Cosigner, 0, len(params.CosignerXpubs))
	for _, xpub := range params.CosignerXpubs {
		toInsert = append(toInsert, models.Cosigner{Xpub: xpub})
	}
	count, err := st.InsertCosigners(toInsert)
	if err != nil {
		return nil, err
	}
	if count != int64(len(params.CosignerXpubs)) {
		return nil, &config.InconsistentStateError{Reason: "there should not be cosigners entries"}
	}
	cosigners, err := st.ListCosigners()
	if err != nil {
		return nil, err
	}

	idx, err = st.InsertNextAddressIndex(&models.NextAddressIndex{})
	if err != nil {
		return nil, err
	}
	if idx != 1 {
		return nil, &config.InconsistentStateError{Reason: "there should not be a next address entry"}
	}

	logger.Info("database initialized", "cosigners", len(cosigners))
	return cosigners, nil
}

// Files returns the content-addressed file store.
func (b *Bridge) Files() *filestore.Store {
	return b.files
}

// CosignerByXpub resolves a cosigner xpub to its idx.
func (b *Bridge) CosignerByXpub(xpub string) (int32, bool) {
	idx, ok := b.cosignersByXpub[xpub]
	return idx, ok
}

// NumCosigners returns the size of the cosigner set.
func (b *Bridge) NumCosigners() int {
	return len(b.cosignersByIdx)
}

// Info describes the bridge to clients.
type Info struct {
	MinRgbLibVersion string `json:"min_rgb_lib_version"`
	MaxRgbLibVersion string `json:"max_rgb_lib_version"`
	RgbLibVersion    string `json:"rgb_lib_version"`
	LastOperationIdx *int32 `json:"last_operation_idx"`
}

// Info returns version compatibility data and the newest operation idx.
func (b *Bridge) Info() (*Info, error) {
	last, err := b.store.GetLastOperationIdx()
	if err != nil {
		return nil, ErrDatabase(err)
	}
	return &Info{
		MinRgbLibVersion: config.MinRgbLibVersion,
		MaxRgbLibVersion: config.MaxRgbLibVersion,
		RgbLibVersion:    b.rgbLibVersion,
		LastOperationIdx: last,
	}, nil
}

// LastProcessedOpIdx returns the highest operation idx the cosigner marked
// as processed, 0 if none.
func (b *Bridge) LastProcessedOpIdx(cosignerIdx int32) (int32, error) {
	idx, err := b.store.GetLastProcessedOpIdx(cosignerIdx)
	if err != nil {
		return 0, ErrDatabase(err)
	}
	return idx, nil
}

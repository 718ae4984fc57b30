package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common/eventbus"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/events"
	"github.com/idena-network/idena-communities/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const dbFileName = "events.sqlite"

// Indexer mirrors block, extrinsic and community events into sqlite.
type Indexer struct {
	db    *gorm.DB
	mutex sync.Mutex
	log   log.Logger
}

// Open creates the index under cfg.Path, or in memory when the path is empty.
func Open(cfg *config.IndexerConfig) (*Indexer, error) {
	dsn := "file::memory:"
	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, os.ModePerm); err != nil {
			return nil, errors.Wrap(err, "failed to create indexer dir")
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", filepath.Join(cfg.Path, dbFileName))
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open indexer db")
	}
	sqlDb, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every connection to file::memory: opens a separate database
	sqlDb.SetMaxOpenConns(1)
	return New(db)
}

func New(db *gorm.DB) (*Indexer, error) {
	if err := db.AutoMigrate(migrateModels...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate indexer tables")
	}
	return &Indexer{
		db:  db,
		log: log.New("component", "indexer"),
	}, nil
}

// Subscribe attaches the indexer to the chain bus. Handlers run synchronously
// so rows are written in publication order.
func (i *Indexer) Subscribe(bus eventbus.Bus) error {
	if err := bus.Subscribe(events.AddBlockEventID, func(e eventbus.Event) {
		newBlockEvent := e.(*events.NewBlockEvent)
		if err := i.HandleBlock(newBlockEvent.Block, newBlockEvent.Events); err != nil {
			i.log.Error("Failed to index block", "err", err, "height", newBlockEvent.Block.Height())
		}
	}); err != nil {
		return err
	}
	if err := bus.Subscribe(events.ExtrinsicAppliedEventID, func(e eventbus.Event) {
		if err := i.HandleReceipt(e.(*events.ExtrinsicAppliedEvent)); err != nil {
			i.log.Error("Failed to index extrinsic", "err", err)
		}
	}); err != nil {
		return err
	}
	return bus.Subscribe(events.BlockchainResetEventID, func(e eventbus.Event) {
		header := e.(*events.BlockchainResetEvent).Header
		if err := i.Prune(header.Height); err != nil {
			i.log.Error("Failed to prune index", "err", err, "height", header.Height)
		}
	})
}

func (i *Indexer) HandleBlock(block *types.Block, blockEvents []eventbus.Event) error {
	var records []*CommunityEventRecord
	for seq, e := range blockEvents {
		communityEvent, ok := e.(events.CommunityEvent)
		if !ok {
			continue
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return errors.Wrapf(err, "failed to encode %v", e.EventID())
		}
		records = append(records, &CommunityEventRecord{
			Community: uint16(communityEvent.CommunityID()),
			Height:    block.Height(),
			Seq:       seq,
			EventID:   string(e.EventID()),
			Payload:   payload,
		})
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&BlockRecord{
			Height:     block.Height(),
			Hash:       block.Hash().Hex(),
			ParentHash: block.Header.ParentHash.Hex(),
			StateRoot:  block.Header.StateRoot.Hex(),
			Extrinsics: len(block.Extrinsics),
			Events:     len(blockEvents),
		}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(records).Error
	})
}

func (i *Indexer) HandleReceipt(receipt *events.ExtrinsicAppliedEvent) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.db.Create(&ExtrinsicRecord{
		Hash:    receipt.Hash.Hex(),
		Height:  receipt.Height,
		Index:   receipt.Index,
		Success: receipt.Success,
		Error:   receipt.Error,
	}).Error
}

// Prune drops every row above height.
func (i *Indexer) Prune(height uint64) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	err := i.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range migrateModels {
			if err := tx.Where("height > ?", height).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		i.log.Info("Index pruned", "height", height)
	}
	return err
}

// CommunityHistory returns up to limit events of the community starting at fromHeight, oldest first.
func (i *Indexer) CommunityHistory(community types.CommunityId, fromHeight uint64, limit int) ([]CommunityEventRecord, error) {
	var records []CommunityEventRecord
	result := i.db.
		Where("community = ? AND height >= ?", uint16(community), fromHeight).
		Order("height, seq").
		Limit(limit).
		Find(&records)
	return records, result.Error
}

// CountEvents counts the community events with the given id. An empty id counts all of them.
func (i *Indexer) CountEvents(community types.CommunityId, id eventbus.EventID) (int64, error) {
	var count int64
	query := i.db.Model(&CommunityEventRecord{}).Where("community = ?", uint16(community))
	if id != "" {
		query = query.Where("event_id = ?", string(id))
	}
	err := query.Count(&count).Error
	return count, err
}

// Extrinsic returns the latest receipt of the extrinsic hash, nil when it was never applied.
func (i *Indexer) Extrinsic(hash string) (*ExtrinsicRecord, error) {
	var record ExtrinsicRecord
	result := i.db.Where("hash = ?", hash).Order("height desc").Limit(1).Find(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &record, nil
}

func (i *Indexer) LastHeight() (uint64, error) {
	var height uint64
	err := i.db.Model(&BlockRecord{}).Select("COALESCE(MAX(height), 0)").Scan(&height).Error
	return height, err
}

func (i *Indexer) Close() error {
	sqlDb, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}

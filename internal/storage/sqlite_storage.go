package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffleworker/internal/blockchain"
	"raffleworker/internal/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const exportBatchSize = 100

type SqliteStorage struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSqliteStorage opens (creating when missing) the sqlite database at path and migrates it.
func NewSqliteStorage(path string) (*SqliteStorage, error) {
	logger.Debug("initializing database...", zap.String("path", path))

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	err = db.AutoMigrate(
		&Export{},
		&RaffleSnapshot{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database %s: %w", path, err)
	}

	logger.Debug("initializing database... done")
	return &SqliteStorage{
		db:  db,
		now: time.Now,
	}, nil
}

// ExportBlockchainData writes snapshot in one transaction and returns the export id.
func (s *SqliteStorage) ExportBlockchainData(ctx context.Context, snapshot Snapshot) (int64, error) {
	if snapshot.Data == nil {
		return 0, errors.New("export blockchain data: nil aggregate")
	}

	logger.Debug("export blockchain data...",
		zap.String("oracle address", snapshot.OracleAddress),
		zap.String("user address", snapshot.UserAddress),
		zap.Int("raffles", len(snapshot.Data.Raffles)),
	)

	export := &Export{
		OracleAddress:   snapshot.OracleAddress,
		UserAddress:     snapshot.UserAddress,
		RafflesQuantity: len(snapshot.Data.Raffles),
		CreatedAt:       s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(export).Error; err != nil {
			return err
		}

		if len(snapshot.Data.Raffles) == 0 {
			logger.Debug("no raffles to persist")
			return nil
		}

		rows := make([]*RaffleSnapshot, len(snapshot.Data.Raffles))
		for i := range snapshot.Data.Raffles {
			rows[i] = newRaffleSnapshot(export.ID, i, &snapshot.Data.Raffles[i])
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "export_id"}, {Name: "position"}},
			DoNothing: true,
		}).CreateInBatches(rows, exportBatchSize).Error
	})
	if err != nil {
		return 0, fmt.Errorf("export blockchain data: %w", err)
	}

	logger.Debug("export blockchain data... done", zap.Int64("export id", export.ID))
	return export.ID, nil
}

func newRaffleSnapshot(exportID int64, position int, raffle *blockchain.Raffle) *RaffleSnapshot {
	raffleData := raffle.RaffleData
	row := &RaffleSnapshot{
		ExportID:                    exportID,
		Position:                    position,
		RaffleAddress:               raffleData.Address,
		MinCandidateQuantity:        raffleData.MinCandidateQuantity,
		ConditionsDuration:          raffleData.ConditionsDuration,
		BlackTicketPurchased:        raffleData.Conditions.BlackTicketPurchased,
		WhiteTicketMinted:           raffleData.Conditions.WhiteTicketMinted,
		MinCandidateReachedLt:       raffleData.MinCandidateReachedLt,
		MinCandidateReachedUnixTime: raffleData.MinCandidateReachedUnixTime,
		CandidatesQuantity:          raffleData.CandidatesQuantity,
		ParticipantsQuantity:        raffleData.ParticipantsQuantity,
		WinnersQuantity:             raffleData.WinnersQuantity,
	}

	if candidate := raffle.RaffleCandidateData; candidate != nil {
		address := candidate.Address
		black := candidate.Conditions.BlackTicketPurchased
		white := candidate.Conditions.WhiteTicketMinted
		row.CandidateAddress = &address
		row.CandidateBlackTicketPurchased = &black
		row.CandidateWhiteTicketMinted = &white
		row.ParticipantIndex = candidate.ParticipantIndex
	}

	if participant := raffle.RaffleParticipantData; participant != nil {
		address := participant.Address
		row.ParticipantAddress = &address
		row.ParticipantUser = participant.UserAddress
		row.WinnerIndex = participant.WinnerIndex
	}

	return row
}

func (s *SqliteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

package storage

import (
	"context"

	"raffleworker/internal/blockchain"
)

// Storage is a write-only sink for built aggregates. Nothing written here is read back by the builder.
type Storage interface {
	ExportBlockchainData(ctx context.Context, snapshot Snapshot) (int64, error)
	Close() error
}

// Snapshot is one built aggregate together with the request that produced it.
type Snapshot struct {
	OracleAddress string
	UserAddress   string
	Data          *blockchain.BlockchainData
}

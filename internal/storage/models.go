package storage

import "time"

type Export struct {
	ID              int64     `gorm:"primaryKey"`
	OracleAddress   string    `gorm:"not null;index:idx_export_request"`
	UserAddress     string    `gorm:"not null;index:idx_export_request"`
	RafflesQuantity int       `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

// RaffleSnapshot is one raffle entry of an export. Position keeps the discovery order, so
// duplicate addresses within an export stay distinct rows.
type RaffleSnapshot struct {
	ID       int64 `gorm:"primaryKey"`
	ExportID int64 `gorm:"not null;uniqueIndex:idx_export_position"`
	Position int   `gorm:"not null;uniqueIndex:idx_export_position"`

	RaffleAddress               string `gorm:"not null;index"`
	MinCandidateQuantity        uint64 `gorm:"default:0"`
	ConditionsDuration          uint64 `gorm:"default:0"`
	BlackTicketPurchased        uint8  `gorm:"default:0"`
	WhiteTicketMinted           uint8  `gorm:"default:0"`
	MinCandidateReachedLt       uint64 `gorm:"default:0"`
	MinCandidateReachedUnixTime int64  `gorm:"default:0"`
	CandidatesQuantity          uint64 `gorm:"default:0"`
	ParticipantsQuantity        uint64 `gorm:"default:0"`
	WinnersQuantity             uint64 `gorm:"default:0"`

	CandidateAddress              *string
	CandidateBlackTicketPurchased *uint8
	CandidateWhiteTicketMinted    *uint8
	ParticipantIndex              *uint64

	ParticipantAddress *string
	ParticipantUser    *string
	WinnerIndex        *uint64
}

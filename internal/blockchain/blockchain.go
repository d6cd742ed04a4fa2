package blockchain

// RaffleConditions is both the qualification threshold of a raffle and a candidate's progress towards it.
type RaffleConditions struct {
	BlackTicketPurchased uint8 `json:"blackTicketPurchased"`
	WhiteTicketMinted    uint8 `json:"whiteTicketMinted"`
}

type RaffleData struct {
	Address                     string           `json:"address"`
	MinCandidateQuantity        uint64           `json:"minCandidateQuantity"`
	ConditionsDuration          uint64           `json:"conditionsDuration"`
	Conditions                  RaffleConditions `json:"conditions"`
	MinCandidateReachedLt       uint64           `json:"minCandidateReachedLt"`
	MinCandidateReachedUnixTime int64            `json:"minCandidateReachedUnixTime"`
	CandidatesQuantity          uint64           `json:"candidatesQuantity"`
	ParticipantsQuantity        uint64           `json:"participantsQuantity"`
	WinnersQuantity             uint64           `json:"winnersQuantity"`
	Winners                     []string         `json:"winners"`
}

// RaffleCandidateData is the registration record of one user. ParticipantIndex stays nil until the
// candidate is promoted.
type RaffleCandidateData struct {
	Address          string           `json:"address"`
	Conditions       RaffleConditions `json:"conditions"`
	ParticipantIndex *uint64          `json:"participantIndex,omitempty"`
}

type RaffleParticipantData struct {
	Address          string  `json:"address"`
	ParticipantIndex uint64  `json:"participantIndex"`
	UserAddress      *string `json:"userAddress,omitempty"`
	WinnerIndex      *uint64 `json:"winnerIndex,omitempty"`
}

type Raffle struct {
	RaffleData            RaffleData              `json:"raffleData"`
	RaffleCandidateData   *RaffleCandidateData    `json:"raffleCandidateData,omitempty"`
	RaffleParticipantData *RaffleParticipantData  `json:"raffleParticipantData,omitempty"`
	WinnersData           []RaffleParticipantData `json:"winnersData"`
}

// BlockchainData holds raffles in discovery order. The same raffle address may appear more than once.
type BlockchainData struct {
	Raffles []Raffle `json:"raffles"`
}

package tracker

const GlobalLimitWindowSize = 100

const (
	methodGetAccount       = "getAccount"
	methodGetAccountTraces = "getAccountTraces"
	methodGetTrace         = "getTrace"

	methodRaffleData               = "raffleData"
	methodRaffleCandidateData      = "raffleCandidateData"
	methodRaffleParticipantData    = "raffleParticipantData"
	methodRaffleCandidateAddress   = "raffleCandidateAddress"
	methodRaffleParticipantAddress = "raffleParticipantAddress"
)

const (
	argTypeSlice   = "slice"
	argTypeTinyInt = "tinyint"
)

const (
	recordCandidate   = "candidate"
	recordParticipant = "participant"
)

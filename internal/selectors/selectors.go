package selectors

import (
	"math"
	"regexp"
	"strings"
	"time"

	"raffleworker/internal/blockchain"
)

type RaffleState int

const (
	RaffleStateQualification RaffleState = iota
	RaffleStateWaiting
	RaffleStateConditions
	RaffleStateTimer
	RaffleStateParticipation
	RaffleStateResult
)

var raffleStateSegments = map[RaffleState]string{
	RaffleStateQualification: "qualification",
	RaffleStateWaiting:       "waiting",
	RaffleStateConditions:    "conditions",
	RaffleStateTimer:         "timer",
	RaffleStateParticipation: "participation",
	RaffleStateResult:        "result",
}

// String returns the route segment of the raffle details page for the state.
func (s RaffleState) String() string {
	if segment, ok := raffleStateSegments[s]; ok {
		return segment
	}
	return "unknown"
}

func (s RaffleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type RaffleProgressStep int

const (
	RaffleProgressStepWaiting RaffleProgressStep = iota
	RaffleProgressStepTimer
	RaffleProgressStepParticipation
)

func (s RaffleProgressStep) String() string {
	switch s {
	case RaffleProgressStepWaiting:
		return "waiting"
	case RaffleProgressStepTimer:
		return "timer"
	case RaffleProgressStepParticipation:
		return "participation"
	default:
		return "unknown"
	}
}

func (s RaffleProgressStep) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// addressMatcher compares raffle addresses case-insensitively. Addresses that parse as
// accounts also match across raw and user-friendly forms.
type addressMatcher struct {
	address string
	raw     string
}

func newAddressMatcher(address string) addressMatcher {
	raw, err := blockchain.NormalizeAddress(address)
	if err != nil {
		raw = ""
	}

	return addressMatcher{address: address, raw: raw}
}

func (m addressMatcher) match(address string) bool {
	if strings.EqualFold(m.address, address) {
		return true
	}
	if m.raw == "" {
		return false
	}

	raw, err := blockchain.NormalizeAddress(address)
	return err == nil && raw == m.raw
}

// SelectRaffle returns the last raffle with the given address. Later entries win over earlier
// duplicates.
func SelectRaffle(data *blockchain.BlockchainData, address string) (*blockchain.Raffle, bool) {
	if data == nil {
		return nil, false
	}

	matcher := newAddressMatcher(address)
	for i := len(data.Raffles) - 1; i >= 0; i-- {
		if matcher.match(data.Raffles[i].RaffleData.Address) {
			return &data.Raffles[i], true
		}
	}

	return nil, false
}

// SelectLaunchedRafflesData returns the data of raffles without winners, in aggregate order.
func SelectLaunchedRafflesData(data *blockchain.BlockchainData) []blockchain.RaffleData {
	return selectRafflesData(data, func(raffleData *blockchain.RaffleData) bool {
		return raffleData.WinnersQuantity == 0
	})
}

// SelectCompletedRafflesData returns the data of raffles with at least one winner, in aggregate order.
func SelectCompletedRafflesData(data *blockchain.BlockchainData) []blockchain.RaffleData {
	return selectRafflesData(data, func(raffleData *blockchain.RaffleData) bool {
		return raffleData.WinnersQuantity > 0
	})
}

func selectRafflesData(data *blockchain.BlockchainData, keep func(*blockchain.RaffleData) bool) []blockchain.RaffleData {
	rafflesData := make([]blockchain.RaffleData, 0)
	if data == nil {
		return rafflesData
	}

	for i := range data.Raffles {
		if keep(&data.Raffles[i].RaffleData) {
			rafflesData = append(rafflesData, data.Raffles[i].RaffleData)
		}
	}

	return rafflesData
}

// SelectUserRaffles returns the raffles the user registered in.
func SelectUserRaffles(data *blockchain.BlockchainData) []blockchain.Raffle {
	raffles := make([]blockchain.Raffle, 0)
	if data == nil {
		return raffles
	}

	for _, raffle := range data.Raffles {
		if raffle.RaffleCandidateData != nil {
			raffles = append(raffles, raffle)
		}
	}

	return raffles
}

// SelectRaffleRemainingSeconds returns the whole seconds left in the conditions window, rounded up.
func SelectRaffleRemainingSeconds(raffle *blockchain.Raffle, now time.Time) int64 {
	deadline := saturatingAdd(raffle.RaffleData.MinCandidateReachedUnixTime, raffle.RaffleData.ConditionsDuration)

	// now.Unix() truncates, so the difference is already rounded up.
	nowUnix := now.Unix()
	if deadline <= nowUnix {
		return 0
	}
	if nowUnix < 0 && deadline > math.MaxInt64+nowUnix {
		return math.MaxInt64
	}

	return deadline - nowUnix
}

// saturatingAdd returns unixTime+duration, capped at math.MaxInt64.
func saturatingAdd(unixTime int64, duration uint64) int64 {
	var headroom uint64
	if unixTime >= 0 {
		headroom = uint64(math.MaxInt64 - unixTime)
	} else {
		headroom = uint64(math.MaxInt64) + uint64(-(unixTime + 1)) + 1
	}

	if duration > headroom {
		return math.MaxInt64
	}
	return int64(uint64(unixTime) + duration)
}

// SelectRaffleState classifies the last raffle with the given address. The checks run in a fixed
// order and the first one that holds wins.
func SelectRaffleState(data *blockchain.BlockchainData, address string, now time.Time) (RaffleState, bool) {
	raffle, ok := SelectRaffle(data, address)
	if !ok {
		return 0, false
	}

	return RaffleStateOf(raffle, now), true
}

func RaffleStateOf(raffle *blockchain.Raffle, now time.Time) RaffleState {
	raffleData := raffle.RaffleData
	raffleCandidateData := raffle.RaffleCandidateData

	if raffleCandidateData == nil {
		return RaffleStateQualification
	}

	if raffleData.CandidatesQuantity < raffleData.MinCandidateQuantity {
		return RaffleStateWaiting
	}

	if raffleCandidateData.Conditions != raffleData.Conditions {
		return RaffleStateConditions
	}

	if SelectRaffleRemainingSeconds(raffle, now) > 0 {
		return RaffleStateTimer
	}

	// Same predicate as the waiting check, kept in place.
	if raffleData.CandidatesQuantity < raffleData.MinCandidateQuantity {
		return RaffleStateParticipation
	}

	return RaffleStateResult
}

// SelectRaffleProgressStep maps a state to its timeline step. Only waiting, timer and participation
// have one.
func SelectRaffleProgressStep(state RaffleState) (RaffleProgressStep, bool) {
	switch state {
	case RaffleStateWaiting:
		return RaffleProgressStepWaiting, true
	case RaffleStateTimer:
		return RaffleProgressStepTimer, true
	case RaffleStateParticipation:
		return RaffleProgressStepParticipation, true
	default:
		return 0, false
	}
}

var truncatableAddress = regexp.MustCompile(`^([a-zA-Z0-9\-_]{20})[a-zA-Z0-9\-_]+([a-zA-Z0-9\-_]{4})$`)

// TruncateAddress shortens a user-friendly address to its first 20 and last 4 characters.
// Anything else is returned unchanged.
func TruncateAddress(address string) string {
	match := truncatableAddress.FindStringSubmatch(address)
	if match == nil {
		return address
	}

	return match[1] + "…" + match[2]
}

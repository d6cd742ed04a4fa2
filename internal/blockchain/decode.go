package blockchain

import (
	"errors"
	"fmt"

	"github.com/tonkeeper/tonapi-go"
	"github.com/tonkeeper/tongo/boc"
)

const (
	conditionFieldBits   = 8
	conditionPaddingBits = 240
)

// DecodeConditions reads the packed conditions slot: black tickets first, white tickets second.
// The trailing padding is never interpreted.
func DecodeConditions(cell *boc.Cell) (RaffleConditions, error) {
	blackTicketPurchased, err := cell.ReadUint(conditionFieldBits)
	if err != nil {
		return RaffleConditions{}, fmt.Errorf("black ticket purchased: %w", err)
	}

	whiteTicketMinted, err := cell.ReadUint(conditionFieldBits)
	if err != nil {
		return RaffleConditions{}, fmt.Errorf("white ticket minted: %w", err)
	}

	return RaffleConditions{
		BlackTicketPurchased: uint8(blackTicketPurchased),
		WhiteTicketMinted:    uint8(whiteTicketMinted),
	}, nil
}

// EncodeConditions packs conditions into the 256 bit layout the raffle contracts store.
func EncodeConditions(conditions RaffleConditions) (*boc.Cell, error) {
	cell := boc.NewCell()

	if err := cell.WriteUint(uint64(conditions.BlackTicketPurchased), conditionFieldBits); err != nil {
		return nil, err
	}

	if err := cell.WriteUint(uint64(conditions.WhiteTicketMinted), conditionFieldBits); err != nil {
		return nil, err
	}

	if err := cell.WriteUint(0, conditionPaddingBits); err != nil {
		return nil, err
	}

	return cell, nil
}

func (r *StackReader) ReadConditions() (RaffleConditions, error) {
	cell, err := r.ReadCell()
	if err != nil {
		return RaffleConditions{}, err
	}

	return DecodeConditions(cell)
}

// DecodeRaffleData decodes the raffleData get-method result. The first three fields are required,
// the counters after them were added to the contract later and default to zero.
func DecodeRaffleData(address string, stack []tonapi.TvmStackRecord) (*RaffleData, error) {
	reader := NewStackReader(stack)
	raffleData := &RaffleData{
		Address: address,
		Winners: []string{},
	}

	var err error
	if raffleData.MinCandidateQuantity, err = reader.ReadUint64(); err != nil {
		return nil, fmt.Errorf("raffle data: min candidate quantity: %w", err)
	}

	if raffleData.ConditionsDuration, err = reader.ReadUint64(); err != nil {
		return nil, fmt.Errorf("raffle data: conditions duration: %w", err)
	}

	if raffleData.Conditions, err = reader.ReadConditions(); err != nil {
		return nil, fmt.Errorf("raffle data: conditions: %w", err)
	}

	if raffleData.MinCandidateReachedLt, _, err = reader.ReadOptionalUint64(); err != nil {
		return nil, fmt.Errorf("raffle data: min candidate reached lt: %w", err)
	}

	if raffleData.MinCandidateReachedUnixTime, _, err = reader.ReadOptionalInt64(); err != nil {
		return nil, fmt.Errorf("raffle data: min candidate reached unix time: %w", err)
	}

	if raffleData.CandidatesQuantity, _, err = reader.ReadOptionalUint64(); err != nil {
		return nil, fmt.Errorf("raffle data: candidates quantity: %w", err)
	}

	if raffleData.ParticipantsQuantity, _, err = reader.ReadOptionalUint64(); err != nil {
		return nil, fmt.Errorf("raffle data: participants quantity: %w", err)
	}

	if raffleData.WinnersQuantity, _, err = reader.ReadOptionalUint64(); err != nil {
		return nil, fmt.Errorf("raffle data: winners quantity: %w", err)
	}

	return raffleData, nil
}

func DecodeRaffleCandidateData(address string, stack []tonapi.TvmStackRecord) (*RaffleCandidateData, error) {
	reader := NewStackReader(stack)
	raffleCandidateData := &RaffleCandidateData{Address: address}

	var err error
	if raffleCandidateData.Conditions, err = reader.ReadConditions(); err != nil {
		return nil, fmt.Errorf("raffle candidate data: conditions: %w", err)
	}

	participantIndex, ok, err := reader.ReadOptionalUint64()
	if err != nil {
		return nil, fmt.Errorf("raffle candidate data: participant index: %w", err)
	}

	if ok {
		raffleCandidateData.ParticipantIndex = &participantIndex
	}

	return raffleCandidateData, nil
}

func DecodeRaffleParticipantData(address string, stack []tonapi.TvmStackRecord) (*RaffleParticipantData, error) {
	reader := NewStackReader(stack)
	raffleParticipantData := &RaffleParticipantData{Address: address}

	var err error
	if raffleParticipantData.ParticipantIndex, err = reader.ReadUint64(); err != nil {
		return nil, fmt.Errorf("raffle participant data: participant index: %w", err)
	}

	userAddressCell, ok, err := reader.ReadOptionalCell()
	if err != nil {
		return nil, fmt.Errorf("raffle participant data: user address: %w", err)
	}

	if ok {
		userAccountID, err := ReadAddressCell(userAddressCell)
		switch {
		case err == nil:
			userAddress := userAccountID.ToRaw()
			raffleParticipantData.UserAddress = &userAddress
		case !errors.Is(err, ErrNoAddress):
			return nil, fmt.Errorf("raffle participant data: user address: %w", err)
		}
	}

	winnerIndex, ok, err := reader.ReadOptionalUint64()
	if err != nil {
		return nil, fmt.Errorf("raffle participant data: winner index: %w", err)
	}

	if ok {
		raffleParticipantData.WinnerIndex = &winnerIndex
	}

	return raffleParticipantData, nil
}

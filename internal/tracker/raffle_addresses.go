package tracker

import (
	"context"
	"fmt"
	"strconv"

	"raffleworker/internal/blockchain"
	"raffleworker/internal/logger"

	"github.com/tonkeeper/tonapi-go"
	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"
)

// ResolveCandidateAddress asks the raffle for the candidate contract address of userAccountID.
func (t *Tracker) ResolveCandidateAddress(ctx context.Context, raffleAccountID ton.AccountID, userAccountID ton.AccountID) (ton.AccountID, error) {
	stack, err := t.execGetMethodWithArgs(ctx, raffleAccountID, methodRaffleCandidateAddress,
		tonapi.ExecGetMethodArg{Value: userAccountID.ToRaw(), Type: argTypeSlice},
	)
	if err != nil {
		return ton.AccountID{}, err
	}

	raffleCandidateAccountID, err := lastAddress(methodRaffleCandidateAddress, stack)
	if err != nil {
		return ton.AccountID{}, err
	}

	logger.Debug("resolve candidate address: done",
		zap.String("raffle address", raffleAccountID.ToRaw()),
		zap.String("raffle candidate address", raffleCandidateAccountID.ToRaw()),
	)
	return raffleCandidateAccountID, nil
}

// ResolveParticipantAddress asks the raffle for the participant contract address at participantIndex.
func (t *Tracker) ResolveParticipantAddress(ctx context.Context, raffleAccountID ton.AccountID, participantIndex uint64) (ton.AccountID, error) {
	stack, err := t.execGetMethodWithArgs(ctx, raffleAccountID, methodRaffleParticipantAddress,
		tonapi.ExecGetMethodArg{Value: strconv.FormatUint(participantIndex, 10), Type: argTypeTinyInt},
	)
	if err != nil {
		return ton.AccountID{}, err
	}

	raffleParticipantAccountID, err := lastAddress(methodRaffleParticipantAddress, stack)
	if err != nil {
		return ton.AccountID{}, err
	}

	logger.Debug("resolve participant address: done",
		zap.String("raffle address", raffleAccountID.ToRaw()),
		zap.Uint64("participant index", participantIndex),
		zap.String("raffle participant address", raffleParticipantAccountID.ToRaw()),
	)
	return raffleParticipantAccountID, nil
}

func lastAddress(method string, stack []tonapi.TvmStackRecord) (ton.AccountID, error) {
	if len(stack) == 0 {
		return ton.AccountID{}, fmt.Errorf("%s: %w", method, ErrEmptyStack)
	}

	accountID, err := blockchain.DecodeLastAddress(stack)
	if err != nil {
		return ton.AccountID{}, fmt.Errorf("%s: %w", method, err)
	}

	return accountID, nil
}

package tracker

import (
	"context"

	"raffleworker/internal/blockchain"
	"raffleworker/internal/logger"

	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"
)

func (t *Tracker) GetRaffleData(ctx context.Context, raffleAccountID ton.AccountID) (*blockchain.RaffleData, error) {
	stack, err := t.execGetMethod(ctx, raffleAccountID, methodRaffleData)
	if err != nil {
		return nil, err
	}

	raffleData, err := blockchain.DecodeRaffleData(raffleAccountID.ToRaw(), stack)
	if err != nil {
		return nil, err
	}

	logger.Debug("get raffle data: done",
		zap.String("raffle address", raffleData.Address),
		zap.Int("stack length", len(stack)),
		zap.Uint64("candidates quantity", raffleData.CandidatesQuantity),
		zap.Uint64("winners quantity", raffleData.WinnersQuantity),
	)
	return raffleData, nil
}

func (t *Tracker) GetRaffleCandidateData(ctx context.Context, raffleCandidateAccountID ton.AccountID) (*blockchain.RaffleCandidateData, error) {
	stack, err := t.execGetMethod(ctx, raffleCandidateAccountID, methodRaffleCandidateData)
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeRaffleCandidateData(raffleCandidateAccountID.ToRaw(), stack)
}

func (t *Tracker) GetRaffleParticipantData(ctx context.Context, raffleParticipantAccountID ton.AccountID) (*blockchain.RaffleParticipantData, error) {
	stack, err := t.execGetMethod(ctx, raffleParticipantAccountID, methodRaffleParticipantData)
	if err != nil {
		return nil, err
	}

	return blockchain.DecodeRaffleParticipantData(raffleParticipantAccountID.ToRaw(), stack)
}

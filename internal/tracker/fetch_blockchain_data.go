package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffleworker/internal/blockchain"
	"raffleworker/internal/logger"

	"github.com/tonkeeper/tonapi-go"
	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"
)

// FetchBlockchainData scans the oracle history and builds the raffle view of userAddress.
// Calls are issued one after another. Raffles are kept in discovery order without deduplication.
func (t *Tracker) FetchBlockchainData(ctx context.Context, oracleAddress string, userAddress string) (data *blockchain.BlockchainData, err error) {
	startedAt := time.Now()
	defer func() {
		raffles := 0
		if data != nil {
			raffles = len(data.Raffles)
		}
		t.metrics.ObserveBuild(time.Since(startedAt), raffles, err)
	}()

	oracleAccountID, err := ton.ParseAccountID(oracleAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch blockchain data: oracle address %q: %w", oracleAddress, err)
	}

	userAccountID, err := ton.ParseAccountID(userAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch blockchain data: user address %q: %w", userAddress, err)
	}

	logger.Debug("fetch blockchain data: collect raffles...",
		zap.String("oracle address", oracleAccountID.ToRaw()),
		zap.String("user address", userAccountID.ToRaw()),
	)

	data = &blockchain.BlockchainData{Raffles: make([]blockchain.Raffle, 0)}

	var beforeLt int64 = 0
	for page := 1; ; page++ {
		logger.Debug("fetch blockchain data: collect traces... iteration", zap.Int("page", page), zap.Int64("current beforeLt", beforeLt))
		accountTracesResult, err := call(ctx, t, methodGetAccountTraces, func(ctx context.Context) (*tonapi.TraceIDs, error) {
			return t.client.GetAccountTraces(ctx, tonapi.GetAccountTracesParams{
				AccountID: oracleAccountID.ToRaw(),
				Limit:     tonapi.NewOptInt(t.pageLimit),
				BeforeLt: tonapi.OptInt64{
					Value: beforeLt,
					Set:   beforeLt > 0,
				},
			})
		})

		if err != nil {
			return nil, err
		}

		pageCursor := beforeLt
		for _, traceID := range accountTracesResult.GetTraces() {
			trace, err := call(ctx, t, methodGetTrace, func(ctx context.Context) (*tonapi.Trace, error) {
				return t.client.GetTrace(ctx, tonapi.GetTraceParams{TraceID: traceID.GetID()})
			})

			if err != nil {
				return nil, err
			}

			beforeLt = trace.Transaction.GetLt()

			for _, message := range oracleOutMessages(trace, oracleAccountID) {
				raffleAccountID, ok := t.raffleDeployment(message)
				if !ok {
					continue
				}

				raffle, err := t.collectRaffle(ctx, raffleAccountID, userAccountID)
				if err != nil {
					return nil, err
				}

				data.Raffles = append(data.Raffles, *raffle)
			}
		}

		traceCount := len(accountTracesResult.GetTraces())
		if traceCount < t.pageLimit {
			logger.Debug("fetch blockchain data: exit condition reached", zap.Int("trace count", traceCount))
			break
		}

		if pageCursor > 0 && beforeLt >= pageCursor {
			logger.Warn("fetch blockchain data: trace cursor did not move back, stopping pagination", zap.Int64("beforeLt", beforeLt))
			break
		}
	}

	logger.Info("fetch blockchain data: done",
		zap.String("oracle address", oracleAccountID.ToRaw()),
		zap.String("user address", userAccountID.ToRaw()),
		zap.Int("raffles", len(data.Raffles)),
	)
	return data, nil
}

// walkTraces visits trace and its children depth first.
func walkTraces(trace *tonapi.Trace, callback func(*tonapi.Trace)) {
	if trace == nil {
		return
	}

	callback(trace)

	for i := range trace.Children {
		walkTraces(&trace.Children[i], callback)
	}
}

// oracleOutMessages returns the outgoing messages of every oracle transaction of trace, in trace order.
func oracleOutMessages(trace *tonapi.Trace, oracleAccountID ton.AccountID) []tonapi.Message {
	var messages []tonapi.Message

	walkTraces(trace, func(inner *tonapi.Trace) {
		accountID, err := ton.ParseAccountID(inner.Transaction.Account.Address)
		if err != nil || accountID != oracleAccountID {
			return
		}

		messages = append(messages, inner.Transaction.OutMsgs...)
	})

	return messages
}

// raffleDeployment reports whether message deploys the raffle contract and returns its address.
func (t *Tracker) raffleDeployment(message tonapi.Message) (ton.AccountID, bool) {
	if message.Bounced {
		return ton.AccountID{}, false
	}

	stateInit, ok := message.Init.Get()
	if !ok {
		return ton.AccountID{}, false
	}

	codeHash, err := blockchain.StateInitCodeHash(stateInit.Boc)
	if err != nil {
		logger.Debug("fetch blockchain data: state init cannot be processed, skip", zap.String("message hash", message.Hash), zap.Error(err))
		return ton.AccountID{}, false
	}

	if codeHash != t.codeHash {
		return ton.AccountID{}, false
	}

	destination, ok := message.Destination.Get()
	if !ok {
		return ton.AccountID{}, false
	}

	raffleAccountID, err := ton.ParseAccountID(destination.Address)
	if err != nil {
		logger.Debug("fetch blockchain data: invalid raffle address, skip", zap.String("address", destination.Address), zap.Error(err))
		return ton.AccountID{}, false
	}

	return raffleAccountID, true
}

// collectRaffle fetches the raffle itself, which must succeed, and the user records, which may be absent.
func (t *Tracker) collectRaffle(ctx context.Context, raffleAccountID ton.AccountID, userAccountID ton.AccountID) (*blockchain.Raffle, error) {
	raffleData, err := t.GetRaffleData(ctx, raffleAccountID)
	if err != nil {
		return nil, fmt.Errorf("raffle %s: %w", raffleAccountID.ToRaw(), err)
	}

	raffle := &blockchain.Raffle{
		RaffleData:  *raffleData,
		WinnersData: make([]blockchain.RaffleParticipantData, 0),
	}

	raffleCandidateData, err := t.collectRaffleCandidateData(ctx, raffleAccountID, userAccountID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		t.skipRecord(recordCandidate, raffleAccountID, err)
		return raffle, nil
	}

	raffle.RaffleCandidateData = raffleCandidateData
	if raffleCandidateData.ParticipantIndex == nil {
		return raffle, nil
	}

	raffleParticipantData, err := t.collectRaffleParticipantData(ctx, raffleAccountID, *raffleCandidateData.ParticipantIndex)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		t.skipRecord(recordParticipant, raffleAccountID, err)
		return raffle, nil
	}

	raffle.RaffleParticipantData = raffleParticipantData
	return raffle, nil
}

func (t *Tracker) collectRaffleCandidateData(ctx context.Context, raffleAccountID ton.AccountID, userAccountID ton.AccountID) (*blockchain.RaffleCandidateData, error) {
	raffleCandidateAccountID, err := t.ResolveCandidateAddress(ctx, raffleAccountID, userAccountID)
	if err != nil {
		return nil, err
	}

	return t.GetRaffleCandidateData(ctx, raffleCandidateAccountID)
}

func (t *Tracker) collectRaffleParticipantData(ctx context.Context, raffleAccountID ton.AccountID, participantIndex uint64) (*blockchain.RaffleParticipantData, error) {
	raffleParticipantAccountID, err := t.ResolveParticipantAddress(ctx, raffleAccountID, participantIndex)
	if err != nil {
		return nil, err
	}

	return t.GetRaffleParticipantData(ctx, raffleParticipantAccountID)
}

func (t *Tracker) skipRecord(record string, raffleAccountID ton.AccountID, err error) {
	if errors.Is(err, ErrNotDeployed) {
		logger.Debug("fetch blockchain data: record not deployed",
			zap.String("record", record),
			zap.String("raffle address", raffleAccountID.ToRaw()),
		)
		t.metrics.ObserveSubRecordFailure(record, "not deployed")
		return
	}

	logger.Warn("fetch blockchain data: record cannot be fetched, skip",
		zap.String("record", record),
		zap.String("raffle address", raffleAccountID.ToRaw()),
		zap.Error(err),
	)
	t.metrics.ObserveSubRecordFailure(record, "error")
}

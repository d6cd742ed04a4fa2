package tracker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"raffleworker/internal/blockchain"
	"raffleworker/internal/retry"
	"raffleworker/internal/testutil"

	"github.com/tonkeeper/tonapi-go"
	"github.com/tonkeeper/tongo/ton"
)

type pageResponse struct {
	traces []tonapi.TraceID
	err    error
}

type getMethodResponse struct {
	stack []tonapi.TvmStackRecord
	err   error
}

// fakeClient serves traces and get methods from memory. Unknown get methods answer 404.
type fakeClient struct {
	mu sync.Mutex

	pages     []pageResponse
	traces    map[string]*tonapi.Trace
	traceErrs map[string]error
	methods   map[string]getMethodResponse
	account   *tonapi.Account

	traceRequests []tonapi.GetAccountTracesParams
	methodCalls   []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		traces:    make(map[string]*tonapi.Trace),
		traceErrs: make(map[string]error),
		methods:   make(map[string]getMethodResponse),
	}
}

func methodKey(accountID string, method string, args ...string) string {
	key := accountID + "/" + method
	for _, arg := range args {
		key += "/" + arg
	}
	return key
}

func notFoundError() error {
	return &tonapi.ErrorStatusCode{StatusCode: http.StatusNotFound, Response: tonapi.Error{Error: "entity not found"}}
}

func (f *fakeClient) GetAccount(_ context.Context, params tonapi.GetAccountParams) (*tonapi.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.account == nil || f.account.Address != params.AccountID {
		return nil, notFoundError()
	}
	return f.account, nil
}

func (f *fakeClient) GetAccountTraces(_ context.Context, params tonapi.GetAccountTracesParams) (*tonapi.TraceIDs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := len(f.traceRequests)
	f.traceRequests = append(f.traceRequests, params)

	if call >= len(f.pages) {
		return &tonapi.TraceIDs{Traces: []tonapi.TraceID{}}, nil
	}
	if f.pages[call].err != nil {
		return nil, f.pages[call].err
	}
	return &tonapi.TraceIDs{Traces: f.pages[call].traces}, nil
}

func (f *fakeClient) GetTrace(_ context.Context, params tonapi.GetTraceParams) (*tonapi.Trace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.traceErrs[params.TraceID]; ok {
		return nil, err
	}

	trace, ok := f.traces[params.TraceID]
	if !ok {
		return nil, notFoundError()
	}
	return trace, nil
}

func (f *fakeClient) ExecGetMethodForBlockchainAccount(_ context.Context, params tonapi.ExecGetMethodForBlockchainAccountParams) (*tonapi.MethodExecutionResult, error) {
	return f.execute(methodKey(params.AccountID, params.MethodName, params.Args...))
}

func (f *fakeClient) ExecGetMethodWithBodyForBlockchainAccount(_ context.Context, request tonapi.OptExecGetMethodWithBodyForBlockchainAccountReq, params tonapi.ExecGetMethodWithBodyForBlockchainAccountParams) (*tonapi.MethodExecutionResult, error) {
	var args []string
	for _, arg := range request.Value.Args {
		args = append(args, fmt.Sprint(arg.Value))
	}
	return f.execute(methodKey(params.AccountID, params.MethodName, args...))
}

func (f *fakeClient) execute(key string) (*tonapi.MethodExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.methodCalls = append(f.methodCalls, key)

	response, ok := f.methods[key]
	if !ok {
		return nil, notFoundError()
	}
	if response.err != nil {
		return nil, response.err
	}
	return &tonapi.MethodExecutionResult{Success: true, ExitCode: 0, Stack: response.stack}, nil
}

// scenario wires one oracle, one user and helpers that deploy raffles into the fake history.
type scenario struct {
	t        *testing.T
	client   *fakeClient
	oracle   ton.AccountID
	user     ton.AccountID
	codeHash string
	init     string
	lt       int64
}

func newScenario(t *testing.T) *scenario {
	stateInit, codeHash := testutil.StateInit(t, 0x33010000)

	return &scenario{
		t:        t,
		client:   newFakeClient(),
		oracle:   testutil.AccountID("oracle"),
		user:     testutil.AccountID("user"),
		codeHash: codeHash,
		init:     stateInit,
		lt:       1_000_000,
	}
}

func (s *scenario) tracker(options ...Option) *Tracker {
	options = append([]Option{WithRetryPolicy(retry.RateLimitPolicy(time.Millisecond))}, options...)
	return NewTracker(s.client, s.codeHash, options...)
}

func (s *scenario) deployMessage(raffle ton.AccountID) tonapi.Message {
	return tonapi.Message{
		Destination: tonapi.NewOptAccountAddress(tonapi.AccountAddress{Address: raffle.ToRaw()}),
		Init:        tonapi.NewOptStateInit(tonapi.StateInit{Boc: s.init}),
		Hash:        "deploy-" + raffle.ToRaw(),
	}
}

// addTrace registers a trace whose root transaction belongs to the oracle and returns its id.
func (s *scenario) addTrace(id string, messages ...tonapi.Message) tonapi.TraceID {
	s.lt -= 10
	s.client.traces[id] = &tonapi.Trace{
		Transaction: tonapi.Transaction{
			Lt:      s.lt,
			Account: tonapi.AccountAddress{Address: s.oracle.ToRaw()},
			OutMsgs: messages,
		},
	}
	return tonapi.TraceID{ID: id}
}

func (s *scenario) raffle(seed string, data testutil.RaffleStack) ton.AccountID {
	raffle := testutil.AccountID(seed)
	s.client.methods[methodKey(raffle.ToRaw(), methodRaffleData)] = getMethodResponse{stack: data.Records(s.t)}
	return raffle
}

func (s *scenario) candidate(raffle ton.AccountID, conditions blockchain.RaffleConditions, participantIndex *uint64) ton.AccountID {
	candidate := testutil.AccountID("candidate-" + raffle.ToRaw())
	s.client.methods[methodKey(raffle.ToRaw(), methodRaffleCandidateAddress, s.user.ToRaw())] = getMethodResponse{
		stack: []tonapi.TvmStackRecord{testutil.AddressRecord(s.t, candidate)},
	}

	stack := []tonapi.TvmStackRecord{testutil.ConditionsRecord(s.t, conditions)}
	if participantIndex != nil {
		stack = append(stack, testutil.NumRecord(*participantIndex))
	} else {
		stack = append(stack, testutil.NullRecord())
	}
	s.client.methods[methodKey(candidate.ToRaw(), methodRaffleCandidateData)] = getMethodResponse{stack: stack}

	return candidate
}

func (s *scenario) participant(raffle ton.AccountID, participantIndex uint64) ton.AccountID {
	participant := testutil.AccountID(fmt.Sprintf("participant-%s-%d", raffle.ToRaw(), participantIndex))
	s.client.methods[methodKey(raffle.ToRaw(), methodRaffleParticipantAddress, fmt.Sprint(participantIndex))] = getMethodResponse{
		stack: []tonapi.TvmStackRecord{testutil.AddressRecord(s.t, participant)},
	}
	s.client.methods[methodKey(participant.ToRaw(), methodRaffleParticipantData)] = getMethodResponse{
		stack: []tonapi.TvmStackRecord{testutil.NumRecord(participantIndex), testutil.AddressRecord(s.t, s.user)},
	}

	return participant
}

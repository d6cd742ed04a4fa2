package tracker

import (
	"context"

	"github.com/tonkeeper/tonapi-go"
	"golang.org/x/time/rate"
)

// Client is the subset of the tonapi client the tracker reads from.
type Client interface {
	GetAccount(ctx context.Context, params tonapi.GetAccountParams) (*tonapi.Account, error)
	GetAccountTraces(ctx context.Context, params tonapi.GetAccountTracesParams) (*tonapi.TraceIDs, error)
	GetTrace(ctx context.Context, params tonapi.GetTraceParams) (*tonapi.Trace, error)
	ExecGetMethodForBlockchainAccount(ctx context.Context, params tonapi.ExecGetMethodForBlockchainAccountParams) (*tonapi.MethodExecutionResult, error)
	ExecGetMethodWithBodyForBlockchainAccount(ctx context.Context, request tonapi.OptExecGetMethodWithBodyForBlockchainAccountReq, params tonapi.ExecGetMethodWithBodyForBlockchainAccountParams) (*tonapi.MethodExecutionResult, error)
}

type tonapiClient struct {
	client *tonapi.Client
}

// NewTonapiClient creates a tonapi client for url. An empty token uses the anonymous tier.
func NewTonapiClient(url string, token string) (Client, error) {
	if url == "" {
		url = tonapi.TonApiURL
	}

	client, err := tonapi.NewClient(url, tonapi.WithToken(token))
	if err != nil {
		return nil, err
	}

	return &tonapiClient{client: client}, nil
}

func (c *tonapiClient) GetAccount(ctx context.Context, params tonapi.GetAccountParams) (*tonapi.Account, error) {
	return c.client.GetAccount(ctx, params)
}

func (c *tonapiClient) GetAccountTraces(ctx context.Context, params tonapi.GetAccountTracesParams) (*tonapi.TraceIDs, error) {
	return c.client.GetAccountTraces(ctx, params)
}

func (c *tonapiClient) GetTrace(ctx context.Context, params tonapi.GetTraceParams) (*tonapi.Trace, error) {
	return c.client.GetTrace(ctx, params)
}

func (c *tonapiClient) ExecGetMethodForBlockchainAccount(ctx context.Context, params tonapi.ExecGetMethodForBlockchainAccountParams) (*tonapi.MethodExecutionResult, error) {
	return c.client.ExecGetMethodForBlockchainAccount(ctx, params)
}

func (c *tonapiClient) ExecGetMethodWithBodyForBlockchainAccount(ctx context.Context, request tonapi.OptExecGetMethodWithBodyForBlockchainAccountReq, params tonapi.ExecGetMethodWithBodyForBlockchainAccountParams) (*tonapi.MethodExecutionResult, error) {
	return c.client.ExecGetMethodWithBodyForBlockchainAccount(ctx, request, params)
}

type throttledClient struct {
	client  Client
	limiter *rate.Limiter
}

// NewThrottledClient spaces calls to client at requestsPerSecond. A non-positive rate disables throttling.
func NewThrottledClient(client Client, requestsPerSecond float64, burst int) Client {
	if requestsPerSecond <= 0 {
		return client
	}
	if burst <= 0 {
		burst = 1
	}

	return &throttledClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (c *throttledClient) GetAccount(ctx context.Context, params tonapi.GetAccountParams) (*tonapi.Account, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.GetAccount(ctx, params)
}

func (c *throttledClient) GetAccountTraces(ctx context.Context, params tonapi.GetAccountTracesParams) (*tonapi.TraceIDs, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.GetAccountTraces(ctx, params)
}

func (c *throttledClient) GetTrace(ctx context.Context, params tonapi.GetTraceParams) (*tonapi.Trace, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.GetTrace(ctx, params)
}

func (c *throttledClient) ExecGetMethodForBlockchainAccount(ctx context.Context, params tonapi.ExecGetMethodForBlockchainAccountParams) (*tonapi.MethodExecutionResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.ExecGetMethodForBlockchainAccount(ctx, params)
}

func (c *throttledClient) ExecGetMethodWithBodyForBlockchainAccount(ctx context.Context, request tonapi.OptExecGetMethodWithBodyForBlockchainAccountReq, params tonapi.ExecGetMethodWithBodyForBlockchainAccountParams) (*tonapi.MethodExecutionResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.ExecGetMethodWithBodyForBlockchainAccount(ctx, request, params)
}

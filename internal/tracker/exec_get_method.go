package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tonkeeper/tonapi-go"
	"github.com/tonkeeper/tongo/ton"
)

// execGetMethod runs a get method without arguments on account.
func (t *Tracker) execGetMethod(ctx context.Context, accountID ton.AccountID, method string) ([]tonapi.TvmStackRecord, error) {
	result, err := call(ctx, t, method, func(ctx context.Context) (*tonapi.MethodExecutionResult, error) {
		return t.client.ExecGetMethodForBlockchainAccount(ctx, tonapi.ExecGetMethodForBlockchainAccountParams{
			AccountID:  accountID.ToRaw(),
			MethodName: method,
			Args:       make([]string, 0),
		})
	})

	return methodStack(method, result, err)
}

// execGetMethodWithArgs runs a get method with typed arguments on account.
func (t *Tracker) execGetMethodWithArgs(ctx context.Context, accountID ton.AccountID, method string, args ...tonapi.ExecGetMethodArg) ([]tonapi.TvmStackRecord, error) {
	result, err := call(ctx, t, method, func(ctx context.Context) (*tonapi.MethodExecutionResult, error) {
		return t.client.ExecGetMethodWithBodyForBlockchainAccount(ctx,
			tonapi.OptExecGetMethodWithBodyForBlockchainAccountReq{
				Value: tonapi.ExecGetMethodWithBodyForBlockchainAccountReq{
					Args: args,
				},
				Set: true,
			},
			tonapi.ExecGetMethodWithBodyForBlockchainAccountParams{
				AccountID:  accountID.ToRaw(),
				MethodName: method,
			},
		)
	})

	return methodStack(method, result, err)
}

func methodStack(method string, result *tonapi.MethodExecutionResult, err error) ([]tonapi.TvmStackRecord, error) {
	if err != nil {
		if isNotDeployed(err) {
			return nil, fmt.Errorf("%s: %w: %v", method, ErrNotDeployed, err)
		}
		return nil, err
	}

	if !result.GetSuccess() {
		return nil, fmt.Errorf("%s: %w: exit code %d", method, ErrNotDeployed, result.GetExitCode())
	}

	return result.GetStack(), nil
}

// isNotDeployed reports whether err says the account or its code is missing.
func isNotDeployed(err error) bool {
	var statusError *tonapi.ErrorStatusCode
	if !errors.As(err, &statusError) {
		return false
	}

	if statusError.StatusCode == http.StatusNotFound {
		return true
	}

	message := strings.ToLower(statusError.Response.Error)
	return strings.Contains(message, "not found") ||
		strings.Contains(message, "nonexist") ||
		strings.Contains(message, "uninit")
}

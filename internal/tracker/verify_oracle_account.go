package tracker

import (
	"context"
	"fmt"

	"raffleworker/internal/logger"

	"github.com/tonkeeper/tonapi-go"
	"github.com/tonkeeper/tongo/ton"
	"go.uber.org/zap"
)

// VerifyOracleAccount checks that the oracle address parses and the account exists.
func (t *Tracker) VerifyOracleAccount(ctx context.Context, oracleAddress string) error {
	logger.Debug("verify oracle account: verifying oracle address...")

	oracleAccountID, err := ton.ParseAccountID(oracleAddress)
	if err != nil {
		return fmt.Errorf("verify oracle account: oracle address %q: %w", oracleAddress, err)
	}

	oracleAccount, err := call(ctx, t, methodGetAccount, func(ctx context.Context) (*tonapi.Account, error) {
		return t.client.GetAccount(ctx, tonapi.GetAccountParams{
			AccountID: oracleAccountID.ToRaw(),
		})
	})

	if err != nil {
		if isNotDeployed(err) {
			return fmt.Errorf("verify oracle account: %w: %v", ErrNotDeployed, err)
		}
		return fmt.Errorf("verify oracle account: %w", err)
	}

	if oracleAccount.GetStatus() != tonapi.AccountStatusActive {
		return fmt.Errorf("verify oracle account: %w: status %s", ErrNotDeployed, oracleAccount.GetStatus())
	}

	logger.Debug("verify oracle account: done",
		zap.String("oracle address", oracleAccountID.ToRaw()),
		zap.Int64("balance", oracleAccount.GetBalance()),
	)
	return nil
}

package custody

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// Custodian moves funds across the system boundary. Implementations may call
// arbitrary external code, so engines must finish all internal bookkeeping
// before invoking a transfer: a callee on the other side can attempt to
// re-enter the system before the transfer returns.
type Custodian interface {
	// TransferIn pulls amount from the counterparty into custody.
	TransferIn(ctx context.Context, from types.Identity, amount sdkmath.Int) error
	// TransferOut pays amount from custody to the recipient.
	TransferOut(ctx context.Context, to types.Identity, amount sdkmath.Int) error
}

// LogCustodian records transfers in the log only. It stands in for the
// transport-specific custodian a target environment provides.
type LogCustodian struct{}

func NewLogCustodian() *LogCustodian {
	return &LogCustodian{}
}

func (c *LogCustodian) TransferIn(ctx context.Context, from types.Identity, amount sdkmath.Int) error {
	log.Ctx(ctx).Info().
		Str("from", from.String()).
		Str("amount", amount.String()).
		Msg("custody transfer in")
	return nil
}

func (c *LogCustodian) TransferOut(ctx context.Context, to types.Identity, amount sdkmath.Int) error {
	log.Ctx(ctx).Info().
		Str("to", to.String()).
		Str("amount", amount.String()).
		Msg("custody transfer out")
	return nil
}

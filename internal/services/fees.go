package services

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// PreviewFee quotes the fee a profit would incur right now, and whether fee
// accrual is currently blocked by a solvency deficit.
func (s *Service) PreviewFee(realizedProfit sdkmath.Int) (fee sdkmath.Int, blocked bool, err error) {
	return s.feeCalc.PreviewFee(realizedProfit)
}

// SetFeeRate updates the fee rate. Admin only, capped by the calculator.
func (s *Service) SetFeeRate(caller types.Identity, rateBps uint16) error {
	if err := s.feeCalc.SetRate(caller, rateBps); err != nil {
		metrics.RecordInvariantRejection("set_fee_rate", "rate_rejected")
		return err
	}
	log.Info().
		Str("caller", caller.String()).
		Uint16("rateBps", rateBps).
		Msg("Fee rate updated")
	return nil
}

// FeeRate returns the current fee rate in basis points.
func (s *Service) FeeRate() uint16 {
	return s.feeCalc.Rate()
}

// ReleaseFees pays buffered fees out to the configured treasury. Blocked
// entirely while the ledger is insolvent.
func (s *Service) ReleaseFees(ctx context.Context, caller types.Identity, amount sdkmath.Int) error {
	if err := s.escrow.Release(ctx, caller, s.treasury, amount); err != nil {
		metrics.RecordInvariantRejection("release_fees", "release_blocked")
		return err
	}
	metrics.RecordEscrowBalance(floatFromInt(s.escrow.Balance()))
	log.Ctx(ctx).Info().
		Str("amount", amount.String()).
		Str("recipient", s.treasury.String()).
		Msg("Escrowed fees released")
	return nil
}

// CoverDeficit moves escrowed funds into the ledger to close a solvency
// deficit.
func (s *Service) CoverDeficit(ctx context.Context, caller types.Identity, amount sdkmath.Int) error {
	if err := s.escrow.CoverDeficit(caller, amount); err != nil {
		return err
	}
	metrics.RecordEscrowBalance(floatFromInt(s.escrow.Balance()))
	snapshot := s.ledger.Snapshot()
	log.Ctx(ctx).Info().
		Str("amount", amount.String()).
		Str("deficit", snapshot.Deficit.String()).
		Msg("Escrow funds applied against deficit")
	return nil
}

// EscrowBalance returns the current escrow buffer balance.
func (s *Service) EscrowBalance() sdkmath.Int {
	return s.escrow.Balance()
}

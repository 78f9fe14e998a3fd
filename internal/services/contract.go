package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/db/model"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/settlement"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// OpenContract commits the caller's capital into a new partnership contract
// and persists it. The engine performs every validation and the ledger
// bookkeeping; this layer adds the effort registration, the durable record
// and the event.
func (s *Service) OpenContract(
	ctx context.Context,
	caller, manager types.Identity,
	capital sdkmath.Int,
	providerShareBps, managerShareBps uint16,
) (*settlement.Contract, error) {
	startTime := time.Now()

	contract, err := s.engine.OpenContract(ctx, caller, manager, capital, providerShareBps, managerShareBps)
	if err != nil {
		metrics.RecordOperationDuration(time.Since(startTime), "open_contract", true)
		return nil, err
	}

	if err := s.effort.RegisterContract(s.admin, contract.ID, manager); err != nil {
		// the contract is live; effort tracking failing is not a reason to unwind it
		log.Ctx(ctx).Error().Err(err).
			Str("contractId", contract.ID).
			Msg("Failed to register contract in effort ledger")
	}

	if err := s.db.SaveContract(ctx, model.FromContract(contract)); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("contractId", contract.ID).
			Msg("Failed to persist contract")
	}

	s.emitContractOpenedEvent(ctx, contract)
	metrics.RecordActiveContractsCount(len(s.engine.ActiveContracts()))
	metrics.RecordOperationDuration(time.Since(startTime), "open_contract", false)

	log.Ctx(ctx).Info().
		Str("contractId", contract.ID).
		Str("fundProvider", contract.FundProvider.String()).
		Str("manager", contract.Manager.String()).
		Str("capital", contract.Capital.String()).
		Msg("Contract opened")

	return contract, nil
}

// Settle closes a contract at its final balance. On profit the manager's
// effort converts into an efficiency figure and the protocol fee is charged
// into escrow; on loss the contract burns and the effort is forfeited.
func (s *Service) Settle(
	ctx context.Context,
	caller types.Identity,
	contractID string,
	finalBalance sdkmath.Int,
) (*settlement.Outcome, error) {
	startTime := time.Now()

	outcome, err := s.engine.Settle(ctx, caller, contractID, finalBalance)
	if err != nil && outcome == nil {
		metrics.RecordOperationDuration(time.Since(startTime), "settle", true)
		return nil, err
	}
	if err != nil {
		// bookkeeping completed but a payout transfer failed; the contract is
		// terminal either way and the failure is surfaced to the caller
		metrics.IncTransferFailures()
		log.Ctx(ctx).Error().Err(err).
			Str("contractId", contractID).
			Msg("Settlement payout transfer failed after bookkeeping")
	}

	contract := outcome.Contract
	if outcome.IsProfit() {
		s.settleProfit(ctx, outcome)
	} else {
		s.settleLoss(ctx, outcome)
	}

	if dbErr := s.db.UpdateContractState(
		ctx, contract.ID,
		types.QualifiedStatesForSettlement(),
		contract.Status,
		finalBalance.String(),
		outcome.ProviderPayout.String(),
		outcome.ManagerPayout.String(),
	); dbErr != nil {
		log.Ctx(ctx).Error().Err(dbErr).
			Str("contractId", contract.ID).
			Msg("Failed to persist settlement")
	}
	s.syncManagerStats(ctx, contract.Manager)

	metrics.RecordActiveContractsCount(len(s.engine.ActiveContracts()))
	metrics.RecordOperationDuration(time.Since(startTime), "settle", err != nil)

	return outcome, err
}

// settleProfit closes the effort record and collects the protocol fee. The
// fee is charged against realized profit, paid by the manager into escrow
// custody; it is zero while the ledger carries any deficit.
func (s *Service) settleProfit(ctx context.Context, outcome *settlement.Outcome) {
	contract := outcome.Contract

	efficiency, err := s.effort.RecordProfitAndEfficiency(s.admin, contract.ID, contract.Manager, outcome.Profit)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("contractId", contract.ID).
			Msg("Failed to record profit in effort ledger")
	} else {
		log.Ctx(ctx).Info().
			Str("contractId", contract.ID).
			Str("profit", outcome.Profit.String()).
			Str("efficiency", efficiency.String()).
			Msg("Contract settled with profit")
	}

	fee, feeErr := s.feeCalc.CalculateFee(outcome.Profit)
	if feeErr != nil {
		log.Ctx(ctx).Error().Err(feeErr).
			Str("contractId", contract.ID).
			Msg("Fee calculation failed")
		return
	}
	if fee.IsZero() {
		s.emitContractSettledEvent(ctx, outcome, sdkmath.ZeroInt())
		return
	}

	if err := s.collectFee(ctx, contract.Manager, fee); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("contractId", contract.ID).
			Str("fee", fee.String()).
			Msg("Failed to collect protocol fee")
		s.emitContractSettledEvent(ctx, outcome, sdkmath.ZeroInt())
		return
	}

	s.emitContractSettledEvent(ctx, outcome, fee)
	s.emitFeeCollectedEvent(ctx, contract.ID, fee)
}

func (s *Service) settleLoss(ctx context.Context, outcome *settlement.Outcome) {
	contract := outcome.Contract

	if err := s.effort.BurnEffort(s.admin, contract.ID, contract.Manager); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("contractId", contract.ID).
			Msg("Failed to burn effort")
	} else {
		burnedUnits := sdkmath.ZeroInt()
		if ce, ceErr := s.effort.ContractEffortFor(contract.ID); ceErr == nil {
			burnedUnits = ce.TotalUnits
		}
		s.emitEffortBurnedEvent(ctx, contract.ID, contract.Manager, burnedUnits)
	}

	log.Ctx(ctx).Warn().
		Str("contractId", contract.ID).
		Str("loss", outcome.Loss.String()).
		Msg("Contract settled with loss, effort burned")

	s.emitContractBurnedEvent(ctx, outcome)
	s.emitLossReportedEvent(ctx, contract.ID, outcome.Loss)
}

// collectFee pulls the fee from the manager into custody and buffers it in
// escrow.
func (s *Service) collectFee(ctx context.Context, manager types.Identity, fee sdkmath.Int) error {
	if err := s.cust.TransferIn(ctx, manager, fee); err != nil {
		return fmt.Errorf("fee transfer failed: %w", err)
	}
	if err := s.escrow.Deposit(fee); err != nil {
		return fmt.Errorf("fee deposit failed: %w", err)
	}
	metrics.RecordEscrowBalance(floatFromInt(s.escrow.Balance()))
	return nil
}

// Contract returns the in-memory contract.
func (s *Service) Contract(contractID string) (*settlement.Contract, error) {
	return s.engine.Contract(contractID)
}

// ActiveContracts returns all contracts still in the ACTIVE state.
func (s *Service) ActiveContracts() []*settlement.Contract {
	return s.engine.ActiveContracts()
}

// AvailableFor returns the custody balance not earmarked by other active
// contracts.
func (s *Service) AvailableFor(contractID string) (sdkmath.Int, error) {
	return s.engine.AvailableFor(contractID)
}

func (s *Service) syncManagerStats(ctx context.Context, manager types.Identity) {
	stats, ok := s.effort.StatsFor(manager)
	if !ok {
		return
	}
	if err := s.db.UpsertManagerStats(
		ctx,
		manager.String(),
		stats.LifetimeUnits.Int64(),
		stats.BurnedUnits.Int64(),
		stats.LifetimeProfit.String(),
		int64(stats.ContractCount),
		int64(stats.BurnedContractCount),
	); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("manager", manager.String()).
			Msg("Failed to upsert manager stats")
	}
}

func floatFromInt(v sdkmath.Int) float64 {
	f, _ := new(big.Float).SetInt(v.BigInt()).Float64()
	return f
}

package services

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/db/model"
	"github.com/fundlock-io/settlement-ledger/internal/effort"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// RecordEffort appends one weighted effort entry for an active contract and
// persists it.
func (s *Service) RecordEffort(
	ctx context.Context,
	contractID string,
	manager types.Identity,
	actionKind types.ActionKind,
	proofRef string,
) (*effort.Record, error) {
	startTime := time.Now()

	record, err := s.effort.RecordEffort(s.admin, contractID, manager, actionKind, proofRef)
	if err != nil {
		metrics.RecordOperationDuration(time.Since(startTime), "record_effort", true)
		return nil, err
	}

	if dbErr := s.db.SaveEffortRecord(ctx, &model.EffortRecordDocument{
		ContractID: contractID,
		Manager:    manager.String(),
		ActionKind: actionKind,
		Weight:     record.Weight.Int64(),
		ProofRef:   proofRef,
		Timestamp:  record.Timestamp,
	}); dbErr != nil {
		log.Ctx(ctx).Error().Err(dbErr).
			Str("contractId", contractID).
			Msg("Failed to persist effort record")
	}
	s.syncManagerStats(ctx, manager)

	s.emitEffortRecordedEvent(ctx, contractID, manager, actionKind, record.Weight, proofRef)
	metrics.RecordOperationDuration(time.Since(startTime), "record_effort", false)

	return record, nil
}

// ContractEffort returns the aggregate effort recorded against a contract.
func (s *Service) ContractEffort(contractID string) (*effort.ContractEffort, error) {
	return s.effort.ContractEffortFor(contractID)
}

// EffortRecords returns the append-only entry list for a contract.
func (s *Service) EffortRecords(contractID string) ([]effort.Record, error) {
	return s.effort.Records(contractID)
}

// ManagerStats returns a manager's lifetime effort aggregates.
func (s *Service) ManagerStats(manager types.Identity) (*effort.ManagerStats, bool) {
	return s.effort.StatsFor(manager)
}

// BurnRatio returns burned units over lifetime units in basis points.
func (s *Service) BurnRatio(manager types.Identity) sdkmath.Int {
	return s.effort.BurnRatio(manager)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/db/model"
	"github.com/fundlock-io/settlement-ledger/internal/ledger"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/utils/poller"
)

// StartSnapshotPoller starts the periodic solvency snapshot service.
func (s *Service) StartSnapshotPoller(ctx context.Context) {
	snapshotPoller := poller.NewPoller(
		s.cfg.Poller.SnapshotInterval,
		metrics.RecordPollerDuration("snapshot", s.takeSolvencySnapshot),
	)
	go snapshotPoller.Start(ctx)
}

func (s *Service) takeSolvencySnapshot(ctx context.Context) error {
	snapshot := s.ledger.Snapshot()
	escrowBalance := s.escrow.Balance()
	activeContracts := len(s.engine.ActiveContracts())

	metrics.RecordSolvencySnapshot(
		floatFromInt(snapshot.Assets),
		floatFromInt(snapshot.Liabilities),
		floatFromInt(snapshot.Deficit),
	)
	metrics.RecordEscrowBalance(floatFromInt(escrowBalance))
	metrics.RecordActiveContractsCount(activeContracts)

	if !snapshot.Solvent {
		log.Ctx(ctx).Warn().
			Str("assets", snapshot.Assets.String()).
			Str("liabilities", snapshot.Liabilities.String()).
			Str("deficit", snapshot.Deficit.String()).
			Msg("Ledger is insolvent")
	}

	if err := s.db.SaveSolvencySnapshot(ctx, &model.SolvencySnapshotDocument{
		Assets:          snapshot.Assets.String(),
		Liabilities:     snapshot.Liabilities.String(),
		Deficit:         snapshot.Deficit.String(),
		Solvent:         snapshot.Solvent,
		EscrowBalance:   escrowBalance.String(),
		ActiveContracts: activeContracts,
		TakenAt:         time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to persist solvency snapshot: %w", err)
	}

	return nil
}

// LedgerSnapshot returns the current solvency position.
func (s *Service) LedgerSnapshot() ledger.Snapshot {
	return s.ledger.Snapshot()
}

package services

import (
	"context"
	"encoding/json"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/queue"
	"github.com/fundlock-io/settlement-ledger/internal/settlement"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

type contractOpenedPayload struct {
	FundProvider     string `json:"fund_provider"`
	Manager          string `json:"manager"`
	Capital          string `json:"capital"`
	ProviderShareBps uint16 `json:"provider_share_bps"`
	ManagerShareBps  uint16 `json:"manager_share_bps"`
}

type contractSettledPayload struct {
	FinalBalance   string `json:"final_balance"`
	Profit         string `json:"profit"`
	Loss           string `json:"loss"`
	ProviderPayout string `json:"provider_payout"`
	ManagerPayout  string `json:"manager_payout"`
	Fee            string `json:"fee"`
}

type effortRecordedPayload struct {
	Manager    string `json:"manager"`
	ActionKind string `json:"action_kind"`
	Weight     string `json:"weight"`
	ProofRef   string `json:"proof_ref"`
}

type effortBurnedPayload struct {
	Manager     string `json:"manager"`
	BurnedUnits string `json:"burned_units"`
}

type amountPayload struct {
	Amount string `json:"amount"`
}

func (s *Service) emitContractOpenedEvent(ctx context.Context, contract *settlement.Contract) {
	s.publish(ctx, types.EventContractOpened, contract.ID, contractOpenedPayload{
		FundProvider:     contract.FundProvider.String(),
		Manager:          contract.Manager.String(),
		Capital:          contract.Capital.String(),
		ProviderShareBps: contract.ProviderShareBps,
		ManagerShareBps:  contract.ManagerShareBps,
	})
}

func (s *Service) emitContractSettledEvent(ctx context.Context, outcome *settlement.Outcome, fee sdkmath.Int) {
	s.publish(ctx, types.EventContractSettled, outcome.Contract.ID, contractSettledPayload{
		FinalBalance:   outcome.Contract.FinalBalance.String(),
		Profit:         outcome.Profit.String(),
		Loss:           outcome.Loss.String(),
		ProviderPayout: outcome.ProviderPayout.String(),
		ManagerPayout:  outcome.ManagerPayout.String(),
		Fee:            fee.String(),
	})
}

func (s *Service) emitContractBurnedEvent(ctx context.Context, outcome *settlement.Outcome) {
	s.publish(ctx, types.EventContractBurned, outcome.Contract.ID, contractSettledPayload{
		FinalBalance:   outcome.Contract.FinalBalance.String(),
		Profit:         outcome.Profit.String(),
		Loss:           outcome.Loss.String(),
		ProviderPayout: outcome.ProviderPayout.String(),
		ManagerPayout:  outcome.ManagerPayout.String(),
		Fee:            sdkmath.ZeroInt().String(),
	})
}

func (s *Service) emitEffortRecordedEvent(ctx context.Context, contractID string, manager types.Identity, actionKind types.ActionKind, weight sdkmath.Int, proofRef string) {
	s.publish(ctx, types.EventEffortRecorded, contractID, effortRecordedPayload{
		Manager:    manager.String(),
		ActionKind: actionKind.String(),
		Weight:     weight.String(),
		ProofRef:   proofRef,
	})
}

func (s *Service) emitEffortBurnedEvent(ctx context.Context, contractID string, manager types.Identity, burnedUnits sdkmath.Int) {
	s.publish(ctx, types.EventEffortBurned, contractID, effortBurnedPayload{
		Manager:     manager.String(),
		BurnedUnits: burnedUnits.String(),
	})
}

func (s *Service) emitFeeCollectedEvent(ctx context.Context, contractID string, fee sdkmath.Int) {
	s.publish(ctx, types.EventFeeCollected, contractID, amountPayload{Amount: fee.String()})
}

func (s *Service) emitLossReportedEvent(ctx context.Context, contractID string, loss sdkmath.Int) {
	s.publish(ctx, types.EventLossReported, contractID, amountPayload{Amount: loss.String()})
}

func (s *Service) publish(ctx context.Context, eventType types.EventType, contractID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("eventType", eventType.String()).
			Msg("Failed to marshal event payload")
		return
	}

	event := &queue.Event{
		EventType:  eventType,
		ContractID: contractID,
		Payload:    body,
	}
	if err := s.queueManager.PublishEvent(ctx, event); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("eventType", eventType.String()).
			Str("contractId", contractID).
			Msg("Failed to publish event")
	}
}

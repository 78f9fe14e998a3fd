package services

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/clients/pricefeed"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/types"
	"github.com/fundlock-io/settlement-ledger/internal/utils/poller"
)

// AdjustCustodyValue marks the custody pool to market by delta. The
// adjustment requires a fresh, fully validated price observation; any
// validation failure aborts the adjustment.
func (s *Service) AdjustCustodyValue(ctx context.Context, caller types.Identity, delta sdkmath.Int) (*pricefeed.ValidatedPrice, error) {
	price, err := s.priceFeed.GetValidatedPrice(ctx, s.cfg.PriceFeed.Feed)
	if err != nil {
		metrics.RecordInvariantRejection("adjust_custody", "price_validation_failed")
		return nil, fmt.Errorf("refusing custody adjustment without a validated price: %w", err)
	}

	if err := s.engine.AdjustCustody(caller, delta); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("delta", delta.String()).
		Str("price", price.Price.String()).
		Time("priceUpdatedAt", price.UpdatedAt).
		Msg("Custody marked to market")

	return price, nil
}

// StartValuationPoller periodically revalidates the price feed so a stale
// or broken feed is noticed before the next custody adjustment.
func (s *Service) StartValuationPoller(ctx context.Context) {
	valuationPoller := poller.NewPoller(
		s.cfg.Poller.ValuationInterval,
		metrics.RecordPollerDuration("valuation", s.checkPriceFeed),
	)
	go valuationPoller.Start(ctx)
}

func (s *Service) checkPriceFeed(ctx context.Context) error {
	price, err := s.priceFeed.GetValidatedPrice(ctx, s.cfg.PriceFeed.Feed)
	if err != nil {
		return fmt.Errorf("price feed validation failed: %w", err)
	}

	log.Ctx(ctx).Debug().
		Str("feed", s.cfg.PriceFeed.Feed).
		Str("price", price.Price.String()).
		Msg("Price feed healthy")
	return nil
}

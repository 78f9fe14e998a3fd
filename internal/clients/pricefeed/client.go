package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/config"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
)

// HTTPClient reads rounds from a price-feed aggregator over HTTP and
// validates them before handing a number to anyone.
type HTTPClient struct {
	cfg    *config.PriceFeedConfig
	client *http.Client
	now    func() time.Time
}

func NewHTTPClient(cfg *config.PriceFeedConfig) *HTTPClient {
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

type roundResponse struct {
	Price           string `json:"price"`
	Decimals        uint8  `json:"decimals"`
	RoundID         uint64 `json:"round_id"`
	AnsweredInRound uint64 `json:"answered_in_round"`
	UpdatedAt       int64  `json:"updated_at"`
}

func (c *HTTPClient) GetValidatedPrice(ctx context.Context, feed string) (*ValidatedPrice, error) {
	round, err := c.fetchRound(ctx, feed)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch round for feed %s: %w", feed, err)
	}
	return c.validateRound(feed, round)
}

func (c *HTTPClient) fetchRound(ctx context.Context, feed string) (*roundResponse, error) {
	endpoint := fmt.Sprintf("%s/v1/feeds/%s/latest", c.cfg.Endpoint, url.PathEscape(feed))

	call := func() (*roundResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		timer := metrics.StartClientRequestDurationTimer(c.cfg.Endpoint, http.MethodGet, "/v1/feeds/{feed}/latest")
		resp, err := c.client.Do(req)
		if err != nil {
			timer(0)
			return nil, err
		}
		defer resp.Body.Close()
		timer(resp.StatusCode)

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("price feed returned status %d", resp.StatusCode)
		}
		var round roundResponse
		if err := json.NewDecoder(resp.Body).Decode(&round); err != nil {
			return nil, err
		}
		return &round, nil
	}

	return retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(c.cfg.MaxRetryTimes),
		retry.Delay(c.cfg.RetryInterval),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().Err(err).Uint("attempt", n).Str("feed", feed).Msg("retrying price feed fetch")
		}),
	)
}

// validateRound runs the three independent checks. Order matters only for
// which error surfaces first; all three must hold.
func (c *HTTPClient) validateRound(feed string, round *roundResponse) (*ValidatedPrice, error) {
	price, ok := sdkmath.NewIntFromString(round.Price)
	if !ok || !price.IsPositive() {
		if !ok {
			price = sdkmath.ZeroInt()
		}
		return nil, &InvalidPriceError{Feed: feed, Price: price}
	}

	if round.UpdatedAt == 0 || round.AnsweredInRound < round.RoundID {
		return nil, &IncompleteRoundError{
			Feed:            feed,
			RoundID:         round.RoundID,
			AnsweredInRound: round.AnsweredInRound,
		}
	}

	updatedAt := time.Unix(round.UpdatedAt, 0).UTC()
	now := c.now().UTC()
	if now.Sub(updatedAt) > c.cfg.MaxAge {
		return nil, &StaleDataError{
			Feed:      feed,
			UpdatedAt: updatedAt,
			Now:       now,
			MaxAge:    c.cfg.MaxAge,
		}
	}

	return &ValidatedPrice{
		Price:     price,
		Decimals:  round.Decimals,
		UpdatedAt: updatedAt,
	}, nil
}

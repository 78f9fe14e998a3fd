package allowlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/config"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// HTTPClient queries a remote allow-list service.
type HTTPClient struct {
	cfg    *config.AllowlistConfig
	client *http.Client
}

func NewHTTPClient(cfg *config.AllowlistConfig) *HTTPClient {
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type approvalResponse struct {
	Approved bool `json:"approved"`
}

func (c *HTTPClient) IsApproved(ctx context.Context, id types.Identity) (bool, error) {
	if id.IsZero() {
		return false, &types.ValidationError{Field: "id", Message: "identity must not be zero"}
	}

	endpoint := fmt.Sprintf("%s/v1/approved/%s", c.cfg.Endpoint, url.PathEscape(id.String()))

	call := func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return false, err
		}
		timer := metrics.StartClientRequestDurationTimer(c.cfg.Endpoint, http.MethodGet, "/v1/approved/{id}")
		resp, err := c.client.Do(req)
		if err != nil {
			timer(0)
			return false, err
		}
		defer resp.Body.Close()
		timer(resp.StatusCode)

		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("allow-list service returned status %d", resp.StatusCode)
		}
		var body approvalResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, err
		}
		return body.Approved, nil
	}

	approved, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(c.cfg.MaxRetryTimes),
		retry.Delay(c.cfg.RetryInterval),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().Err(err).Uint("attempt", n).Msg("retrying allow-list lookup")
		}),
	)
	if err != nil {
		return false, fmt.Errorf("allow-list lookup for %q failed: %w", id, err)
	}
	return approved, nil
}

// StaticClient approves a fixed identity set from configuration. Used when
// no remote allow-list service is deployed.
type StaticClient struct {
	approved map[types.Identity]struct{}
}

func NewStaticClient(ids []string) *StaticClient {
	approved := make(map[types.Identity]struct{}, len(ids))
	for _, id := range ids {
		normalized := types.NormalizeIdentity(id)
		if !normalized.IsZero() {
			approved[normalized] = struct{}{}
		}
	}
	return &StaticClient{approved: approved}
}

func (c *StaticClient) IsApproved(_ context.Context, id types.Identity) (bool, error) {
	_, ok := c.approved[types.NormalizeIdentity(id.String())]
	return ok, nil
}

// FromConfig picks the remote client when an endpoint is configured and the
// static set otherwise.
func FromConfig(cfg *config.AllowlistConfig) Client {
	if cfg.Endpoint != "" {
		return NewHTTPClient(cfg)
	}
	return NewStaticClient(cfg.Approved)
}

package allowlist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundlock-io/settlement-ledger/internal/config"
	"github.com/fundlock-io/settlement-ledger/internal/observability/metrics"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

func TestMain(m *testing.M) {
	// metrics are package globals; register them once on a random port
	metrics.Init(0)
	os.Exit(m.Run())
}

func newHTTPTestClient(endpoint string) *HTTPClient {
	return NewHTTPClient(&config.AllowlistConfig{
		Endpoint:      endpoint,
		Timeout:       time.Second,
		MaxRetryTimes: 1,
		RetryInterval: time.Millisecond,
	})
}

func TestHTTPClientIsApproved(t *testing.T) {
	ctx := context.Background()

	t.Run("approved identity", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/approved/provider-1", r.URL.Path)
			require.NoError(t, json.NewEncoder(w).Encode(approvalResponse{Approved: true}))
		}))
		defer srv.Close()

		approved, err := newHTTPTestClient(srv.URL).IsApproved(ctx, types.Identity("provider-1"))
		require.NoError(t, err)
		assert.True(t, approved)
	})

	t.Run("unapproved identity", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewEncoder(w).Encode(approvalResponse{Approved: false}))
		}))
		defer srv.Close()

		approved, err := newHTTPTestClient(srv.URL).IsApproved(ctx, types.Identity("stranger"))
		require.NoError(t, err)
		assert.False(t, approved)
	})

	t.Run("zero identity rejected before any request", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		}))
		defer srv.Close()

		_, err := newHTTPTestClient(srv.URL).IsApproved(ctx, types.Identity(""))
		require.Error(t, err)
		assert.True(t, types.IsValidationError(err))
	})

	t.Run("service error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newHTTPTestClient(srv.URL).IsApproved(ctx, types.Identity("provider-1"))
		require.Error(t, err)
	})
}

func TestStaticClient(t *testing.T) {
	ctx := context.Background()
	c := NewStaticClient([]string{"provider-1", "manager-1"})

	approved, err := c.IsApproved(ctx, types.Identity("provider-1"))
	require.NoError(t, err)
	assert.True(t, approved)

	approved, err = c.IsApproved(ctx, types.Identity("stranger"))
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestFromConfig(t *testing.T) {
	t.Run("endpoint selects the remote client", func(t *testing.T) {
		c := FromConfig(&config.AllowlistConfig{
			Endpoint:      "http://localhost:9001",
			Timeout:       time.Second,
			MaxRetryTimes: 1,
			RetryInterval: time.Millisecond,
		})
		assert.IsType(t, &HTTPClient{}, c)
	})

	t.Run("static set selects the static client", func(t *testing.T) {
		c := FromConfig(&config.AllowlistConfig{Approved: []string{"provider-1"}})
		assert.IsType(t, &StaticClient{}, c)
	})
}

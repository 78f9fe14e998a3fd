package allowlist

import (
	"context"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// Client answers set-membership queries against the counterparty
// allow-list. The engine refuses any custody transfer for an identity this
// gate does not approve.
type Client interface {
	IsApproved(ctx context.Context, id types.Identity) (bool, error)
}

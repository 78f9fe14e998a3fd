package pricefeed

import "context"

// Client fetches and validates a price observation. Implementations must
// run all three checks; callers treat any failure as a hard abort of the
// dependent operation.
type Client interface {
	GetValidatedPrice(ctx context.Context, feed string) (*ValidatedPrice, error)
}

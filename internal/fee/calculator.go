package fee

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

const (
	RoleAdmin = "fee:admin"

	// MaxRateBps is the hard cap on the performance fee rate. It is a
	// compile-time constant so no admin action can remove it.
	MaxRateBps = 3000
)

// RateTooHighError is returned when an admin attempts to raise the fee rate
// above the hard-coded maximum.
type RateTooHighError struct {
	Provided uint16
	Maximum  uint16
}

func (e *RateTooHighError) Error() string {
	return fmt.Sprintf("fee rate %d bps exceeds maximum %d bps", e.Provided, e.Maximum)
}

func IsRateTooHighError(err error) bool {
	var target *RateTooHighError
	return errors.As(err, &target)
}

// DeficitReader reports the ledger's current deficit. The calculator
// consults it before any fee is computed.
type DeficitReader interface {
	CurrentDeficit() sdkmath.Int
}

// Calculator computes performance fees on realized profit. Whenever the
// ledger reports a deficit the fee is zero, with no caller override: fee
// extraction during a deficit would monetize profit that has not survived a
// solvency check.
type Calculator struct {
	mu sync.Mutex

	admin   types.Identity
	rateBps uint16
	ledger  DeficitReader
}

func NewCalculator(admin types.Identity, rateBps uint16, ledger DeficitReader) (*Calculator, error) {
	if admin.IsZero() {
		return nil, &types.ValidationError{Field: "admin", Message: "identity must not be zero"}
	}
	if rateBps > MaxRateBps {
		return nil, &RateTooHighError{Provided: rateBps, Maximum: MaxRateBps}
	}
	if ledger == nil {
		return nil, &types.ValidationError{Field: "ledger", Message: "deficit reader is required"}
	}
	return &Calculator{admin: admin, rateBps: rateBps, ledger: ledger}, nil
}

// SetRate updates the fee rate, admin only, never above MaxRateBps.
func (c *Calculator) SetRate(caller types.Identity, rateBps uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return &types.UnauthorizedError{Caller: caller, Required: RoleAdmin}
	}
	if rateBps > MaxRateBps {
		return &RateTooHighError{Provided: rateBps, Maximum: MaxRateBps}
	}
	log.Info().Uint16("old", c.rateBps).Uint16("new", rateBps).Msg("fee rate updated")
	c.rateBps = rateBps
	return nil
}

func (c *Calculator) Rate() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rateBps
}

// CalculateFee returns the fee due on realizedProfit, deterministically zero
// while the ledger is in deficit.
func (c *Calculator) CalculateFee(realizedProfit sdkmath.Int) (sdkmath.Int, error) {
	feeAmount, _, err := c.PreviewFee(realizedProfit)
	return feeAmount, err
}

// PreviewFee returns the would-be fee and whether it is blocked by a
// deficit, without side effects.
func (c *Calculator) PreviewFee(realizedProfit sdkmath.Int) (sdkmath.Int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := types.RequireNonNegative("realizedProfit", realizedProfit); err != nil {
		return sdkmath.Int{}, false, err
	}
	if c.ledger.CurrentDeficit().IsPositive() {
		return sdkmath.ZeroInt(), true, nil
	}
	return types.ApplyBps(realizedProfit, c.rateBps), false, nil
}

package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/custody"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

const RoleAdmin = "escrow:admin"

// ProtocolInsolventError is returned when a release is attempted while the
// ledger reports a deficit.
type ProtocolInsolventError struct {
	Deficit sdkmath.Int
}

func (e *ProtocolInsolventError) Error() string {
	return fmt.Sprintf("protocol insolvent: deficit %s, escrow release blocked", e.Deficit)
}

func IsProtocolInsolventError(err error) bool {
	var target *ProtocolInsolventError
	return errors.As(err, &target)
}

// InsufficientEscrowError is returned when a release or deficit cover
// exceeds the buffered balance.
type InsufficientEscrowError struct {
	Requested sdkmath.Int
	Available sdkmath.Int
}

func (e *InsufficientEscrowError) Error() string {
	return fmt.Sprintf("insufficient escrow: requested %s, available %s", e.Requested, e.Available)
}

func IsInsufficientEscrowError(err error) bool {
	var target *InsufficientEscrowError
	return errors.As(err, &target)
}

// LedgerFunder is the slice of the solvency ledger the buffer needs: reads
// for the release gate and a writer path for deficit coverage.
type LedgerFunder interface {
	IsSolvent() bool
	CurrentDeficit() sdkmath.Int
	IncreaseAssets(caller types.Identity, amount sdkmath.Int) error
}

// Buffer accumulates performance fees and defers payout until the ledger
// reports solvency. While insolvent, buffered fees may be redirected to
// cover the deficit instead.
type Buffer struct {
	mu sync.Mutex

	admin    types.Identity
	writerID types.Identity
	ledger   LedgerFunder
	cust     custody.Custodian

	balance sdkmath.Int
}

func NewBuffer(admin, writerID types.Identity, ledger LedgerFunder, cust custody.Custodian) (*Buffer, error) {
	if admin.IsZero() {
		return nil, &types.ValidationError{Field: "admin", Message: "identity must not be zero"}
	}
	if writerID.IsZero() {
		return nil, &types.ValidationError{Field: "writerID", Message: "identity must not be zero"}
	}
	if ledger == nil {
		return nil, &types.ValidationError{Field: "ledger", Message: "ledger funder is required"}
	}
	if cust == nil {
		return nil, &types.ValidationError{Field: "custodian", Message: "custodian is required"}
	}
	return &Buffer{
		admin:    admin,
		writerID: writerID,
		ledger:   ledger,
		cust:     cust,
		balance:  sdkmath.ZeroInt(),
	}, nil
}

// Deposit buffers a collected fee. The funds are already in custody by the
// time the fee flow calls this.
func (b *Buffer) Deposit(amount sdkmath.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := types.RequirePositive("amount", amount); err != nil {
		return err
	}
	b.balance = b.balance.Add(amount)
	return nil
}

// Release pays buffered fees out to a recipient. Blocked entirely while the
// ledger is insolvent. The balance is debited before the external transfer.
func (b *Buffer) Release(ctx context.Context, caller, recipient types.Identity, amount sdkmath.Int) error {
	b.mu.Lock()

	if caller != b.admin {
		b.mu.Unlock()
		return &types.UnauthorizedError{Caller: caller, Required: RoleAdmin}
	}
	if recipient.IsZero() {
		b.mu.Unlock()
		return &types.ValidationError{Field: "recipient", Message: "identity must not be zero"}
	}
	if err := types.RequirePositive("amount", amount); err != nil {
		b.mu.Unlock()
		return err
	}
	if !b.ledger.IsSolvent() {
		deficit := b.ledger.CurrentDeficit()
		b.mu.Unlock()
		return &ProtocolInsolventError{Deficit: deficit}
	}
	if amount.GT(b.balance) {
		requested, available := amount, b.balance
		b.mu.Unlock()
		return &InsufficientEscrowError{Requested: requested, Available: available}
	}

	b.balance = b.balance.Sub(amount)
	b.mu.Unlock()

	// transfer strictly after bookkeeping
	if err := b.cust.TransferOut(ctx, recipient, amount); err != nil {
		return fmt.Errorf("escrow release transfer failed: %w", err)
	}
	return nil
}

// CoverDeficit redirects buffered fees into the ledger to shrink a deficit.
func (b *Buffer) CoverDeficit(caller types.Identity, amount sdkmath.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if caller != b.admin {
		return &types.UnauthorizedError{Caller: caller, Required: RoleAdmin}
	}
	if err := types.RequirePositive("amount", amount); err != nil {
		return err
	}
	if amount.GT(b.balance) {
		return &InsufficientEscrowError{Requested: amount, Available: b.balance}
	}
	if err := b.ledger.IncreaseAssets(b.writerID, amount); err != nil {
		return fmt.Errorf("failed to credit ledger from escrow: %w", err)
	}
	b.balance = b.balance.Sub(amount)
	log.Info().Str("amount", amount.String()).Msg("escrow funds redirected to cover deficit")
	return nil
}

func (b *Buffer) Balance() sdkmath.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.balance
}

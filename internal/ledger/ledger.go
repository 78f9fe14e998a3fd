package ledger

import (
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

const (
	RoleAdmin  = "ledger:admin"
	RoleWriter = "ledger:writer"
)

// Ledger tracks total assets and liabilities for the pooled fund and
// enforces the solvency invariant: after every externally visible mutation
// except ReportLoss, assets >= liabilities. It is a single logical state
// machine; a mutex serializes mutations so no operation observes a
// partially updated invariant.
type Ledger struct {
	mu sync.Mutex

	admin   types.Identity
	writers map[types.Identity]struct{}

	totalAssets      sdkmath.Int
	totalLiabilities sdkmath.Int
}

// Snapshot is a consistent read of the ledger totals.
type Snapshot struct {
	Assets      sdkmath.Int
	Liabilities sdkmath.Int
	Deficit     sdkmath.Int
	Solvent     bool
}

// New creates the ledger with zero assets and liabilities. The admin
// identity is fixed for the ledger's lifetime and is the only identity that
// may mutate the writer set.
func New(admin types.Identity) (*Ledger, error) {
	if admin.IsZero() {
		return nil, &types.ValidationError{Field: "admin", Message: "identity must not be zero"}
	}
	return &Ledger{
		admin:            admin,
		writers:          make(map[types.Identity]struct{}),
		totalAssets:      sdkmath.ZeroInt(),
		totalLiabilities: sdkmath.ZeroInt(),
	}, nil
}

func (l *Ledger) AddWriter(caller, writer types.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if writer.IsZero() {
		return &types.ValidationError{Field: "writer", Message: "identity must not be zero"}
	}
	l.writers[writer] = struct{}{}
	log.Debug().Str("writer", writer.String()).Msg("ledger writer added")
	return nil
}

func (l *Ledger) RemoveWriter(caller, writer types.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	delete(l.writers, writer)
	log.Debug().Str("writer", writer.String()).Msg("ledger writer removed")
	return nil
}

func (l *Ledger) IsWriter(id types.Identity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.writers[id]
	return ok
}

// IncreaseAssets records a deposit. Deposits can only improve solvency, so
// there is no post-check.
func (l *Ledger) IncreaseAssets(caller types.Identity, amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireWriter(caller); err != nil {
		return err
	}
	if err := types.RequirePositive("amount", amount); err != nil {
		return err
	}
	l.totalAssets = l.totalAssets.Add(amount)
	return nil
}

// DecreaseAssets records a voluntary withdrawal. It never completes if the
// post-state would violate solvency.
func (l *Ledger) DecreaseAssets(caller types.Identity, amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireWriter(caller); err != nil {
		return err
	}
	if err := types.RequirePositive("amount", amount); err != nil {
		return err
	}
	if amount.GT(l.totalAssets) {
		return &InsufficientAssetsError{Requested: amount, Available: l.totalAssets}
	}
	remaining := l.totalAssets.Sub(amount)
	if remaining.LT(l.totalLiabilities) {
		return &SolvencyViolationError{Assets: remaining, Liabilities: l.totalLiabilities}
	}
	l.totalAssets = remaining
	return nil
}

// ReportLoss records an involuntary loss without a solvency post-check.
// Refusing to record a real loss would hide insolvency, which is worse than
// showing a deficit; this is the single audited exception to the solvency
// invariant.
func (l *Ledger) ReportLoss(caller types.Identity, amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireWriter(caller); err != nil {
		return err
	}
	if err := types.RequirePositive("amount", amount); err != nil {
		return err
	}
	if amount.GT(l.totalAssets) {
		return &LossExceedsAssetsError{Loss: amount, Assets: l.totalAssets}
	}
	l.totalAssets = l.totalAssets.Sub(amount)
	if l.totalAssets.LT(l.totalLiabilities) {
		log.Warn().
			Str("assets", l.totalAssets.String()).
			Str("liabilities", l.totalLiabilities.String()).
			Msg("loss reported into deficit")
	}
	return nil
}

// SetLiabilities sets the liability total unconditionally. Liabilities
// reflect external claims, not this ledger's choice.
func (l *Ledger) SetLiabilities(caller types.Identity, amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireWriter(caller); err != nil {
		return err
	}
	if err := types.RequireNonNegative("amount", amount); err != nil {
		return err
	}
	l.totalLiabilities = amount
	return nil
}

func (l *Ledger) IsSolvent() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totalAssets.GTE(l.totalLiabilities)
}

// CurrentDeficit returns max(0, liabilities - assets).
func (l *Ledger) CurrentDeficit() sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.deficitLocked()
}

func (l *Ledger) TotalAssets() sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totalAssets
}

func (l *Ledger) TotalLiabilities() sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totalLiabilities
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Snapshot{
		Assets:      l.totalAssets,
		Liabilities: l.totalLiabilities,
		Deficit:     l.deficitLocked(),
		Solvent:     l.totalAssets.GTE(l.totalLiabilities),
	}
}

func (l *Ledger) deficitLocked() sdkmath.Int {
	if l.totalLiabilities.GT(l.totalAssets) {
		return l.totalLiabilities.Sub(l.totalAssets)
	}
	return sdkmath.ZeroInt()
}

func (l *Ledger) requireAdmin(caller types.Identity) error {
	if caller != l.admin {
		return &types.UnauthorizedError{Caller: caller, Required: RoleAdmin}
	}
	return nil
}

func (l *Ledger) requireWriter(caller types.Identity) error {
	if _, ok := l.writers[caller]; !ok {
		return &types.UnauthorizedError{Caller: caller, Required: RoleWriter}
	}
	return nil
}

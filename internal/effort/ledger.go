package effort

import (
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

const (
	RoleAdmin    = "effort:admin"
	RoleRecorder = "effort:recorder"
)

// Record is one immutable, append-only effort entry.
type Record struct {
	Timestamp  time.Time
	Weight     sdkmath.Int
	ActionKind types.ActionKind
	ProofRef   string
}

// ContractEffort aggregates the effort recorded against one contract.
type ContractEffort struct {
	ContractID     string
	Manager        types.Identity
	TotalUnits     sdkmath.Int
	EntryCount     uint64
	Active         bool
	Burned         bool
	RealizedProfit sdkmath.Int
}

// ManagerStats aggregates lifetime statistics per manager. LifetimeUnits and
// BurnedUnits only ever grow, and BurnedUnits never exceeds LifetimeUnits.
type ManagerStats struct {
	Manager             types.Identity
	LifetimeUnits       sdkmath.Int
	BurnedUnits         sdkmath.Int
	LifetimeProfit      sdkmath.Int
	ContractCount       uint64
	BurnedContractCount uint64
}

type contractEffort struct {
	ContractEffort
	records []Record
}

// Ledger is the permanent, burn-capable record of contributor effort. A
// contract's units accumulate while it is active; a profitable settlement
// converts them into an efficiency figure, a loss settlement burns them
// permanently.
type Ledger struct {
	mu sync.Mutex

	admin     types.Identity
	recorders map[types.Identity]struct{}
	weights   map[types.ActionKind]sdkmath.Int

	contracts map[string]*contractEffort
	managers  map[types.Identity]*ManagerStats
}

// DefaultWeights returns the built-in per-action weight table.
func DefaultWeights() map[types.ActionKind]sdkmath.Int {
	return map[types.ActionKind]sdkmath.Int{
		types.ActionTradeExecution: sdkmath.NewInt(10),
		types.ActionRebalance:      sdkmath.NewInt(25),
		types.ActionRiskReview:     sdkmath.NewInt(15),
		types.ActionReport:         sdkmath.NewInt(5),
	}
}

func NewLedger(admin types.Identity, weights map[types.ActionKind]sdkmath.Int) (*Ledger, error) {
	if admin.IsZero() {
		return nil, &types.ValidationError{Field: "admin", Message: "identity must not be zero"}
	}
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	for kind, weight := range weights {
		if weight.IsNil() || weight.IsNegative() {
			return nil, &types.ValidationError{Field: "weights", Message: "weight for " + kind.String() + " must not be negative"}
		}
	}
	return &Ledger{
		admin:     admin,
		recorders: make(map[types.Identity]struct{}),
		weights:   weights,
		contracts: make(map[string]*contractEffort),
		managers:  make(map[types.Identity]*ManagerStats),
	}, nil
}

func (l *Ledger) AddRecorder(caller, recorder types.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return &types.UnauthorizedError{Caller: caller, Required: RoleAdmin}
	}
	if recorder.IsZero() {
		return &types.ValidationError{Field: "recorder", Message: "identity must not be zero"}
	}
	l.recorders[recorder] = struct{}{}
	return nil
}

func (l *Ledger) RemoveRecorder(caller, recorder types.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return &types.UnauthorizedError{Caller: caller, Required: RoleAdmin}
	}
	delete(l.recorders, recorder)
	return nil
}

// RegisterContract opens an active effort record for a new contract.
func (l *Ledger) RegisterContract(caller types.Identity, contractID string, manager types.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRecorder(caller); err != nil {
		return err
	}
	if contractID == "" {
		return &types.ValidationError{Field: "contractID", Message: "must not be empty"}
	}
	if manager.IsZero() {
		return &types.ValidationError{Field: "manager", Message: "identity must not be zero"}
	}
	if _, exists := l.contracts[contractID]; exists {
		return &AlreadyRegisteredError{ContractID: contractID}
	}

	l.contracts[contractID] = &contractEffort{
		ContractEffort: ContractEffort{
			ContractID:     contractID,
			Manager:        manager,
			TotalUnits:     sdkmath.ZeroInt(),
			Active:         true,
			RealizedProfit: sdkmath.ZeroInt(),
		},
	}
	stats := l.statsLocked(manager)
	stats.ContractCount++
	return nil
}

// RecordEffort appends one weighted, immutable effort entry and bumps the
// contract and manager totals. Both totals are strictly increasing.
func (l *Ledger) RecordEffort(
	caller types.Identity,
	contractID string,
	manager types.Identity,
	actionKind types.ActionKind,
	proofRef string,
) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRecorder(caller); err != nil {
		return nil, err
	}
	if proofRef == "" {
		return nil, &types.ValidationError{Field: "proofRef", Message: "must not be empty"}
	}

	ce, ok := l.contracts[contractID]
	if !ok || !ce.Active {
		return nil, &ContractNotActiveError{ContractID: contractID}
	}
	if ce.Manager != manager {
		return nil, &types.ValidationError{Field: "manager", Message: "does not match the contract's manager"}
	}

	weight, ok := l.weights[actionKind]
	if !ok || weight.IsZero() {
		return nil, &ZeroWeightError{ActionKind: actionKind}
	}

	record := Record{
		Timestamp:  time.Now().UTC(),
		Weight:     weight,
		ActionKind: actionKind,
		ProofRef:   proofRef,
	}
	ce.records = append(ce.records, record)
	ce.TotalUnits = ce.TotalUnits.Add(weight)
	ce.EntryCount++

	stats := l.statsLocked(manager)
	stats.LifetimeUnits = stats.LifetimeUnits.Add(weight)
	return &record, nil
}

// RecordProfitAndEfficiency closes a contract's effort record on a
// profitable settlement and returns profit*100/totalUnits.
func (l *Ledger) RecordProfitAndEfficiency(
	caller types.Identity,
	contractID string,
	manager types.Identity,
	profit sdkmath.Int,
) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRecorder(caller); err != nil {
		return sdkmath.Int{}, err
	}
	if err := types.RequireNonNegative("profit", profit); err != nil {
		return sdkmath.Int{}, err
	}

	ce, ok := l.contracts[contractID]
	if !ok || !ce.Active {
		return sdkmath.Int{}, &ContractNotActiveError{ContractID: contractID}
	}
	if ce.Manager != manager {
		return sdkmath.Int{}, &types.ValidationError{Field: "manager", Message: "does not match the contract's manager"}
	}

	ce.Active = false
	ce.RealizedProfit = profit

	stats := l.statsLocked(manager)
	stats.LifetimeProfit = stats.LifetimeProfit.Add(profit)

	if ce.TotalUnits.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return profit.MulRaw(100).Quo(ce.TotalUnits), nil
}

// BurnEffort permanently forfeits a contract's accumulated units after a
// loss settlement. Burned units remain visible in history but are never
// un-burned.
func (l *Ledger) BurnEffort(caller types.Identity, contractID string, manager types.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireRecorder(caller); err != nil {
		return err
	}

	ce, ok := l.contracts[contractID]
	if !ok {
		return &ContractNotActiveError{ContractID: contractID}
	}
	if ce.Burned {
		return &AlreadyBurnedError{ContractID: contractID}
	}
	if !ce.Active {
		return &ContractNotActiveError{ContractID: contractID}
	}
	if ce.Manager != manager {
		return &types.ValidationError{Field: "manager", Message: "does not match the contract's manager"}
	}

	ce.Burned = true
	ce.Active = false

	stats := l.statsLocked(manager)
	stats.BurnedUnits = stats.BurnedUnits.Add(ce.TotalUnits)
	stats.BurnedContractCount++

	log.Warn().
		Str("contractId", contractID).
		Str("manager", manager.String()).
		Str("burnedUnits", ce.TotalUnits.String()).
		Msg("contract effort burned")
	return nil
}

// BurnRatio returns burnedUnits*10000/lifetimeUnits for a manager, zero
// when no units have been recorded yet.
func (l *Ledger) BurnRatio(manager types.Identity) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats, ok := l.managers[manager]
	if !ok || stats.LifetimeUnits.IsZero() {
		return sdkmath.ZeroInt()
	}
	return stats.BurnedUnits.MulRaw(types.BpsDenominator).Quo(stats.LifetimeUnits)
}

// ContractEffortFor returns a copy of the contract's aggregate.
func (l *Ledger) ContractEffortFor(contractID string) (*ContractEffort, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ce, ok := l.contracts[contractID]
	if !ok {
		return nil, &ContractNotActiveError{ContractID: contractID}
	}
	dup := ce.ContractEffort
	return &dup, nil
}

// Records returns copies of the contract's effort entries in append order.
func (l *Ledger) Records(contractID string) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ce, ok := l.contracts[contractID]
	if !ok {
		return nil, &ContractNotActiveError{ContractID: contractID}
	}
	out := make([]Record, len(ce.records))
	copy(out, ce.records)
	return out, nil
}

// StatsFor returns a copy of the manager's lifetime statistics.
func (l *Ledger) StatsFor(manager types.Identity) (*ManagerStats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats, ok := l.managers[manager]
	if !ok {
		return nil, false
	}
	dup := *stats
	return &dup, true
}

func (l *Ledger) statsLocked(manager types.Identity) *ManagerStats {
	stats, ok := l.managers[manager]
	if !ok {
		stats = &ManagerStats{
			Manager:        manager,
			LifetimeUnits:  sdkmath.ZeroInt(),
			BurnedUnits:    sdkmath.ZeroInt(),
			LifetimeProfit: sdkmath.ZeroInt(),
		}
		l.managers[manager] = stats
	}
	return stats
}

func (l *Ledger) requireRecorder(caller types.Identity) error {
	if _, ok := l.recorders[caller]; !ok {
		return &types.UnauthorizedError{Caller: caller, Required: RoleRecorder}
	}
	return nil
}

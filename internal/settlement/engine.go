package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/custody"
	"github.com/fundlock-io/settlement-ledger/internal/types"
	"github.com/fundlock-io/settlement-ledger/internal/utils"
)

const RoleAdmin = "settlement:admin"

// LedgerWriter is the mutation surface of the solvency ledger the engine
// drives. The engine authenticates to the ledger with its own writer
// identity.
type LedgerWriter interface {
	IncreaseAssets(caller types.Identity, amount sdkmath.Int) error
	DecreaseAssets(caller types.Identity, amount sdkmath.Int) error
	ReportLoss(caller types.Identity, amount sdkmath.Int) error
	SetLiabilities(caller types.Identity, amount sdkmath.Int) error
}

// Approver is the allow-list gate consulted before any custody transfer.
type Approver interface {
	IsApproved(ctx context.Context, id types.Identity) (bool, error)
}

// Engine owns per-contract state and settles partnership contracts with
// exact fund conservation. All bookkeeping completes before any external
// transfer; a per-contract in-progress flag rejects re-entrant calls during
// the transfer phase.
type Engine struct {
	mu sync.Mutex

	admin    types.Identity
	writerID types.Identity
	ledger   LedgerWriter
	cust     custody.Custodian
	approver Approver

	contracts  map[string]*Contract
	custodyBal sdkmath.Int
	committed  sdkmath.Int // sum of capital across active contracts
	inProgress map[string]struct{}
}

func NewEngine(
	admin, writerID types.Identity,
	ledger LedgerWriter,
	cust custody.Custodian,
	approver Approver,
) (*Engine, error) {
	if admin.IsZero() {
		return nil, &types.ValidationError{Field: "admin", Message: "identity must not be zero"}
	}
	if writerID.IsZero() {
		return nil, &types.ValidationError{Field: "writerID", Message: "identity must not be zero"}
	}
	if ledger == nil || cust == nil || approver == nil {
		return nil, &types.ValidationError{Field: "dependencies", Message: "ledger, custodian and approver are required"}
	}
	return &Engine{
		admin:      admin,
		writerID:   writerID,
		ledger:     ledger,
		cust:       cust,
		approver:   approver,
		contracts:  make(map[string]*Contract),
		custodyBal: sdkmath.ZeroInt(),
		committed:  sdkmath.ZeroInt(),
		inProgress: make(map[string]struct{}),
	}, nil
}

// OpenContract commits the caller's capital to a new contract managed by
// manager. Capital is recorded as a ledger asset and a matching liability,
// then pulled into custody.
func (e *Engine) OpenContract(
	ctx context.Context,
	caller, manager types.Identity,
	capital sdkmath.Int,
	providerShareBps, managerShareBps uint16,
) (*Contract, error) {
	if caller.IsZero() {
		return nil, &types.ValidationError{Field: "fundProvider", Message: "identity must not be zero"}
	}
	if manager.IsZero() {
		return nil, &types.ValidationError{Field: "manager", Message: "identity must not be zero"}
	}
	if caller == manager {
		return nil, &types.ValidationError{Field: "manager", Message: "manager must differ from fund provider"}
	}
	if err := types.RequirePositive("capital", capital); err != nil {
		return nil, err
	}
	if int(providerShareBps)+int(managerShareBps) != types.BpsDenominator {
		return nil, &InvalidSplitError{ProviderBps: providerShareBps, ManagerBps: managerShareBps}
	}

	// allow-list gate before any custody interaction
	for _, id := range []types.Identity{caller, manager} {
		approved, err := e.approver.IsApproved(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("allow-list check failed for %q: %w", id, err)
		}
		if !approved {
			return nil, &CounterpartyNotApprovedError{Identity: id}
		}
	}

	e.mu.Lock()
	contract := &Contract{
		ID:               uuid.New().String(),
		FundProvider:     caller,
		Manager:          manager,
		Capital:          capital,
		FinalBalance:     sdkmath.ZeroInt(),
		ProviderShareBps: providerShareBps,
		ManagerShareBps:  managerShareBps,
		Status:           types.StatusActive,
		CreatedAt:        time.Now().UTC(),
	}

	if err := e.ledger.IncreaseAssets(e.writerID, capital); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("failed to record capital as ledger asset: %w", err)
	}
	newCommitted := e.committed.Add(capital)
	if err := e.ledger.SetLiabilities(e.writerID, newCommitted); err != nil {
		// unwind the asset entry so the rejected open has no effect
		if derr := e.ledger.DecreaseAssets(e.writerID, capital); derr != nil {
			log.Error().Err(derr).Msg("failed to unwind asset entry after liability update failure")
		}
		e.mu.Unlock()
		return nil, fmt.Errorf("failed to record capital liability: %w", err)
	}
	e.committed = newCommitted
	e.custodyBal = e.custodyBal.Add(capital)
	e.contracts[contract.ID] = contract
	result := contract.clone()
	e.inProgress[contract.ID] = struct{}{}
	e.mu.Unlock()

	// transfer strictly after bookkeeping; the contract stays marked
	// in-progress until the capital has actually arrived, so it cannot be
	// settled from inside the transfer
	if err := e.cust.TransferIn(ctx, caller, capital); err != nil {
		e.compensateFailedOpen(contract.ID, capital)
		return nil, fmt.Errorf("capital transfer into custody failed: %w", err)
	}

	e.mu.Lock()
	delete(e.inProgress, contract.ID)
	e.mu.Unlock()

	log.Ctx(ctx).Info().
		Str("contractId", contract.ID).
		Str("provider", caller.String()).
		Str("manager", manager.String()).
		Str("capital", capital.String()).
		Msg("contract opened")
	return result, nil
}

// compensateFailedOpen removes a contract whose inbound capital transfer
// never arrived. Without the funds the bookkeeping entries are fiction.
func (e *Engine) compensateFailedOpen(contractID string, capital sdkmath.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.inProgress, contractID)
	delete(e.contracts, contractID)
	e.custodyBal = e.custodyBal.Sub(capital)
	e.committed = e.committed.Sub(capital)
	if err := e.ledger.SetLiabilities(e.writerID, e.committed); err != nil {
		log.Error().Err(err).Str("contractId", contractID).Msg("failed to unwind liability after transfer failure")
	}
	if err := e.ledger.DecreaseAssets(e.writerID, capital); err != nil {
		log.Error().Err(err).Str("contractId", contractID).Msg("failed to unwind asset after transfer failure")
	}
}

// AdjustCustody marks custody value up or down between open and settlement,
// admin only. Gains are recorded as ledger assets; markdowns go through the
// ledger's loss path and may open a deficit.
func (e *Engine) AdjustCustody(caller types.Identity, delta sdkmath.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return &types.UnauthorizedError{Caller: caller, Required: RoleAdmin}
	}
	if delta.IsNil() || delta.IsZero() {
		return &types.ValidationError{Field: "delta", Message: "must not be zero"}
	}

	if delta.IsPositive() {
		if err := e.ledger.IncreaseAssets(e.writerID, delta); err != nil {
			return err
		}
		e.custodyBal = e.custodyBal.Add(delta)
		return nil
	}

	loss := delta.Neg()
	if loss.GT(e.custodyBal) {
		return &types.ValidationError{Field: "delta", Message: "markdown exceeds custody balance"}
	}
	if err := e.ledger.ReportLoss(e.writerID, loss); err != nil {
		return err
	}
	e.custodyBal = e.custodyBal.Sub(loss)
	return nil
}

// Settle closes a contract at finalBalance and pays out both parties.
// Profit is split multiply-before-divide with the provider taking the
// remainder, so the payouts always sum to finalBalance exactly. On a loss
// the provider receives the final balance, the manager nothing, and the
// contract is burned.
func (e *Engine) Settle(ctx context.Context, caller types.Identity, contractID string, finalBalance sdkmath.Int) (*Outcome, error) {
	if err := types.RequireNonNegative("finalBalance", finalBalance); err != nil {
		return nil, err
	}

	e.mu.Lock()

	if _, busy := e.inProgress[contractID]; busy {
		e.mu.Unlock()
		return nil, &ReentrantCallError{ContractID: contractID}
	}
	contract, ok := e.contracts[contractID]
	if !ok {
		e.mu.Unlock()
		return nil, &ContractNotFoundError{ContractID: contractID}
	}
	if !utils.Contains(types.QualifiedStatesForSettlement(), contract.Status) {
		status := contract.Status
		e.mu.Unlock()
		return nil, &AlreadySettledError{ContractID: contractID, Status: status}
	}
	if caller != contract.Manager {
		expected := contract.Manager
		e.mu.Unlock()
		return nil, &NotManagerError{Caller: caller, Expected: expected}
	}

	// capital earmarked for other active contracts is untouchable
	available := e.availableForLocked(contractID)
	if finalBalance.GT(available) {
		e.mu.Unlock()
		return nil, &InsufficientAvailableBalanceError{Requested: finalBalance, Available: available}
	}

	providerPayout, managerPayout := splitPayouts(contract.Capital, finalBalance, contract.ManagerShareBps)

	outcome := &Outcome{
		Profit:         sdkmath.ZeroInt(),
		Loss:           sdkmath.ZeroInt(),
		ProviderPayout: providerPayout,
		ManagerPayout:  managerPayout,
	}

	// status flips before any funds move (I2 guards the flip itself)
	if finalBalance.GT(contract.Capital) {
		contract.Status = types.StatusSettled
		outcome.Profit = finalBalance.Sub(contract.Capital)
	} else {
		contract.Status = types.StatusBurned
		outcome.Loss = contract.Capital.Sub(finalBalance)
	}
	contract.FinalBalance = finalBalance
	contract.SettledAt = time.Now().UTC()

	// release this contract's capital liability
	e.committed = e.committed.Sub(contract.Capital)
	if err := e.ledger.SetLiabilities(e.writerID, e.committed); err != nil {
		// ledger writer misconfiguration; nothing external has happened yet
		e.revertSettleLocked(contract)
		e.mu.Unlock()
		return nil, fmt.Errorf("failed to release capital liability: %w", err)
	}

	// write off the part of a shortfall still sitting unallocated in
	// custody; markdowns during the contract's life already reported the
	// rest
	if outcome.Loss.IsPositive() {
		unallocated := available.Sub(finalBalance)
		writeOff := sdkmath.MinInt(outcome.Loss, unallocated)
		if writeOff.IsPositive() {
			if err := e.ledger.ReportLoss(e.writerID, writeOff); err != nil {
				e.revertSettleLocked(contract)
				e.mu.Unlock()
				return nil, fmt.Errorf("failed to report settlement loss: %w", err)
			}
			e.custodyBal = e.custodyBal.Sub(writeOff)
		}
	}

	if finalBalance.IsPositive() {
		if err := e.ledger.DecreaseAssets(e.writerID, finalBalance); err != nil {
			e.revertSettleLocked(contract)
			e.mu.Unlock()
			return nil, fmt.Errorf("failed to release settled assets: %w", err)
		}
		e.custodyBal = e.custodyBal.Sub(finalBalance)
	}

	outcome.Contract = contract.clone()
	e.inProgress[contractID] = struct{}{}
	e.mu.Unlock()

	// payout transfers happen only after the terminal flip and ledger
	// release; re-entrant calls against this contract are rejected until
	// both transfers return
	var transferErr error
	if providerPayout.IsPositive() {
		if err := e.cust.TransferOut(ctx, contract.FundProvider, providerPayout); err != nil {
			transferErr = fmt.Errorf("provider payout transfer failed: %w", err)
		}
	}
	if transferErr == nil && managerPayout.IsPositive() {
		if err := e.cust.TransferOut(ctx, contract.Manager, managerPayout); err != nil {
			transferErr = fmt.Errorf("manager payout transfer failed: %w", err)
		}
	}

	e.mu.Lock()
	delete(e.inProgress, contractID)
	e.mu.Unlock()

	if transferErr != nil {
		// the contract stays terminal: settlement happened, the payout
		// needs operator attention
		log.Ctx(ctx).Error().Err(transferErr).
			Str("contractId", contractID).
			Msg("settlement payout transfer failed after terminal transition")
		return outcome, transferErr
	}

	log.Ctx(ctx).Info().
		Str("contractId", contractID).
		Str("status", outcome.Contract.Status.String()).
		Str("providerPayout", providerPayout.String()).
		Str("managerPayout", managerPayout.String()).
		Msg("contract settled")
	return outcome, nil
}

// revertSettleLocked undoes the in-memory transition after a ledger write
// failed mid-settlement. Callers hold the mutex.
func (e *Engine) revertSettleLocked(contract *Contract) {
	contract.Status = types.StatusActive
	contract.FinalBalance = sdkmath.ZeroInt()
	contract.SettledAt = time.Time{}
	e.committed = e.committed.Add(contract.Capital)
	if err := e.ledger.SetLiabilities(e.writerID, e.committed); err != nil {
		log.Error().Err(err).Str("contractId", contract.ID).Msg("failed to restore liability during settlement revert")
	}
}

// Contract returns a copy of the contract.
func (e *Engine) Contract(contractID string) (*Contract, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	contract, ok := e.contracts[contractID]
	if !ok {
		return nil, &ContractNotFoundError{ContractID: contractID}
	}
	return contract.clone(), nil
}

// ActiveContracts returns copies of every active contract.
func (e *Engine) ActiveContracts() []*Contract {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*Contract
	for _, c := range e.contracts {
		if c.Status == types.StatusActive {
			out = append(out, c.clone())
		}
	}
	return out
}

func (e *Engine) CustodyBalance() sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.custodyBal
}

// AvailableFor returns the custody balance not earmarked for other active
// contracts' capital.
func (e *Engine) AvailableFor(contractID string) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.contracts[contractID]; !ok {
		return sdkmath.Int{}, &ContractNotFoundError{ContractID: contractID}
	}
	return e.availableForLocked(contractID), nil
}

func (e *Engine) availableForLocked(contractID string) sdkmath.Int {
	earmarked := sdkmath.ZeroInt()
	for id, c := range e.contracts {
		if id == contractID || c.Status != types.StatusActive {
			continue
		}
		earmarked = earmarked.Add(c.Capital)
	}
	available := e.custodyBal.Sub(earmarked)
	if available.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return available
}

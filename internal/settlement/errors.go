package settlement

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// ContractNotFoundError is returned when no contract exists for the id.
type ContractNotFoundError struct {
	ContractID string
}

func (e *ContractNotFoundError) Error() string {
	return fmt.Sprintf("contract %s not found", e.ContractID)
}

func IsContractNotFoundError(err error) bool {
	var target *ContractNotFoundError
	return errors.As(err, &target)
}

// AlreadySettledError is returned on any second settlement attempt,
// regardless of arguments. A contract is mutated exactly once.
type AlreadySettledError struct {
	ContractID string
	Status     types.ContractStatus
}

func (e *AlreadySettledError) Error() string {
	return fmt.Sprintf("contract %s already settled with status %s", e.ContractID, e.Status)
}

func IsAlreadySettledError(err error) bool {
	var target *AlreadySettledError
	return errors.As(err, &target)
}

// NotManagerError is returned when anyone but the contract's designated
// manager attempts settlement.
type NotManagerError struct {
	Caller   types.Identity
	Expected types.Identity
}

func (e *NotManagerError) Error() string {
	return fmt.Sprintf("caller %q is not the contract manager %q", e.Caller, e.Expected)
}

func IsNotManagerError(err error) bool {
	var target *NotManagerError
	return errors.As(err, &target)
}

// InsufficientAvailableBalanceError is returned when a settlement would
// drain capital earmarked for other active contracts.
type InsufficientAvailableBalanceError struct {
	Requested sdkmath.Int
	Available sdkmath.Int
}

func (e *InsufficientAvailableBalanceError) Error() string {
	return fmt.Sprintf("insufficient available balance: requested %s, available %s", e.Requested, e.Available)
}

func IsInsufficientAvailableBalanceError(err error) bool {
	var target *InsufficientAvailableBalanceError
	return errors.As(err, &target)
}

// ReentrantCallError is returned when a contract is touched again while its
// settlement is still in the external-transfer phase.
type ReentrantCallError struct {
	ContractID string
}

func (e *ReentrantCallError) Error() string {
	return fmt.Sprintf("reentrant call on contract %s", e.ContractID)
}

func IsReentrantCallError(err error) bool {
	var target *ReentrantCallError
	return errors.As(err, &target)
}

// CounterpartyNotApprovedError is returned when the allow-list rejects a
// counterparty before any custody transfer.
type CounterpartyNotApprovedError struct {
	Identity types.Identity
}

func (e *CounterpartyNotApprovedError) Error() string {
	return fmt.Sprintf("counterparty %q is not on the allow-list", e.Identity)
}

func IsCounterpartyNotApprovedError(err error) bool {
	var target *CounterpartyNotApprovedError
	return errors.As(err, &target)
}

// InvalidSplitError is returned when the share ratios do not sum to exactly
// 10000 basis points.
type InvalidSplitError struct {
	ProviderBps uint16
	ManagerBps  uint16
}

func (e *InvalidSplitError) Error() string {
	return fmt.Sprintf("share split %d/%d bps does not sum to %d", e.ProviderBps, e.ManagerBps, types.BpsDenominator)
}

func IsInvalidSplitError(err error) bool {
	var target *InvalidSplitError
	return errors.As(err, &target)
}

package effort

import (
	"errors"
	"fmt"

	"github.com/fundlock-io/settlement-ledger/internal/types"
)

// ContractNotActiveError is returned when effort is recorded against a
// contract that is unknown, already settled, or burned.
type ContractNotActiveError struct {
	ContractID string
}

func (e *ContractNotActiveError) Error() string {
	return fmt.Sprintf("contract %s has no active effort record", e.ContractID)
}

func IsContractNotActiveError(err error) bool {
	var target *ContractNotActiveError
	return errors.As(err, &target)
}

// AlreadyBurnedError is returned on a second burn of the same contract.
// Burned units stay burned.
type AlreadyBurnedError struct {
	ContractID string
}

func (e *AlreadyBurnedError) Error() string {
	return fmt.Sprintf("effort for contract %s is already burned", e.ContractID)
}

func IsAlreadyBurnedError(err error) bool {
	var target *AlreadyBurnedError
	return errors.As(err, &target)
}

// AlreadyRegisteredError is returned when a contract id is registered twice.
type AlreadyRegisteredError struct {
	ContractID string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("effort record for contract %s already exists", e.ContractID)
}

func IsAlreadyRegisteredError(err error) bool {
	var target *AlreadyRegisteredError
	return errors.As(err, &target)
}

// ZeroWeightError is returned when the weight table holds no positive weight
// for an action kind. Recording a weightless action would be a silent no-op.
type ZeroWeightError struct {
	ActionKind types.ActionKind
}

func (e *ZeroWeightError) Error() string {
	return fmt.Sprintf("action kind %s has no positive weight configured", e.ActionKind)
}

func IsZeroWeightError(err error) bool {
	var target *ZeroWeightError
	return errors.As(err, &target)
}

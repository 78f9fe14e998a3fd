package ledger

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// InsufficientAssetsError is returned when a withdrawal or loss exceeds the
// assets currently on the books.
type InsufficientAssetsError struct {
	Requested sdkmath.Int
	Available sdkmath.Int
}

func (e *InsufficientAssetsError) Error() string {
	return fmt.Sprintf("insufficient assets: requested %s, available %s", e.Requested, e.Available)
}

func IsInsufficientAssetsError(err error) bool {
	var target *InsufficientAssetsError
	return errors.As(err, &target)
}

// SolvencyViolationError is returned when a voluntary withdrawal would leave
// assets below liabilities. The operation is rejected with no effect.
type SolvencyViolationError struct {
	Assets      sdkmath.Int
	Liabilities sdkmath.Int
}

func (e *SolvencyViolationError) Error() string {
	return fmt.Sprintf("solvency violation: assets %s would fall below liabilities %s", e.Assets, e.Liabilities)
}

func IsSolvencyViolationError(err error) bool {
	var target *SolvencyViolationError
	return errors.As(err, &target)
}

// LossExceedsAssetsError is returned when a reported loss is larger than the
// total assets on the books. A loss can push the ledger into deficit but it
// cannot destroy assets that were never recorded.
type LossExceedsAssetsError struct {
	Loss   sdkmath.Int
	Assets sdkmath.Int
}

func (e *LossExceedsAssetsError) Error() string {
	return fmt.Sprintf("loss %s exceeds total assets %s", e.Loss, e.Assets)
}

func IsLossExceedsAssetsError(err error) bool {
	var target *LossExceedsAssetsError
	return errors.As(err, &target)
}

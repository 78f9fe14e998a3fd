package types

import sdkmath "cosmossdk.io/math"

// RequirePositive rejects nil, zero, and negative amounts before any
// mutation takes place.
func RequirePositive(field string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return &ValidationError{Field: field, Message: "must be positive"}
	}
	return nil
}

// RequireNonNegative rejects nil and negative amounts.
func RequireNonNegative(field string, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return &ValidationError{Field: field, Message: "must not be negative"}
	}
	return nil
}

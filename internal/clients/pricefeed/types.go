package pricefeed

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

// ValidatedPrice is a price observation that has passed all three validity
// checks: positive answer, complete round, and freshness.
type ValidatedPrice struct {
	Price     sdkmath.Int
	Decimals  uint8
	UpdatedAt time.Time
}

// InvalidPriceError is returned when a feed reports a non-positive answer.
type InvalidPriceError struct {
	Feed  string
	Price sdkmath.Int
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("feed %s reported invalid price %s", e.Feed, e.Price)
}

func IsInvalidPriceError(err error) bool {
	var target *InvalidPriceError
	return errors.As(err, &target)
}

// IncompleteRoundError is returned when a feed's round has not finished
// aggregating.
type IncompleteRoundError struct {
	Feed            string
	RoundID         uint64
	AnsweredInRound uint64
}

func (e *IncompleteRoundError) Error() string {
	return fmt.Sprintf("feed %s round %d answered in round %d, round incomplete", e.Feed, e.RoundID, e.AnsweredInRound)
}

func IsIncompleteRoundError(err error) bool {
	var target *IncompleteRoundError
	return errors.As(err, &target)
}

// StaleDataError is returned when a feed's last update is older than the
// configured maximum age. Stale data is unavailable data, never a fallback.
type StaleDataError struct {
	Feed      string
	UpdatedAt time.Time
	Now       time.Time
	MaxAge    time.Duration
}

func (e *StaleDataError) Error() string {
	return fmt.Sprintf("feed %s updated at %s is stale at %s (max age %s)",
		e.Feed, e.UpdatedAt.Format(time.RFC3339), e.Now.Format(time.RFC3339), e.MaxAge)
}

func IsStaleDataError(err error) bool {
	var target *StaleDataError
	return errors.As(err, &target)
}

package backtest

import (
	"errors"
	"fmt"

	"github.com/etnz/backtest/date"
)

var (
	// ErrNoStrategy is returned by Run when no strategy has been set.
	ErrNoStrategy = errors.New("no strategy set, call SetStrategy before Run")
	// ErrDivisionByZero is matched by errors.Is on a *ZeroPriceError.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrMisaligned is returned when the feature and price series do not share their index.
	ErrMisaligned = errors.New("feature and price series are not aligned")
	// ErrUnknownSymbol is returned when an allocation names a symbol absent from the prices.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrStartIndex is returned by Run on a negative start index.
	ErrStartIndex = errors.New("invalid start index")
	// ErrStartBalance is returned by New on a non positive starting balance.
	ErrStartBalance = errors.New("starting balance must be positive")
)

// InvalidAllocationError reports weights that sum neither to ~0 nor to ~1.
type InvalidAllocationError struct {
	Checksum float64
}

func (e *InvalidAllocationError) Error() string {
	return fmt.Sprintf("invalid allocation: weights sum to %v, want 0 or 1 (±%v)", e.Checksum, Tolerance)
}

// MissingPriceError reports a symbol with no price at a date.
type MissingPriceError struct {
	Symbol string
	On     date.Date
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("missing price for %q on %s", e.Symbol, e.On)
}

// ZeroPriceError reports a zero price met while converting weights into quantities.
type ZeroPriceError struct {
	Symbol string
	On     date.Date
}

func (e *ZeroPriceError) Error() string {
	return fmt.Sprintf("price of %q is zero on %s: %v", e.Symbol, e.On, ErrDivisionByZero)
}

func (e *ZeroPriceError) Unwrap() error { return ErrDivisionByZero }

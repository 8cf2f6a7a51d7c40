package date

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// ErrNotIncreasing is returned when an Index would not be strictly increasing.
var ErrNotIncreasing = errors.New("dates are not strictly increasing")

// Index is a chronological, strictly increasing sequence of dates.
//
// It is the time axis shared by every series of a backtest. The zero value is an empty
// index ready to use.
type Index struct {
	days []Date
}

// NewIndex returns an index over days, which must be strictly increasing.
func NewIndex(days ...Date) (Index, error) {
	for i := 1; i < len(days); i++ {
		if !days[i-1].Before(days[i]) {
			return Index{}, fmt.Errorf("%w: %s is not before %s at position %d", ErrNotIncreasing, days[i-1], days[i], i)
		}
	}
	return Index{days: slices.Clone(days)}, nil
}

// Append adds day at the end of the index. It must be after the latest day.
func (x *Index) Append(day Date) error {
	if n := len(x.days); n > 0 && !x.days[n-1].Before(day) {
		return fmt.Errorf("%w: cannot append %s after %s", ErrNotIncreasing, day, x.days[n-1])
	}
	x.days = append(x.days, day)
	return nil
}

// Len returns the number of dates in the index.
func (x Index) Len() int { return len(x.days) }

// At returns the i-th date.
func (x Index) At(i int) Date { return x.days[i] }

// Latest returns the latest date, or zero value if the index is empty.
func (x Index) Latest() Date {
	if len(x.days) == 0 {
		return Date{}
	}
	return x.days[len(x.days)-1]
}

// Position returns the position of day in the index and true, or the position where it
// would be inserted and false.
func (x Index) Position(day Date) (int, bool) {
	return slices.BinarySearchFunc(x.days, day, Date.Compare)
}

// Upto returns the number of dates on or before day.
func (x Index) Upto(day Date) int {
	i, found := x.Position(day)
	if found {
		return i + 1
	}
	return i
}

// Slice returns the sub index [i:j].
func (x Index) Slice(i, j int) Index { return Index{days: x.days[i:j:j]} }

// Dates returns a copy of the dates.
func (x Index) Dates() []Date { return slices.Clone(x.days) }

// Equal reports whether both indexes hold the same dates.
func (x Index) Equal(y Index) bool { return slices.Equal(x.days, y.days) }

// All returns an iterator over positions and dates, in chronological order.
func (x Index) All() iter.Seq2[int, Date] {
	return func(yield func(int, Date) bool) {
		for i, on := range x.days {
			if !yield(i, on) {
				return
			}
		}
	}
}

package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveIncrement = errors.New("increment must be positive")
	ErrNegativeMinPrice     = errors.New("min price must not be negative")
	ErrEmptyBand            = errors.New("max price must be greater than min price")
	ErrOverlappingBands     = errors.New("price bands overlap")
)

// RuleBand is one increment band: the increment applies while the current
// price sits in [MinPrice, MaxPrice). MaxPrice nil means unbounded above.
// HorseID nil scopes the band to the auction default set.
type RuleBand struct {
	HorseID   *uuid.UUID
	MinPrice  decimal.Decimal
	MaxPrice  *decimal.Decimal
	Increment decimal.Decimal
}

func (b RuleBand) matches(price decimal.Decimal) bool {
	if price.LessThan(b.MinPrice) {
		return false
	}
	return b.MaxPrice == nil || price.LessThan(*b.MaxPrice)
}

// RuleSet resolves the minimum increment for a horse at a price point.
// A horse with at least one band of its own uses only its own bands;
// otherwise the defaults apply. When nothing matches, the auction's global
// minimum increment is the fallback.
type RuleSet struct {
	fallback decimal.Decimal
	defaults []RuleBand
	byHorse  map[uuid.UUID][]RuleBand
}

// NewRuleSet groups bands by scope. The fallback is the auction's global
// minimum increment.
func NewRuleSet(fallback decimal.Decimal, bands []RuleBand) RuleSet {
	rs := RuleSet{
		fallback: fallback,
		byHorse:  make(map[uuid.UUID][]RuleBand),
	}
	for _, b := range bands {
		if b.HorseID == nil {
			rs.defaults = append(rs.defaults, b)
			continue
		}
		rs.byHorse[*b.HorseID] = append(rs.byHorse[*b.HorseID], b)
	}
	return rs
}

// IncrementAt returns the increment applicable for the horse at the given
// price. Among matching bands the one with the greatest MinPrice wins.
func (rs RuleSet) IncrementAt(horseID uuid.UUID, price decimal.Decimal) decimal.Decimal {
	if own, ok := rs.byHorse[horseID]; ok && len(own) > 0 {
		if inc, ok := pickBand(own, price); ok {
			return inc
		}
		// Horse-specific rules shadow the defaults even when no band
		// matches; fall through to the global fallback only.
		return rs.fallback
	}
	if inc, ok := pickBand(rs.defaults, price); ok {
		return inc
	}
	return rs.fallback
}

func pickBand(bands []RuleBand, price decimal.Decimal) (decimal.Decimal, bool) {
	found := false
	var best RuleBand
	for _, b := range bands {
		if !b.matches(price) {
			continue
		}
		if !found || b.MinPrice.GreaterThan(best.MinPrice) {
			best = b
			found = true
		}
	}
	if !found {
		return decimal.Decimal{}, false
	}
	return best.Increment, true
}

// ValidateBands rejects malformed or overlapping bands within one scope.
// Callers validate each scope (default set, every horse-specific set)
// separately at rule-creation time so the resolver never sees ambiguous
// input.
func ValidateBands(bands []RuleBand) error {
	for _, b := range bands {
		if !b.Increment.IsPositive() {
			return fmt.Errorf("%w: got %s", ErrNonPositiveIncrement, b.Increment)
		}
		if b.MinPrice.IsNegative() {
			return fmt.Errorf("%w: got %s", ErrNegativeMinPrice, b.MinPrice)
		}
		if b.MaxPrice != nil && !b.MaxPrice.GreaterThan(b.MinPrice) {
			return fmt.Errorf("%w: [%s, %s)", ErrEmptyBand, b.MinPrice, b.MaxPrice)
		}
	}

	sorted := make([]RuleBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinPrice.LessThan(sorted[j].MinPrice)
	})
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if prev.MaxPrice == nil || next.MinPrice.LessThan(*prev.MaxPrice) {
			return fmt.Errorf("%w: band starting at %s overlaps previous band", ErrOverlappingBands, next.MinPrice)
		}
	}
	return nil
}

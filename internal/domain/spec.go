package domain

import (
	"fmt"
	"time"
)

// SpecType discriminates the two resolution recipes. It is written once at
// market creation and never changes afterwards.
type SpecType string

const (
	SpecDiscrete   SpecType = "discrete"
	SpecContiguous SpecType = "contiguous"
)

// Category is one of the fixed discrete taxonomy entries the classifier may
// choose. Anything outside the taxonomy falls back to a contiguous spec.
type Category string

const (
	CategoryCrypto   Category = "crypto"
	CategoryStock    Category = "stock"
	CategoryCurrency Category = "currency"
	CategoryWeather  Category = "weather"
	CategorySports   Category = "sports"
)

// ValidCategory reports whether c is one of the five discrete categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryCrypto, CategoryStock, CategoryCurrency, CategoryWeather, CategorySports:
		return true
	}
	return false
}

// Comparator is the stored comparison operator applied to the extracted value.
type Comparator string

const (
	CompareGT Comparator = ">"
	CompareLT Comparator = "<"
	CompareGE Comparator = ">="
	CompareLE Comparator = "<="
	CompareEQ Comparator = "=="
	CompareNE Comparator = "!="
)

// Apply evaluates `value <op> target` and returns an error for an operator
// outside the supported set.
func (c Comparator) Apply(value, target float64) (bool, error) {
	switch c {
	case CompareGT:
		return value > target, nil
	case CompareLT:
		return value < target, nil
	case CompareGE:
		return value >= target, nil
	case CompareLE:
		return value <= target, nil
	case CompareEQ:
		return value == target, nil
	case CompareNE:
		return value != target, nil
	default:
		return false, fmt.Errorf("domain: unknown comparator %q", string(c))
	}
}

// OracleSpec is the persisted resolution recipe for a market. Discrete specs
// carry a source descriptor, extraction path, comparator, and target;
// contiguous specs carry only a free-text summary for the judges.
type OracleSpec struct {
	MarketID uint64
	Type     SpecType

	// Discrete fields.
	Category   Category
	SourceID   string // feed key: asset id, currency code, city, or team name
	Path       string // dot/bracket extraction path into the source document
	Comparator Comparator
	Target     float64
	ResolveAt  time.Time

	// Contiguous fields.
	Summary string

	CreatedAt time.Time
}

// ContiguousSpec builds a contiguous fallback spec. It is the constructor
// every classification failure path funnels through.
func ContiguousSpec(marketID uint64, summary string) OracleSpec {
	return OracleSpec{
		MarketID:  marketID,
		Type:      SpecContiguous,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}
}

// Package meal models the seeded meal library. Entries are immutable
// at runtime; deactivation hides a meal from selection without
// breaking references from past decisions.
package meal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CostBand buckets a meal's expected cost.
type CostBand string

const (
	CostLow    CostBand = "$"
	CostMedium CostBand = "$$"
	CostHigh   CostBand = "$$$"
)

// Valid reports whether the band is a known bucket.
func (c CostBand) Valid() bool {
	switch c {
	case CostLow, CostMedium, CostHigh:
		return true
	}
	return false
}

// Meal is one library entry.
type Meal struct {
	ID           string
	CanonicalKey string
	Title        string
	StepsShort   string
	EstMinutes   int
	CostBand     CostBand
	Tags         []string
	Active       bool
	CreatedAt    time.Time
}

// Ingredient relates a meal to one required ingredient. Pantry staples
// are assumed always on hand: they are never scored against inventory
// and never consumed.
type Ingredient struct {
	ID           string
	MealID       string
	Name         string
	QtyText      string
	PantryStaple bool
}

// PantryFriendly reports whether a meal can be cooked from staples
// alone. Meals without ingredients count as friendly.
func PantryFriendly(ingredients []Ingredient) bool {
	for _, ing := range ingredients {
		if !ing.PantryStaple {
			return false
		}
	}
	return true
}

var qtyNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseQuantity extracts a positive number from free-form quantity
// text ("2", "1.5 lb", "3 cloves"). Unparseable or non-positive text
// defaults to 1.
func ParseQuantity(qtyText string) float64 {
	m := qtyNumber.FindString(strings.TrimSpace(qtyText))
	if m == "" {
		return 1
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v <= 0 {
		return 1
	}
	return v
}

package meal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"2", 2},
		{"1.5 lb", 1.5},
		{"3 cloves", 3},
		{"  0.5 cup ", 0.5},
		{"a pinch", 1},
		{"", 1},
		{"0", 1},
		{"to taste", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseQuantity(tc.text), "text %q", tc.text)
	}
}

func TestPantryFriendly(t *testing.T) {
	staple := Ingredient{Name: "rice", PantryStaple: true}
	fresh := Ingredient{Name: "chicken breast", PantryStaple: false}

	assert.True(t, PantryFriendly(nil))
	assert.True(t, PantryFriendly([]Ingredient{staple}))
	assert.False(t, PantryFriendly([]Ingredient{staple, fresh}))
}

func TestCostBandValid(t *testing.T) {
	assert.True(t, CostLow.Valid())
	assert.True(t, CostMedium.Valid())
	assert.True(t, CostHigh.Valid())
	assert.False(t, CostBand("$$$$").Valid())
	assert.False(t, CostBand("").Valid())
}

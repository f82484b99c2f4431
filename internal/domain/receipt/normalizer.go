package receipt

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/suppertime/v1/internal/domain/matching"
)

// NormalizedLine is the cleaned form of one parsed line.
type NormalizedLine struct {
	Name       string
	Unit       string
	Qty        *float64
	Confidence float64
}

// Confidence tiers. Exact abbreviation hits are trusted most. Names
// that needed no expansion but land in a concrete pantry category
// ("MILK", "EGGS") come next: the word is real grocery vocabulary even
// though no mapping fired. Token-level expansions are guesses, and
// names nothing recognizes rank last. A parsed quantity nudges
// confidence up because it usually means the line really is an item.
const (
	exactMatchConfidence     = 0.95
	recognizedNameConfidence = 0.75
	partialMatchConfidence   = 0.60
	unknownConfidence        = 0.40
	qtyConfidenceBonus       = 0.05
)

// Whole-phrase receipt abbreviations. Checked before token-level
// replacement so multiword shorthand keeps its intended reading.
var phraseMap = map[string]string{
	"chk brst":     "chicken breast",
	"chkn brst":    "chicken breast",
	"chicken brst": "chicken breast",
	"chk thgh":     "chicken thighs",
	"grnd bf":      "ground beef",
	"grnd beef":    "ground beef",
	"gr beef":      "ground beef",
	"grnd trky":    "ground turkey",
	"tom roma":     "roma tomatoes",
	"roma tom":     "roma tomatoes",
	"whl mlk":      "whole milk",
	"skm mlk":      "skim milk",
	"grk ygrt":     "greek yogurt",
	"shrd chs":     "shredded cheese",
	"grn onion":    "green onions",
	"swt pot":      "sweet potatoes",
	"bby spin":     "baby spinach",
	"wht brd":      "white bread",
	"pnt bttr":     "peanut butter",
	"olv oil":      "olive oil",
}

// Single-token abbreviations applied when no whole phrase matched.
var tokenMap = map[string]string{
	"chk":    "chicken",
	"chkn":   "chicken",
	"bf":     "beef",
	"trky":   "turkey",
	"brst":   "breast",
	"thgh":   "thigh",
	"grnd":   "ground",
	"bnls":   "boneless",
	"sknls":  "skinless",
	"mlk":    "milk",
	"whl":    "whole",
	"skm":    "skim",
	"chs":    "cheese",
	"chz":    "cheese",
	"chdr":   "cheddar",
	"ygrt":   "yogurt",
	"yogrt":  "yogurt",
	"bttr":   "butter",
	"lttc":   "lettuce",
	"tom":    "tomato",
	"tmto":   "tomato",
	"toms":   "tomatoes",
	"avo":    "avocado",
	"brd":    "bread",
	"wht":    "white",
	"grn":    "green",
	"swt":    "sweet",
	"ppr":    "pepper",
	"spin":   "spinach",
	"broc":   "broccoli",
	"zucc":   "zucchini",
	"cuc":    "cucumber",
	"mush":   "mushrooms",
	"strawb": "strawberries",
	"veg":    "vegetable",
	"org":    "organic",
	"pnt":    "peanut",
	"olv":    "olive",
}

// Unit spellings collapsed to a canonical form.
var unitMap = map[string]string{
	"lb":     "lb",
	"lbs":    "lb",
	"pound":  "lb",
	"pounds": "lb",
	"oz":     "oz",
	"ounce":  "oz",
	"ounces": "oz",
	"ct":     "count",
	"cnt":    "count",
	"count":  "count",
	"ea":     "each",
	"each":   "each",
	"kg":     "kg",
	"g":      "g",
	"gram":   "g",
	"grams":  "g",
	"dz":     "dozen",
	"dozen":  "dozen",
	"pk":     "pack",
	"pack":   "pack",
	"gal":    "gal",
	"gallon": "gal",
	"qt":     "qt",
	"quart":  "qt",
	"l":      "l",
	"liter":  "l",
	"litre":  "l",
}

var qtyValueUnit = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-z]+)?`)

// Normalize maps a parsed line to its canonical name, unit, and
// quantity with a confidence score in [0,1].
func Normalize(line ParsedLine) NormalizedLine {
	name := foldName(line.Name)

	var out NormalizedLine
	if canonical, ok := phraseMap[name]; ok {
		out.Name = canonical
		out.Confidence = exactMatchConfidence
	} else if replaced, hit := expandTokens(name); hit {
		out.Name = replaced
		out.Confidence = partialMatchConfidence
	} else if matching.InferCategory(matching.Tokenize(name)) != matching.CategoryOther {
		out.Name = name
		out.Confidence = recognizedNameConfidence
	} else {
		out.Name = name
		out.Confidence = unknownConfidence
	}

	if qty, unit, ok := parseQtyText(line.QtyText); ok {
		out.Qty = qty
		out.Unit = unit
		out.Confidence += qtyConfidenceBonus
	}

	if out.Confidence > 1 {
		out.Confidence = 1
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	return out
}

// foldName lowercases and reduces punctuation runs to single spaces
// so printed variants of the same shorthand compare equal.
func foldName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func expandTokens(name string) (string, bool) {
	tokens := strings.Fields(name)
	hit := false
	for i, tok := range tokens {
		if full, ok := tokenMap[tok]; ok {
			tokens[i] = full
			hit = true
		}
	}
	return strings.Join(tokens, " "), hit
}

// parseQtyText reads forms like "2.5 LB", "x2", "QTY: 3", "12 CT".
func parseQtyText(qtyText string) (*float64, string, bool) {
	text := strings.ToLower(strings.TrimSpace(qtyText))
	if text == "" {
		return nil, "", false
	}
	m := qtyValueUnit.FindStringSubmatch(text)
	if m == nil {
		return nil, "", false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return nil, "", false
	}
	unit := ""
	if m[2] != "" {
		if canonical, ok := unitMap[strings.TrimSuffix(m[2], "s")]; ok {
			unit = canonical
		} else if canonical, ok := unitMap[m[2]]; ok {
			unit = canonical
		}
	}
	return &v, unit, true
}

package receipt

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParsedLine is one kept receipt line before normalization.
type ParsedLine struct {
	Raw     string
	Name    string
	QtyText string
	Price   *float64
}

// ParseResult carries the kept lines plus receipt-level extractions.
type ParseResult struct {
	Lines       []ParsedLine
	Vendor      string
	PurchasedAt *time.Time
	LinesSeen   int
	Ignored     int
}

// Lines that never describe purchasable items. Matched case-insensitively
// against the whole line; adding patterns is safe, removing them changes
// what reaches inventory.
var ignorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsub\s*total\b`),
	regexp.MustCompile(`(?i)\btotal\b`),
	regexp.MustCompile(`(?i)\btax\b`),
	regexp.MustCompile(`(?i)\b(visa|mastercard|amex|discover|debit|credit|cash|change|tender|auth)\b`),
	regexp.MustCompile(`(?i)thank\s*you`),
	regexp.MustCompile(`(?i)\bstore\s*#?\s*\d+`),
	regexp.MustCompile(`(?i)\b(cashier|register|terminal|lane|transaction)\b`),
	contactLine,
	regexp.MustCompile(`(?i)\b(saving|savings|discount|coupon)\b`),
	regexp.MustCompile(`(?i)\b(balance|points?|rewards?)\b`),
}

var contactLine = regexp.MustCompile(`(?i)\b(tel|phone|fax)\b`)

var (
	dateTimeOnlyLine = regexp.MustCompile(`^\s*\d{1,4}[/\-.]\d{1,2}[/\-.]\d{1,4}(?:[ T]+\d{1,2}:\d{2}(?::\d{2})?\s*(?:[APap][Mm])?)?\s*$`)
	timeOnlyLine     = regexp.MustCompile(`^\s*\d{1,2}:\d{2}(?::\d{2})?\s*(?:[APap][Mm])?\s*$`)

	dollarAmount  = regexp.MustCompile(`\$\s*\d+(?:\.\d{2})?`)
	trailingPrice = regexp.MustCompile(`(\d{1,3}\.\d{2})\s*[A-Za-z]?\s*$`)

	// Quantity forms, tried in order; the first hit wins.
	qtyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*@`),
		regexp.MustCompile(`(?i)(?:^|\s)[Xx]\s*\d+(?:\.\d+)?\b`),
		regexp.MustCompile(`(?i)\bqty:?\s*\d+(?:\.\d+)?\b`),
		regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:ct|ea|lb|oz|kg|g|dz|pk)s?\b`),
	}

	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
	dashDatePattern  = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{2,4})\b`)
)

// Parse splits OCR text into item lines, discarding receipt furniture
// (totals, payment lines, headers, separators), and extracts the
// vendor name and purchase date.
func Parse(text string) ParseResult {
	var result ParseResult
	rawLines := strings.Split(text, "\n")

	result.Vendor = extractVendor(rawLines)
	result.PurchasedAt = extractPurchaseDate(text)

	for _, raw := range rawLines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		result.LinesSeen++
		if shouldIgnore(line) {
			result.Ignored++
			continue
		}
		parsed, ok := parseItemLine(line)
		if !ok {
			result.Ignored++
			continue
		}
		result.Lines = append(result.Lines, parsed)
	}
	return result
}

func shouldIgnore(line string) bool {
	if len(line) < 3 || isPureDigits(line) || isSeparatorRun(line) {
		return true
	}
	if dateTimeOnlyLine.MatchString(line) || timeOnlyLine.MatchString(line) {
		return true
	}
	for _, p := range ignorePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func isPureDigits(line string) bool {
	seen := false
	for _, r := range line {
		if r == ' ' {
			continue
		}
		if !unicode.IsDigit(r) {
			return false
		}
		seen = true
	}
	return seen
}

func isSeparatorRun(line string) bool {
	seen := false
	for _, r := range line {
		switch r {
		case '-', '=', '_', '*', '#':
			seen = true
		case ' ', '\t':
		default:
			return false
		}
	}
	return seen
}

// parseItemLine pulls price and quantity out of a line; whatever text
// survives the stripping is the item name. Lines with neither a price
// nor a quantity are headers or continuations, not items.
func parseItemLine(line string) (ParsedLine, bool) {
	parsed := ParsedLine{Raw: line}
	residual := line

	// Dollar-tagged amounts are authoritative. A line may carry both a
	// unit price and a total ("2 @ $3.99 $7.98"); the last amount is
	// the line total. All of them leave the name.
	if amounts := dollarAmount.FindAllString(residual, -1); len(amounts) > 0 {
		last := amounts[len(amounts)-1]
		if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(last), "$")), 64); err == nil {
			parsed.Price = &v
		}
		for _, a := range amounts {
			residual = strings.Replace(residual, a, " ", 1)
		}
	} else if m := trailingPrice.FindStringSubmatch(residual); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0.10 && v < 1000 {
			parsed.Price = &v
			idx := trailingPrice.FindStringIndex(residual)
			residual = residual[:idx[0]]
		}
	}

	for _, p := range qtyPatterns {
		if m := p.FindString(residual); m != "" {
			parsed.QtyText = strings.TrimSpace(m)
			residual = strings.Replace(residual, m, " ", 1)
			break
		}
	}

	if parsed.Price == nil && parsed.QtyText == "" {
		return ParsedLine{}, false
	}
	parsed.Name = cleanResidual(residual)
	if len(parsed.Name) < 3 || !containsLetter(parsed.Name) {
		return ParsedLine{}, false
	}
	return parsed, true
}

func cleanResidual(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '@', '$', '#', '*', '=', '_':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// extractVendor takes the first plausible store name from the top of
// the receipt. Address and phone lines do not qualify.
func extractVendor(lines []string) string {
	limit := 5
	if len(lines) < limit {
		limit = len(lines)
	}
	for i := 0; i < limit; i++ {
		line := strings.TrimSpace(lines[i])
		if len(line) < 3 || isSeparatorRun(line) {
			continue
		}
		if unicode.IsDigit(rune(line[0])) {
			continue
		}
		if contactLine.MatchString(line) {
			continue
		}
		return line
	}
	return ""
}

// extractPurchaseDate finds the first date in the text. ISO dates win
// over US forms so that YYYY-MM-DD is never re-read as month-day-year.
func extractPurchaseDate(text string) *time.Time {
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		return makeDate(m[3], m[2], m[1])
	}
	if m := slashDatePattern.FindStringSubmatch(text); m != nil {
		return makeDate(m[2], m[1], m[3])
	}
	if m := dashDatePattern.FindStringSubmatch(text); m != nil {
		return makeDate(m[2], m[1], m[3])
	}
	return nil
}

func makeDate(dayStr, monthStr, yearStr string) *time.Time {
	day, err1 := strconv.Atoi(dayStr)
	month, err2 := strconv.Atoi(monthStr)
	year, err3 := strconv.Atoi(yearStr)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	if year < 100 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != month || t.Day() != day {
		return nil
	}
	return &t
}

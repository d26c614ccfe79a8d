package adapters

import (
	"regexp"
	"strconv"
	"strings"
)

// MOQ hints are reconciled from two independent sources: the native
// min/step attributes of the quantity input, and free-text warnings the
// site renders next to a row ("Minimum Order Qty: 10", "MOQ: 4",
// "sold in multiples of 5"). Both sources go through the same pattern
// set; when they disagree the larger value wins, since the raw input
// attributes are sometimes left at their defaults.
var (
	minQtyPattern   = regexp.MustCompile(`(?i)\bmin(?:imum)?(?:\s+order)?\s*(?:qty|quantity)?\s*[:\-]?\s*(\d+)`)
	moqPattern      = regexp.MustCompile(`(?i)\bmoq\s*[:\-]?\s*(\d+)`)
	multiplePattern = regexp.MustCompile(`(?i)\b(?:multiples?|packs?)\s+of\s+(\d+)`)
)

// ParseHints scans free-form text for minimum-quantity and order-multiple
// hints. It returns the largest value found per field, or 0 when a field
// has no hint at all. Absence of a hint is never an error.
func ParseHints(texts ...string) (min, step int) {
	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, re := range []*regexp.Regexp{minQtyPattern, moqPattern} {
			if m := re.FindStringSubmatch(text); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > min {
					min = n
				}
			}
		}
		if m := multiplePattern.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > step {
				step = n
			}
		}
	}
	return min, step
}

// ParseAttrHints parses the native min/step attributes of a quantity
// input. A step of "any" (or anything non-numeric) signals no constraint
// and is ignored.
func ParseAttrHints(minAttr, stepAttr string) (min, step int) {
	if n, err := strconv.Atoi(strings.TrimSpace(minAttr)); err == nil && n > 0 {
		min = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(stepAttr)); err == nil && n > 0 {
		step = n
	}
	return min, step
}

// Bump rounds a requested quantity up to the effective order quantity:
// at least min, and a multiple of step when step > 1.
func Bump(requested, min, step int) int {
	eff := requested
	if eff < 1 {
		eff = 1
	}
	if min > eff {
		eff = min
	}
	if step > 1 && eff%step != 0 {
		eff = (eff/step + 1) * step
	}
	return eff
}

// NeedsRetry reports whether either lookup result reads like an MOQ
// message, meaning the constraint was only discoverable after submitting
// the quantity and the row should be retried with a corrected value.
func NeedsRetry(stockText, priceText string) bool {
	for _, text := range []string{stockText, priceText} {
		if text == "" || text == ResultEmpty || text == ResultError {
			continue
		}
		if minQtyPattern.MatchString(text) || moqPattern.MatchString(text) || multiplePattern.MatchString(text) {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

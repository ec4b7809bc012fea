package scrape

import (
	"regexp"
	"strconv"
	"strings"
)

var priceDigits = regexp.MustCompile(`\d+\.?\d*`)

// ParsePrice extracts a price value from display text. Ranges like
// "£10 to £20" yield the leading value; currency symbols, commas and
// parentheses are ignored. Returns false when the text holds no number.
func ParsePrice(text string) (float64, bool) {
	if idx := strings.Index(text, " to "); idx >= 0 {
		text = text[:idx]
	}

	cleaned := strings.NewReplacer("£", "", ",", "", "(", "", ")", "").Replace(text)
	match := priceDigits.FindString(strings.TrimSpace(cleaned))
	if match == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

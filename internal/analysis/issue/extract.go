package issue

import (
	"regexp"
	"strconv"
	"strings"
)

// UnknownMerchant is the sentinel returned when no merchant can be located.
const UnknownMerchant = "Unknown merchant"

var (
	amountPattern   = regexp.MustCompile(`\$?\s?(\d+(?:\.\d{1,2})?)`)
	merchantPattern = regexp.MustCompile(`(?i)(?:at|from)\s+([A-Za-z0-9 .&-]{2,40})`)
)

// ExtractAmount returns the first dollar amount mentioned in the text:
// an optional $ sign followed by digits with up to two decimal places.
func ExtractAmount(text string) (float64, bool) {
	match := amountPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	amount, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// ExtractMerchant returns the first merchant-like run of characters after
// the word "at" or "from", or UnknownMerchant when none is present.
func ExtractMerchant(text string) string {
	match := merchantPattern.FindStringSubmatch(text)
	if match == nil {
		return UnknownMerchant
	}
	return strings.TrimSpace(match[1])
}

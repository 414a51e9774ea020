package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/use-agent/shelfscan/dom"
)

var (
	// reAmount is the currency-amount pattern used by the price resolvers.
	reAmount = regexp.MustCompile(`\$\s*[\d,.]+`)

	// reAmountWithDigit requires at least one digit after the sign; the
	// fallback candidate scan uses it so a bare "$" does not qualify.
	reAmountWithDigit = regexp.MustCompile(`\$\s*\d[\d,.]*`)

	rePercent = regexp.MustCompile(`-?\d+%`)

	// Title noise, applied in order.
	reTitleCurrency = regexp.MustCompile(`\$[\s\d,.]+`)
	reTitlePercent  = regexp.MustCompile(`-?\d+%`)
	reTitlePhrases  = regexp.MustCompile(`(?i)patrocinado|sponsored|agregar al carro|add to cart|env[ií]o gratis|free shipping|llega mañana|retira.*?min|precio cmr|con (?:tarjeta )?cmr|\bpor .*|\bby .*`)

	// reCapsGlue finds an all-caps run glued to a capitalized word
	// ("HPLaptop"); the boundary is the last capital of the run.
	reCapsGlue = regexp.MustCompile(`(\p{Lu}{2,})(\p{Lu}\p{Ll})`)
)

// ParseDigits keeps only the ASCII digits of s and parses them. Strings
// without digits (or with more digits than fit) yield 0.
func ParseDigits(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		// Out of range: the text held more than one amount.
		return 0
	}
	return n
}

// firstAmount returns the first currency amount in text without a
// trailing separator.
func firstAmount(text string) string {
	m := reAmount.FindString(text)
	return strings.TrimRight(m, ".,")
}

// cleanTitleText strips prices, percentages and marketing badges from a
// candidate's text.
func cleanTitleText(text string) string {
	s := reTitleCurrency.ReplaceAllString(text, " ")
	s = reTitlePercent.ReplaceAllString(s, " ")
	s = reTitlePhrases.ReplaceAllString(s, " ")
	s = dom.NormalizeSpace(s)
	return strings.Trim(s, " -|·")
}

// repairCapsGlue inserts a space where an all-caps token runs into the
// next capitalized word.
func repairCapsGlue(s string) string {
	return reCapsGlue.ReplaceAllString(s, "$1 $2")
}

// isPlaceholderSource reports sources that never carry a product image.
func isPlaceholderSource(src string) bool {
	src = strings.TrimSpace(src)
	if src == "" {
		return true
	}
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "data:") {
		return true
	}
	for _, marker := range []string{"placeholder", "icon", "loading", "1x1"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// firstSrcsetEntry returns the URL of the first srcset candidate.
func firstSrcsetEntry(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func runeLen(s string) int {
	return len([]rune(s))
}

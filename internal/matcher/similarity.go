package matcher

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// NameSimilarity scores how closely an extracted sender name resembles a
// payer hint, as a percentage. Comparison is case-insensitive and ignores
// punctuation. Each hint token is scored against its best-matching sender
// token by Levenshtein ratio and the per-token scores are averaged, so word
// order and extra narration words don't dominate the result.
func NameSimilarity(senderName, payerHint string) int {
	senderTokens := strings.Fields(normalizeName(senderName))
	hintTokens := strings.Fields(normalizeName(payerHint))
	if len(senderTokens) == 0 || len(hintTokens) == 0 {
		return 0
	}

	total := 0.0
	for _, hint := range hintTokens {
		best := 0.0
		for _, sender := range senderTokens {
			ratio := levenshtein.RatioForStrings([]rune(hint), []rune(sender), levenshtein.DefaultOptions)
			if ratio > best {
				best = ratio
			}
		}
		total += best
	}

	pct := int(total / float64(len(hintTokens)) * 100)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func normalizeName(s string) string {
	s = strings.ToUpper(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case r == '-', r == '.', r == ',', r == '\'':
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

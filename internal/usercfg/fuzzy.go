package usercfg

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldText lowercases text and strips diacritics so "Cobranza Año" matches
// "cobranza ano".
func FoldText(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// FuzzyMatch reports whether every rune of pattern appears in target in
// order, ignoring case and accents.
func FuzzyMatch(pattern, target string) bool {
	if pattern == "" {
		return true
	}
	if target == "" {
		return false
	}

	p := []rune(FoldText(pattern))
	pi := 0
	for _, r := range FoldText(target) {
		if pi < len(p) && p[pi] == r {
			pi++
		}
	}
	return pi == len(p)
}

// FuzzyScore rates a match from 0 to 100, higher is better, or -1 when
// pattern does not match. Consecutive runs, short targets and substring
// hits score higher.
func FuzzyScore(pattern, target string) int {
	if !FuzzyMatch(pattern, target) {
		return -1
	}
	if pattern == "" {
		return 100
	}

	p := []rune(FoldText(pattern))
	folded := FoldText(target)

	score := 0
	pi := 0
	consecutive := 0
	for i, r := range []rune(folded) {
		if pi < len(p) && p[pi] == r {
			pi++
			consecutive++
			score += 10 + consecutive
		} else {
			consecutive = 0
		}
		if i > len(p)*3 {
			score--
		}
	}

	if strings.Contains(folded, string(p)) {
		score += 20
	}

	maxScore := len(p) * 15
	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}
	return (score * 100) / maxScore
}

// NormalizeSearchText folds text and drops punctuation other than spaces
// and hyphens.
func NormalizeSearchText(text string) string {
	var result strings.Builder
	result.Grow(len(text))
	for _, r := range FoldText(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

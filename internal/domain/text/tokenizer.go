// Package text provides the shared tokenization used by sparse indexing
// and query analysis. Index and query sides must tokenize identically or
// lexical scoring silently degrades.
package text

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenize splits s into lowercase search terms. Runs of letters and digits
// become one term each; CJK runs (Han, Hiragana, Katakana, Hangul) are
// emitted as overlapping bigrams because those scripts carry no whitespace
// word boundaries. Input is NFKC-folded first so width and compatibility
// variants match.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}
	s = norm.NFKC.String(s)

	var (
		tokens []string
		run    []rune // current letter/digit run
		cjk    []rune // current CJK run
	)

	flushRun := func() {
		if len(run) > 0 {
			tokens = append(tokens, string(run))
			run = run[:0]
		}
	}
	flushCJK := func() {
		if len(cjk) == 1 {
			tokens = append(tokens, string(cjk))
		}
		for i := 0; i+1 < len(cjk); i++ {
			tokens = append(tokens, string(cjk[i:i+2]))
		}
		cjk = cjk[:0]
	}

	for _, r := range s {
		switch {
		case isCJK(r):
			flushRun()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			run = append(run, unicode.ToLower(r))
		default:
			flushRun()
			flushCJK()
		}
	}
	flushRun()
	flushCJK()

	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

package query

import (
	"strings"
	"unicode"

	"podcast-search/pkg/index"
)

const (
	highlightOpen  = "<em>"
	highlightClose = "</em>"
)

// Highlight returns a rendering of text with every whole word matching a query
// term wrapped in <em> tags. Matching is case-insensitive and uses the same
// tokenization as the index, so the highlighted words are exactly the ones
// that produced the hit. The input text is never modified.
func Highlight(text, query string) string {
	terms := index.Tokenize(query)
	if len(terms) == 0 {
		return text
	}
	termSet := make(map[string]bool, len(terms))
	for _, t := range terms {
		termSet[t] = true
	}

	var out strings.Builder
	out.Grow(len(text) + len(terms)*(len(highlightOpen)+len(highlightClose)))

	runes := []rune(text)
	i := 0
	for i < len(runes) {
		if !isWordRune(runes[i]) {
			out.WriteRune(runes[i])
			i++
			continue
		}

		j := i
		for j < len(runes) && isWordRune(runes[j]) {
			j++
		}
		word := string(runes[i:j])
		if termSet[strings.ToLower(word)] {
			out.WriteString(highlightOpen)
			out.WriteString(word)
			out.WriteString(highlightClose)
		} else {
			out.WriteString(word)
		}
		i = j
	}

	return out.String()
}

func isWordRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c)
}

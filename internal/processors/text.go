package processors

import (
	"strings"
	"unicode"

	"github.com/allenai/datamap-go/internal/jsonpath"
)

// textAt reads the string at path in doc, defaulting to "" when the field
// is absent or not a string.
func textAt(doc map[string]any, path string) string {
	s, _ := jsonpath.GetString(doc, path)
	return s
}

// words splits text on Unicode whitespace, discarding empty tokens.
func words(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}

// lines splits text on newlines without discarding trailing empties; a
// corpus line is itself one JSONL record and may embed its own "\n"s in a
// multi-line text field.
func lines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// sentences makes a naive sentence split after every '.', '!' or '?',
// whatever follows it (so "3.14" is split too), trimming whitespace from
// each piece. Good enough for length-heuristic filters;
// this is not a linguistic sentence boundary detector.
func sentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			out = append(out, strings.TrimSpace(text[start:i+1]))
			start = i + 1
		}
	}
	if start < len(text) {
		rest := strings.TrimSpace(text[start:])
		if rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

// paragraphs splits text on blank lines (two or more consecutive newlines).
func paragraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// stripPunctuation removes Unicode punctuation runes from text.
func stripPunctuation(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isAlphabetic(r rune) bool {
	return unicode.IsLetter(r)
}

func isNumeric(r rune) bool {
	return unicode.IsDigit(r)
}

func isUppercase(r rune) bool {
	return unicode.IsUpper(r)
}

// ratio returns numerator/denominator, or 0 when denominator is 0.
func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

// englishStopWords is a small, fixed stop word set sufficient for the
// stop_word_filter heuristic; it is not locale-configurable.
var englishStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "for": {}, "with": {}, "as": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "by": {},
	"at": {}, "it": {}, "this": {}, "that": {}, "from": {}, "not": {}, "have": {},
	"has": {}, "had": {}, "i": {}, "you": {}, "he": {}, "she": {}, "we": {}, "they": {},
}

func isStopWord(w string) bool {
	_, ok := englishStopWords[strings.ToLower(w)]
	return ok
}

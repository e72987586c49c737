package processors

import (
	"regexp"
	"strings"

	"github.com/allenai/datamap-go/internal/jsonpath"
)

// newlineRemovalModifier collapses runs of more than maxConsecutive
// newlines down to maxConsecutive.
type newlineRemovalModifier struct {
	field          string
	maxConsecutive int
}

func newNewlineRemovalModifier(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "newline_removal_modifier", "max_consecutive"); err != nil {
		return nil, err
	}
	return &newlineRemovalModifier{
		field:          optString(opts, "text_field", "text"),
		maxConsecutive: optInt(opts, "max_consecutive", 2),
	}, nil
}

func (m *newlineRemovalModifier) Apply(doc map[string]any) (map[string]any, Decision, string) {
	text := textAt(doc, m.field)
	collapsed := collapseRuns(text, '\n', m.maxConsecutive)
	if err := jsonpath.Set(doc, m.field, collapsed); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

func collapseRuns(s string, r rune, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	run := 0
	for _, c := range s {
		if c == r {
			run++
			if run > max {
				continue
			}
		} else {
			run = 0
		}
		b.WriteRune(c)
	}
	return b.String()
}

// ratioLineModifier removes lines whose fraction of uppercase (or numeric)
// characters exceeds upperBound.
type ratioLineModifier struct {
	field      string
	upperBound float64
	check      string // "uppercase" or "numeric"
}

func newRatioLineModifier(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "ratio_line_modifier", "check", "upper_bound"); err != nil {
		return nil, err
	}
	check := optString(opts, "check", "uppercase")
	if check != "uppercase" && check != "numeric" {
		return nil, configErr("ratio_line_modifier", "check must be uppercase or numeric")
	}
	return &ratioLineModifier{
		field:      optString(opts, "text_field", "text"),
		upperBound: optFloat(opts, "upper_bound", 0.5),
		check:      check,
	}, nil
}

func (m *ratioLineModifier) Apply(doc map[string]any) (map[string]any, Decision, string) {
	pred := isUppercase
	if m.check == "numeric" {
		pred = isNumeric
	}

	kept := make([]string, 0)
	for _, l := range lines(textAt(doc, m.field)) {
		runes := []rune(l)
		if len(runes) == 0 {
			kept = append(kept, l)
			continue
		}
		n := 0
		for _, r := range runes {
			if pred(r) {
				n++
			}
		}
		if ratio(n, len(runes)) <= m.upperBound {
			kept = append(kept, l)
		}
	}

	if err := jsonpath.Set(doc, m.field, strings.Join(kept, "\n")); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

// regexLineModifier removes every line matching regexString.
type regexLineModifier struct {
	field string
	re    *regexp.Regexp
}

func newRegexLineModifier(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "regex_line_modifier", "regex_string"); err != nil {
		return nil, err
	}
	pattern, err := requireString(opts, "regex_line_modifier", "regex_string")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, configErr("regex_line_modifier", "invalid regex_string: "+err.Error())
	}
	return &regexLineModifier{field: optString(opts, "text_field", "text"), re: re}, nil
}

func (m *regexLineModifier) Apply(doc map[string]any) (map[string]any, Decision, string) {
	kept := make([]string, 0)
	for _, l := range lines(textAt(doc, m.field)) {
		if !m.re.MatchString(l) {
			kept = append(kept, l)
		}
	}
	if err := jsonpath.Set(doc, m.field, strings.Join(kept, "\n")); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

// lineLenModifier removes lines shorter (in runes) than lowerBound.
type lineLenModifier struct {
	field      string
	lowerBound int
}

func newLineLenModifier(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "line_len_modifier", "lower_bound"); err != nil {
		return nil, err
	}
	return &lineLenModifier{
		field:      optString(opts, "text_field", "text"),
		lowerBound: optInt(opts, "lower_bound", 1),
	}, nil
}

func (m *lineLenModifier) Apply(doc map[string]any) (map[string]any, Decision, string) {
	kept := make([]string, 0)
	for _, l := range lines(textAt(doc, m.field)) {
		if len([]rune(l)) >= m.lowerBound {
			kept = append(kept, l)
		}
	}
	if err := jsonpath.Set(doc, m.field, strings.Join(kept, "\n")); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

// substringLineModifier removes (or trims) lines containing a banned
// substring at the configured location, dropping the whole line unless
// removeSubstringOnly is set, in which case only the offending substring is
// stripped and the line is kept.
type substringLineModifier struct {
	field               string
	banlist             []string
	maxLength           int
	location            string // prefix, infix, suffix
	removeSubstringOnly bool
}

func newSubstringLineModifier(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "substring_line_modifier",
		"banlist", "max_length", "location", "remove_substring_only"); err != nil {
		return nil, err
	}
	banlist := optStringSlice(opts, "banlist")
	if len(banlist) == 0 {
		return nil, configErr("substring_line_modifier", "banlist must be non-empty")
	}
	location := optString(opts, "location", "infix")
	switch location {
	case "prefix", "infix", "suffix":
	default:
		return nil, configErr("substring_line_modifier", "location must be prefix, infix or suffix")
	}
	return &substringLineModifier{
		field:               optString(opts, "text_field", "text"),
		banlist:             banlist,
		maxLength:           optInt(opts, "max_length", 0),
		location:            location,
		removeSubstringOnly: optBool(opts, "remove_substring_only", false),
	}, nil
}

func (m *substringLineModifier) matches(line string) (string, bool) {
	for _, sub := range m.banlist {
		switch m.location {
		case "prefix":
			if strings.HasPrefix(line, sub) {
				return sub, true
			}
		case "suffix":
			if strings.HasSuffix(line, sub) {
				return sub, true
			}
		default:
			if strings.Contains(line, sub) {
				return sub, true
			}
		}
	}
	return "", false
}

func (m *substringLineModifier) Apply(doc map[string]any) (map[string]any, Decision, string) {
	kept := make([]string, 0)
	for _, l := range lines(textAt(doc, m.field)) {
		if m.maxLength > 0 && len([]rune(l)) > m.maxLength {
			kept = append(kept, l)
			continue
		}
		sub, hit := m.matches(l)
		if !hit {
			kept = append(kept, l)
			continue
		}
		if m.removeSubstringOnly {
			kept = append(kept, strings.ReplaceAll(l, sub, ""))
		}
	}
	if err := jsonpath.Set(doc, m.field, strings.Join(kept, "\n")); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

// renameModifier renames a field from "from" to "to", leaving the document
// untouched if "from" is absent.
type renameModifier struct {
	from, to string
}

func newRenameModifier(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "rename_modifier", "from", "to"); err != nil {
		return nil, err
	}
	from, err := requireString(opts, "rename_modifier", "from")
	if err != nil {
		return nil, err
	}
	to, err := requireString(opts, "rename_modifier", "to")
	if err != nil {
		return nil, err
	}
	return &renameModifier{from: from, to: to}, nil
}

func (m *renameModifier) Apply(doc map[string]any) (map[string]any, Decision, string) {
	v, ok := jsonpath.Get(doc, m.from)
	if !ok {
		return doc, Keep, ""
	}
	if err := jsonpath.Set(doc, m.to, v); err != nil {
		return nil, Fail, err.Error()
	}
	delete(doc, m.from)
	return doc, Keep, ""
}

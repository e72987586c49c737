package processors

import (
	"bufio"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/allenai/datamap-go/internal/jsonpath"
)

// loadBanlistFile reads one pattern per line from path, skipping blank
// lines and "#"-prefixed comments.
func loadBanlistFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

// nonNullFilter drops a document whose configured field is absent or JSON
// null.
type nonNullFilter struct {
	field string
}

func newNonNullFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "non_null_filter", "field"); err != nil {
		return nil, err
	}
	return &nonNullFilter{field: optString(opts, "field", "text")}, nil
}

func (f *nonNullFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	v, ok := jsonpath.Get(doc, f.field)
	if !ok || v == nil {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// textLenFilter keeps documents whose text field length (in runes) falls
// within [lower, upper].
type textLenFilter struct {
	field          string
	lower, upper   float64
	hasLower, hasU bool
}

func newTextLenFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "text_len_filter", "lower", "upper"); err != nil {
		return nil, err
	}
	f := &textLenFilter{field: optString(opts, "text_field", "text")}
	if v, ok := opts["lower"]; ok {
		fv, ok := toFloat(v)
		if !ok {
			return nil, configErr("text_len_filter", "lower must be a number")
		}
		f.lower, f.hasLower = fv, true
	}
	if v, ok := opts["upper"]; ok {
		fv, ok := toFloat(v)
		if !ok {
			return nil, configErr("text_len_filter", "upper must be a number")
		}
		f.upper, f.hasU = fv, true
	}
	return f, nil
}

func (f *textLenFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	n := float64(len([]rune(textAt(doc, f.field))))
	if f.hasLower && n < f.lower {
		return nil, Drop, ""
	}
	if f.hasU && n > f.upper {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// pageLenFilter keeps documents whose unit count (char/word/sentence/line/
// paragraph) of the text field falls within [lower, upper].
type pageLenFilter struct {
	field              string
	lengthType         string
	lower, upper       float64
	ignorePunctuation  bool
}

func newPageLenFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "page_len_filter", "length_type", "lower", "upper", "ignore_punctuation"); err != nil {
		return nil, err
	}
	lt := optString(opts, "length_type", "word")
	switch lt {
	case "char", "word", "sentence", "line", "paragraph":
	default:
		return nil, configErr("page_len_filter", "length_type must be one of char, word, sentence, line, paragraph")
	}
	return &pageLenFilter{
		field:             optString(opts, "text_field", "text"),
		lengthType:        lt,
		lower:             optFloat(opts, "lower", 0),
		upper:             optFloat(opts, "upper", 1e18),
		ignorePunctuation: optBool(opts, "ignore_punctuation", false),
	}, nil
}

func (f *pageLenFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	text := textAt(doc, f.field)
	if f.ignorePunctuation {
		text = stripPunctuation(text)
	}

	var n int
	switch f.lengthType {
	case "char":
		n = len([]rune(text))
	case "word":
		n = len(words(text))
	case "sentence":
		n = len(sentences(text))
	case "line":
		n = len(lines(text))
	case "paragraph":
		n = len(paragraphs(text))
	}

	fn := float64(n)
	if fn < f.lower || fn > f.upper {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// wordLenFilter keeps documents whose average word length falls within
// [lower, upper].
type wordLenFilter struct {
	field        string
	lower, upper float64
}

func newWordLenFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "word_len_filter", "lower", "upper"); err != nil {
		return nil, err
	}
	return &wordLenFilter{
		field: optString(opts, "text_field", "text"),
		lower: optFloat(opts, "lower", 0),
		upper: optFloat(opts, "upper", 1e18),
	}, nil
}

func (f *wordLenFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	ws := words(textAt(doc, f.field))
	if len(ws) == 0 {
		return nil, Drop, ""
	}
	total := 0
	for _, w := range ws {
		total += len([]rune(w))
	}
	avg := float64(total) / float64(len(ws))
	if avg < f.lower || avg > f.upper {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// subsample keeps each document independently with probability rate, using
// a per-processor-instance random source so runs are reproducible given a
// seed (spec §9's determinism requirement for subsample/add_id/shuffle).
// *rand.Rand is not safe for concurrent use, so a constructed subsample must
// never be shared across goroutines: RunMap clones it once per file via
// Clone instead of calling Apply on the shared instance (see Cloner).
type subsample struct {
	rate    float64
	rng     *rand.Rand
	seed    int64
	cloneID *int64
}

func newSubsample(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "subsample", "rate", "seed"); err != nil {
		return nil, err
	}
	rate, err := requireFloat(opts, "subsample", "rate")
	if err != nil {
		return nil, err
	}
	if rate < 0 || rate > 1 {
		return nil, configErr("subsample", "rate must be in [0, 1]")
	}
	seed := int64(optFloat(opts, "seed", 0))
	var cloneID int64
	return &subsample{rate: rate, rng: rand.New(rand.NewSource(seed)), seed: seed, cloneID: &cloneID}, nil
}

func (f *subsample) Apply(doc map[string]any) (map[string]any, Decision, string) {
	if f.rng.Float64() >= f.rate {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// Clone returns an independent subsample with its own *rand.Rand, seeded
// deterministically from the shared seed and an atomically-issued index so
// concurrent callers never read or mutate the original's rng or counter.
func (f *subsample) Clone() Processor {
	idx := atomic.AddInt64(f.cloneID, 1)
	return &subsample{rate: f.rate, rng: rand.New(rand.NewSource(f.seed + idx)), seed: f.seed, cloneID: f.cloneID}
}

// floatFilter reads a numeric field (defaulting when absent), keeps it when
// within [lower, upper] (or, negated, when outside that range).
type floatFilter struct {
	field          string
	lower, upper   *float64
	negate         bool
	def            float64
}

func newFloatFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "float_filter", "field", "lower", "upper", "negate", "default"); err != nil {
		return nil, err
	}
	field, err := requireString(opts, "float_filter", "field")
	if err != nil {
		return nil, err
	}
	return &floatFilter{
		field:  field,
		lower:  optFloatPtr(opts, "lower"),
		upper:  optFloatPtr(opts, "upper"),
		negate: optBool(opts, "negate", false),
		def:    optFloat(opts, "default", 0),
	}, nil
}

func (f *floatFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	v := jsonpath.GetNumberOr(doc, f.field, f.def)
	inRange := true
	if f.lower != nil && v < *f.lower {
		inRange = false
	}
	if f.upper != nil && v > *f.upper {
		inRange = false
	}
	if f.negate {
		inRange = !inRange
	}
	if !inRange {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// stringEqFilter keeps documents whose field string-equals a configured
// value.
type stringEqFilter struct {
	field string
	eq    string
}

func newStringEqFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "string_eq_filter", "field", "eq"); err != nil {
		return nil, err
	}
	field, err := requireString(opts, "string_eq_filter", "field")
	if err != nil {
		return nil, err
	}
	eq, err := requireString(opts, "string_eq_filter", "eq")
	if err != nil {
		return nil, err
	}
	return &stringEqFilter{field: field, eq: eq}, nil
}

func (f *stringEqFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	v, ok := jsonpath.GetString(doc, f.field)
	if !ok || v != f.eq {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// symbolRatioFilter drops documents where the fraction of words containing
// a "#" or "…" symbol exceeds maxRatio.
type symbolRatioFilter struct {
	field    string
	maxRatio float64
}

func newSymbolRatioFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "symbol_ratio_filter", "max_ratio"); err != nil {
		return nil, err
	}
	return &symbolRatioFilter{
		field:    optString(opts, "text_field", "text"),
		maxRatio: optFloat(opts, "max_ratio", 0.1),
	}, nil
}

var symbolChars = "#…"

func (f *symbolRatioFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	text := textAt(doc, f.field)
	ws := words(text)
	if len(ws) == 0 {
		return doc, Keep, ""
	}
	symbolWords := 0
	for _, w := range ws {
		if strings.ContainsAny(w, symbolChars) {
			symbolWords++
		}
	}
	if ratio(symbolWords, len(ws)) > f.maxRatio {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// bulletFilter drops documents where the fraction of lines starting with a
// bullet marker exceeds maxBulletRatio.
type bulletFilter struct {
	field          string
	maxBulletRatio float64
}

func newBulletFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "bullet_filter", "max_bullet_ratio"); err != nil {
		return nil, err
	}
	return &bulletFilter{
		field:          optString(opts, "text_field", "text"),
		maxBulletRatio: optFloat(opts, "max_bullet_ratio", 0.9),
	}, nil
}

var bulletMarkers = []string{"*", "-", "•", "◦", "·"}

func isBulletLine(l string) bool {
	l = strings.TrimSpace(l)
	for _, m := range bulletMarkers {
		if strings.HasPrefix(l, m) {
			return true
		}
	}
	return false
}

func (f *bulletFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	ls := lines(textAt(doc, f.field))
	if len(ls) == 0 {
		return doc, Keep, ""
	}
	bulleted := 0
	for _, l := range ls {
		if isBulletLine(l) {
			bulleted++
		}
	}
	if ratio(bulleted, len(ls)) > f.maxBulletRatio {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// ellipsisLineRatioFilter drops documents where the fraction of lines ending
// in an ellipsis ("..." or "…") exceeds maxRatio.
type ellipsisLineRatioFilter struct {
	field    string
	maxRatio float64
}

func newEllipsisLineRatioFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "ellipsis_line_ratio_filter", "max_ratio"); err != nil {
		return nil, err
	}
	return &ellipsisLineRatioFilter{
		field:    optString(opts, "text_field", "text"),
		maxRatio: optFloat(opts, "max_ratio", 0.3),
	}, nil
}

func (f *ellipsisLineRatioFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	ls := lines(textAt(doc, f.field))
	if len(ls) == 0 {
		return doc, Keep, ""
	}
	ending := 0
	for _, l := range ls {
		l = strings.TrimSpace(l)
		if strings.HasSuffix(l, "...") || strings.HasSuffix(l, "…") {
			ending++
		}
	}
	if ratio(ending, len(ls)) > f.maxRatio {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// alphabeticWordRatioFilter drops documents where the fraction of words
// containing at least one alphabetic character is below 1-maxRatio (i.e.
// the fraction of non-alphabetic words exceeds maxRatio).
type alphabeticWordRatioFilter struct {
	field    string
	maxRatio float64
}

func newAlphabeticWordRatioFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "alphabetic_word_ratio_filter", "max_ratio"); err != nil {
		return nil, err
	}
	return &alphabeticWordRatioFilter{
		field:    optString(opts, "text_field", "text"),
		maxRatio: optFloat(opts, "max_ratio", 0.2),
	}, nil
}

func (f *alphabeticWordRatioFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	ws := words(textAt(doc, f.field))
	if len(ws) == 0 {
		return doc, Keep, ""
	}
	nonAlpha := 0
	for _, w := range ws {
		hasAlpha := false
		for _, r := range w {
			if isAlphabetic(r) {
				hasAlpha = true
				break
			}
		}
		if !hasAlpha {
			nonAlpha++
		}
	}
	if ratio(nonAlpha, len(ws)) > f.maxRatio {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// stopWordFilter drops documents containing fewer than minStopWord stop
// words (optionally counting each unique stop word only once).
type stopWordFilter struct {
	field       string
	minStopWord int
	countUnique bool
}

func newStopWordFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "stop_word_filter", "min_stop_word", "count_unique"); err != nil {
		return nil, err
	}
	return &stopWordFilter{
		field:       optString(opts, "text_field", "text"),
		minStopWord: optInt(opts, "min_stop_word", 2),
		countUnique: optBool(opts, "count_unique", false),
	}, nil
}

func (f *stopWordFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	ws := words(textAt(doc, f.field))
	if f.countUnique {
		seen := make(map[string]struct{})
		for _, w := range ws {
			lw := strings.ToLower(w)
			if isStopWord(lw) {
				seen[lw] = struct{}{}
			}
		}
		if len(seen) < f.minStopWord {
			return nil, Drop, ""
		}
		return doc, Keep, ""
	}

	count := 0
	for _, w := range ws {
		if isStopWord(w) {
			count++
		}
	}
	if count < f.minStopWord {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// wordRemovalRatioFilter drops documents whose word count has fallen, since
// a previously recorded word count field, by more than upperBound as a
// fraction of that recorded count (used after a modifier has stripped words
// from the text, to cap how much was lost).
type wordRemovalRatioFilter struct {
	field           string
	wordCountField  string
	upperBound      float64
}

func newWordRemovalRatioFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "word_removal_ratio_filter", "word_count_field", "upper_bound"); err != nil {
		return nil, err
	}
	wcField, err := requireString(opts, "word_removal_ratio_filter", "word_count_field")
	if err != nil {
		return nil, err
	}
	return &wordRemovalRatioFilter{
		field:          optString(opts, "text_field", "text"),
		wordCountField: wcField,
		upperBound:     optFloat(opts, "upper_bound", 0.05),
	}, nil
}

func (f *wordRemovalRatioFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	original := jsonpath.GetNumberOr(doc, f.wordCountField, 0)
	if original <= 0 {
		return doc, Keep, ""
	}
	current := float64(len(words(textAt(doc, f.field))))
	removed := (original - current) / original
	if removed > f.upperBound {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// urlSubstringFilter drops documents whose URL field contains one of a
// configured banlist's substrings (or glob patterns, in glob match mode),
// falling back to an alternate URL key when the primary is absent.
type urlSubstringFilter struct {
	urlKey, altURLKey string
	banlist           []string
	matchMode         string // "substring" or "glob"
	numBannedSubstrs  int
	ignoreChars       string
}

func newURLSubstringFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "url_substring_filter",
		"url_key", "alt_url_key", "banlist_file", "banlist", "match_mode", "num_banned_substrs", "ignore_chars"); err != nil {
		return nil, err
	}
	banlistFile, hasFile := opts["banlist_file"].(string)
	banlist := optStringSlice(opts, "banlist")
	if hasFile {
		entries, err := loadBanlistFile(banlistFile)
		if err != nil {
			return nil, configErr("url_substring_filter", err.Error())
		}
		banlist = append(banlist, entries...)
	}
	if len(banlist) == 0 {
		return nil, configErr("url_substring_filter", "one of banlist or banlist_file must be non-empty")
	}

	mode := optString(opts, "match_mode", "substring")
	if mode != "substring" && mode != "glob" {
		return nil, configErr("url_substring_filter", "match_mode must be substring or glob")
	}

	return &urlSubstringFilter{
		urlKey:           optString(opts, "url_key", "url"),
		altURLKey:        optString(opts, "alt_url_key", ""),
		banlist:          banlist,
		matchMode:        mode,
		numBannedSubstrs: optInt(opts, "num_banned_substrs", 1),
		ignoreChars:      optString(opts, "ignore_chars", ""),
	}, nil
}

func (f *urlSubstringFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	u, ok := jsonpath.GetString(doc, f.urlKey)
	if !ok && f.altURLKey != "" {
		u, ok = jsonpath.GetString(doc, f.altURLKey)
	}
	if !ok {
		return doc, Keep, ""
	}
	if f.ignoreChars != "" {
		for _, c := range f.ignoreChars {
			u = strings.ReplaceAll(u, string(c), "")
		}
	}

	hits := 0
	for _, pattern := range f.banlist {
		var matched bool
		if f.matchMode == "glob" {
			matched, _ = doublestar.Match(pattern, u)
		} else {
			matched = strings.Contains(u, pattern)
		}
		if matched {
			hits++
		}
	}
	if hits >= f.numBannedSubstrs {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// massiveWebRepetitionFilter implements the Gopher-paper repetition
// heuristics: duplicate-ngram and top-ngram mass thresholds over the
// document's line/paragraph structure.
type massiveWebRepetitionFilter struct {
	field                string
	maxLineDupFraction   float64
	maxParaDupFraction   float64
	maxTopNgramFraction  float64
}

func newMassiveWebRepetitionFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "massive_web_repetition_filter",
		"max_line_dup_fraction", "max_paragraph_dup_fraction", "max_top_ngram_fraction"); err != nil {
		return nil, err
	}
	return &massiveWebRepetitionFilter{
		field:               optString(opts, "text_field", "text"),
		maxLineDupFraction:  optFloat(opts, "max_line_dup_fraction", 0.3),
		maxParaDupFraction:  optFloat(opts, "max_paragraph_dup_fraction", 0.3),
		maxTopNgramFraction: optFloat(opts, "max_top_ngram_fraction", 0.2),
	}, nil
}

func duplicateFraction(items []string) float64 {
	if len(items) == 0 {
		return 0
	}
	counts := make(map[string]int, len(items))
	for _, it := range items {
		counts[it]++
	}
	dup := 0
	for _, it := range items {
		if counts[it] > 1 {
			dup++
		}
	}
	return ratio(dup, len(items))
}

func topNgramFraction(ws []string, n int) float64 {
	if len(ws) < n {
		return 0
	}
	counts := make(map[string]int)
	total := 0
	for i := 0; i+n <= len(ws); i++ {
		gram := strings.Join(ws[i:i+n], " ")
		counts[gram]++
		total++
	}
	if total == 0 {
		return 0
	}
	best := 0
	for _, c := range counts {
		if c > best {
			best = c
		}
	}
	if best < 2 {
		return 0
	}
	return ratio(best*n, len(ws))
}

func (f *massiveWebRepetitionFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	text := textAt(doc, f.field)
	if duplicateFraction(lines(text)) > f.maxLineDupFraction {
		return nil, Drop, ""
	}
	if duplicateFraction(paragraphs(text)) > f.maxParaDupFraction {
		return nil, Drop, ""
	}
	if topNgramFraction(words(text), 2) > f.maxTopNgramFraction {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

// madlad400RuleFilter applies a small fixed set of named character-class
// rules (from the MADLAD-400 cleaning pipeline) and optionally drops
// documents left too short after rule application.
type madlad400RuleFilter struct {
	field           string
	rules           []string
	removeTooShort  bool
	minLenAfter     int
}

var madlad400Rules = map[string]*regexp.Regexp{
	"control_chars": regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`),
	"html_tags":     regexp.MustCompile(`<[^>]*>`),
	"js_error":      regexp.MustCompile(`(?i)javascript:|document\.write`),
}

func newMadlad400RuleFilter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "madlad400_rule_filter", "rules_to_remove", "remove_too_short", "min_length_after"); err != nil {
		return nil, err
	}
	rules := optStringSlice(opts, "rules_to_remove")
	for _, r := range rules {
		if _, ok := madlad400Rules[r]; !ok {
			return nil, configErr("madlad400_rule_filter", "unknown rule "+r)
		}
	}
	return &madlad400RuleFilter{
		field:          optString(opts, "text_field", "text"),
		rules:          rules,
		removeTooShort: optBool(opts, "remove_too_short", true),
		minLenAfter:    optInt(opts, "min_length_after", 1),
	}, nil
}

func (f *madlad400RuleFilter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	text := textAt(doc, f.field)
	for _, name := range f.rules {
		if madlad400Rules[name].MatchString(text) {
			if f.removeTooShort {
				return nil, Drop, ""
			}
		}
	}
	if f.removeTooShort && len([]rune(strings.TrimSpace(text))) < f.minLenAfter {
		return nil, Drop, ""
	}
	return doc, Keep, ""
}

package processors

// Catalogue returns every built-in processor name mapped to its
// Constructor. internal/registry builds its process-wide table from this
// at init time; it is exposed as a function rather than a package-level
// map so callers cannot mutate the source of truth in place.
func Catalogue() map[string]Constructor {
	return map[string]Constructor{
		// Filters.
		"non_null_filter":               newNonNullFilter,
		"text_len_filter":                newTextLenFilter,
		"page_len_filter":                 newPageLenFilter,
		"word_len_filter":                 newWordLenFilter,
		"subsample":                       newSubsample,
		"float_filter":                    newFloatFilter,
		"string_eq_filter":                newStringEqFilter,
		"symbol_ratio_filter":             newSymbolRatioFilter,
		"bullet_filter":                   newBulletFilter,
		"ellipsis_line_ratio_filter":      newEllipsisLineRatioFilter,
		"alphabetic_word_ratio_filter":    newAlphabeticWordRatioFilter,
		"stop_word_filter":                newStopWordFilter,
		"word_removal_ratio_filter":       newWordRemovalRatioFilter,
		"url_substring_filter":            newURLSubstringFilter,
		"massive_web_repetition_filter":   newMassiveWebRepetitionFilter,
		"madlad400_rule_filter":           newMadlad400RuleFilter,

		// Modifiers.
		"newline_removal_modifier":  newNewlineRemovalModifier,
		"ratio_line_modifier":       newRatioLineModifier,
		"regex_line_modifier":       newRegexLineModifier,
		"line_len_modifier":         newLineLenModifier,
		"substring_line_modifier":   newSubstringLineModifier,
		"rename_modifier":           newRenameModifier,

		// Annotators.
		"add_id":                         newAddID,
		"word_count_adder":               newWordCountAdder,
		"hash_annotator":                 newHashAnnotator,
		"constant_annotator":             newConstantAnnotator,
		"fasttext_annotator":             newFasttextAnnotator,
		"madlad400_sentence_annotator":   newMadlad400SentenceAnnotator,
		"dd_max_getter":                  newDdMaxGetter,
		"max_extractor":                  newMaxExtractor,
	}
}

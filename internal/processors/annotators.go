package processors

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/allenai/datamap-go/internal/jsonpath"
)

// addID annotates the document with a fresh UUIDv4 under idKey.
type addID struct {
	idKey string
}

func newAddID(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "add_id", "id_key"); err != nil {
		return nil, err
	}
	return &addID{idKey: optString(opts, "id_key", "id")}, nil
}

func (a *addID) Apply(doc map[string]any) (map[string]any, Decision, string) {
	if err := jsonpath.Set(doc, a.idKey, uuid.NewString()); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

// wordCountAdder annotates the document with its text field's word count.
type wordCountAdder struct {
	field          string
	wordCountField string
}

func newWordCountAdder(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "word_count_adder", "word_count_field"); err != nil {
		return nil, err
	}
	return &wordCountAdder{
		field:          optString(opts, "text_field", "text"),
		wordCountField: optString(opts, "word_count_field", "word_count"),
	}, nil
}

func (a *wordCountAdder) Apply(doc map[string]any) (map[string]any, Decision, string) {
	n := len(words(textAt(doc, a.field)))
	if err := jsonpath.Set(doc, a.wordCountField, float64(n)); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

// hashAnnotator annotates the document with the xxHash of a source field,
// at 64 or 128 bits, formatted as a lowercase hex string.
type hashAnnotator struct {
	source, destination string
	numBits              int
}

func newHashAnnotator(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "hash_annotator", "hash_source", "hash_destination", "num_bits"); err != nil {
		return nil, err
	}
	source, err := requireString(opts, "hash_annotator", "hash_source")
	if err != nil {
		return nil, err
	}
	dest, err := requireString(opts, "hash_annotator", "hash_destination")
	if err != nil {
		return nil, err
	}
	bits := optInt(opts, "num_bits", 64)
	if bits != 64 && bits != 128 {
		return nil, configErr("hash_annotator", "num_bits must be 64 or 128")
	}
	return &hashAnnotator{source: source, destination: dest, numBits: bits}, nil
}

func (a *hashAnnotator) Apply(doc map[string]any) (map[string]any, Decision, string) {
	text := textAt(doc, a.source)
	var hexHash string
	if a.numBits == 128 {
		h := xxh3.Hash128([]byte(text))
		hexHash = fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
	} else {
		h := xxh3.Hash([]byte(text))
		hexHash = uintToHex(h)
	}
	if err := jsonpath.Set(doc, a.destination, hexHash); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

func uintToHex(v uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf)
}

// constantAnnotator sets a fixed field/value pair on every document.
type constantAnnotator struct {
	field string
	value any
}

func newConstantAnnotator(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "constant_annotator", "field", "value"); err != nil {
		return nil, err
	}
	field, err := requireString(opts, "constant_annotator", "field")
	if err != nil {
		return nil, err
	}
	value, ok := opts["value"]
	if !ok {
		return nil, configErr("constant_annotator", "missing required option \"value\"")
	}
	return &constantAnnotator{field: field, value: value}, nil
}

func (a *constantAnnotator) Apply(doc map[string]any) (map[string]any, Decision, string) {
	if err := jsonpath.Set(doc, a.field, a.value); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

// LabelScore is a single prediction returned by a FastTextModel.
type LabelScore struct {
	Label string
	Score float64
}

// FastTextModel is the black-box text-classification collaborator
// fasttext_annotator depends on. No fastText Go binding exists in the
// retrieval pack, so only the interface and a no-op stub are provided here.
// fasttext_annotator obtains its model from the package-level
// fastTextModelLoader, whose default returns that stub; no exported option
// replaces it.
type FastTextModel interface {
	Predict(text string, k int) []LabelScore
}

// noopFastTextModel always returns no predictions. It exists so
// fasttext_annotator can be constructed (and exercised in tests) without a
// real model file.
type noopFastTextModel struct{}

func (noopFastTextModel) Predict(text string, k int) []LabelScore { return nil }

// fastTextModelLoader is overridable in tests; the default returns a no-op
// model regardless of path, since no fastText binding exists in the pack.
var fastTextModelLoader = func(path string) (FastTextModel, error) {
	return noopFastTextModel{}, nil
}

// fasttextAnnotator runs a FastTextModel over the text field and attaches
// labels scoring above threshold to outputField.
type fasttextAnnotator struct {
	textField, outputField string
	k                      int
	threshold              float64
	model                  FastTextModel
}

func newFasttextAnnotator(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "fasttext_annotator", "fast_text_file", "output_field", "k", "threshold"); err != nil {
		return nil, err
	}
	modelFile, err := requireString(opts, "fasttext_annotator", "fast_text_file")
	if err != nil {
		return nil, err
	}
	model, err := fastTextModelLoader(modelFile)
	if err != nil {
		return nil, configErr("fasttext_annotator", "loading fast_text_file: "+err.Error())
	}
	return &fasttextAnnotator{
		textField:   optString(opts, "text_field", "text"),
		outputField: optString(opts, "output_field", "fasttext_labels"),
		k:           optInt(opts, "k", 1),
		threshold:   optFloat(opts, "threshold", 0),
		model:       model,
	}, nil
}

func (a *fasttextAnnotator) Apply(doc map[string]any) (map[string]any, Decision, string) {
	preds := a.model.Predict(textAt(doc, a.textField), a.k)
	kept := make([]map[string]any, 0, len(preds))
	for _, p := range preds {
		if p.Score >= a.threshold {
			kept = append(kept, map[string]any{"label": p.Label, "score": p.Score})
		}
	}
	if err := jsonpath.Set(doc, a.outputField, kept); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

// madlad400SentenceAnnotator attaches a per-sentence language-cleanliness
// score array to the document: the fraction of alphabetic characters in
// each sentence of the text field, mirroring the sentence-level signal the
// MADLAD-400 cleaning pipeline records alongside its document-level rules.
type madlad400SentenceAnnotator struct {
	textField, outputField string
}

func newMadlad400SentenceAnnotator(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "madlad400_sentence_annotator", "output_field"); err != nil {
		return nil, err
	}
	return &madlad400SentenceAnnotator{
		textField:   optString(opts, "text_field", "text"),
		outputField: optString(opts, "output_field", "sentence_scores"),
	}, nil
}

func (a *madlad400SentenceAnnotator) Apply(doc map[string]any) (map[string]any, Decision, string) {
	scores := make([]float64, 0)
	for _, s := range sentences(textAt(doc, a.textField)) {
		runes := []rune(s)
		if len(runes) == 0 {
			scores = append(scores, 0)
			continue
		}
		alpha := 0
		for _, r := range runes {
			if isAlphabetic(r) {
				alpha++
			}
		}
		scores = append(scores, ratio(alpha, len(runes)))
	}
	if err := jsonpath.Set(doc, a.outputField, scores); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

// ddMaxGetter annotates the document with the maximum value across a set of
// numeric fields under a "dd_" (duplicate-detection) namespace convention,
// recording which field won under nameField.
type ddMaxGetter struct {
	fields     []string
	valueField string
	nameField  string
}

func newDdMaxGetter(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "dd_max_getter", "fields", "value_field", "name_field"); err != nil {
		return nil, err
	}
	fields := optStringSlice(opts, "fields")
	if len(fields) == 0 {
		return nil, configErr("dd_max_getter", "fields must be non-empty")
	}
	return &ddMaxGetter{
		fields:     fields,
		valueField: optString(opts, "value_field", "dd_max_value"),
		nameField:  optString(opts, "name_field", "dd_max_field"),
	}, nil
}

func (a *ddMaxGetter) Apply(doc map[string]any) (map[string]any, Decision, string) {
	bestField := ""
	best := 0.0
	first := true
	for _, f := range a.fields {
		v := jsonpath.GetNumberOr(doc, f, 0)
		if first || v > best {
			best, bestField, first = v, f, false
		}
	}
	if err := jsonpath.Set(doc, a.valueField, best); err != nil {
		return nil, Fail, err.Error()
	}
	if err := jsonpath.Set(doc, a.nameField, bestField); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

// maxExtractor annotates the document with the single maximum element of an
// array field.
type maxExtractor struct {
	arrayField  string
	outputField string
}

func newMaxExtractor(opts map[string]any) (Processor, error) {
	if err := checkUnknownOpts(opts, "max_extractor", "array_field", "output_field"); err != nil {
		return nil, err
	}
	field, err := requireString(opts, "max_extractor", "array_field")
	if err != nil {
		return nil, err
	}
	return &maxExtractor{
		arrayField:  field,
		outputField: optString(opts, "output_field", "max_value"),
	}, nil
}

func (a *maxExtractor) Apply(doc map[string]any) (map[string]any, Decision, string) {
	v, ok := jsonpath.Get(doc, a.arrayField)
	if !ok {
		return doc, Keep, ""
	}
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return doc, Keep, ""
	}
	best, ok := toFloat(arr[0])
	if !ok {
		return nil, Fail, "array_field elements are not numeric"
	}
	for _, item := range arr[1:] {
		f, ok := toFloat(item)
		if !ok {
			return nil, Fail, "array_field elements are not numeric"
		}
		if f > best {
			best = f
		}
	}
	if err := jsonpath.Set(doc, a.outputField, best); err != nil {
		return nil, Fail, err.Error()
	}
	return doc, Keep, ""
}

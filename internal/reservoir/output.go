package reservoir

import "sort"

// PercentileEntry is one entry of a weighted reservoir's output file: the
// sampled value and its cumulative weight-mass percentile, per spec §4.7's
// "Output format" paragraph.
type PercentileEntry struct {
	Percentile float64 `json:"percentile"`
	Value      any     `json:"value"`
}

// UniformOutput renders a Uniform reservoir's sample as spec §4.7 requires:
// a plain JSON array of the sampled values, in no particular order.
func UniformOutput(u *Uniform) []any {
	out := make([]any, len(u.items))
	copy(out, u.items)
	return out
}

// WeightedOutput renders a Weighted reservoir's sample as spec §4.7
// requires: items sorted by value ascending, each annotated with
// percentile = (sum of weights up to and including this item) / (total
// weight). Values must be comparable with compareValues (numeric or
// string); a value of another or mismatched type compares equal to every
// value, so its position is whatever the stable sort leaves it at.
func WeightedOutput(w *Weighted) []PercentileEntry {
	items := w.Items()
	sort.SliceStable(items, func(i, j int) bool {
		return compareValues(items[i].Value, items[j].Value) < 0
	})

	var total float64
	for _, it := range items {
		total += it.Weight
	}

	out := make([]PercentileEntry, len(items))
	var cum float64
	for i, it := range items {
		cum += it.Weight
		p := 0.0
		if total > 0 {
			p = cum / total
		}
		out[i] = PercentileEntry{Percentile: p, Value: it.Value}
	}
	return out
}

// compareValues orders two sampled values for WeightedOutput's ascending
// sort. Numeric values compare by magnitude; strings compare
// lexicographically; mixed or unsupported types compare equal (stable sort
// then preserves heap encounter order), since spec §4.7 only requires
// sorting "by value" for the numeric/string keys these commands sample.
func compareValues(a, b any) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as, asok := a.(string)
	bs, bsok := b.(string)
	if asok && bsok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}

	return 0
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

package partition

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CutpointsFromReservoir derives numBuckets-1 sorted cutpoints from a
// reservoir-sample output file's JSON bytes, per spec §4.11's "Derivation
// from reservoir" paragraph. It auto-detects which of the two reservoir
// output shapes (spec §4.7) the file holds: a plain array of numbers
// (uniform mode) or an array of {percentile, value} objects (weighted
// mode).
func CutpointsFromReservoir(data []byte, numBuckets int) ([]float64, error) {
	if numBuckets < 1 {
		return nil, fmt.Errorf("partition: num_buckets must be >= 1, got %d", numBuckets)
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("partition: decoding reservoir sample: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("partition: reservoir sample is empty")
	}

	if _, isObject := raw[0].(map[string]any); isObject {
		return cutpointsFromWeighted(raw, numBuckets)
	}
	return cutpointsFromUniform(raw, numBuckets)
}

// cutpointsFromUniform implements spec §4.11's uniform-array derivation:
// sort ascending, then take cutpoints at evenly spaced rank positions
// floor(i*n/m) for i in [1, m-1].
func cutpointsFromUniform(raw []any, m int) ([]float64, error) {
	vals := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("partition: reservoir value %v is not numeric", v)
		}
		vals = append(vals, f)
	}
	sort.Float64s(vals)

	n := len(vals)
	cuts := make([]float64, 0, m-1)
	for i := 1; i < m; i++ {
		idx := i * n / m
		if idx >= n {
			idx = n - 1
		}
		cuts = append(cuts, vals[idx])
	}
	return cuts, nil
}

// cutpointsFromWeighted implements spec §4.11's weighted-array derivation:
// sort by value ascending, then for each i in [1, m-1] take the first
// value whose percentile >= i/m.
func cutpointsFromWeighted(raw []any, m int) ([]float64, error) {
	type entry struct {
		percentile float64
		value      float64
	}

	entries := make([]entry, 0, len(raw))
	for _, v := range raw {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("partition: malformed weighted reservoir entry %v", v)
		}
		p, _ := toFloat(obj["percentile"])
		val, ok := toFloat(obj["value"])
		if !ok {
			return nil, fmt.Errorf("partition: weighted reservoir entry value is not numeric")
		}
		entries = append(entries, entry{percentile: p, value: val})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].value < entries[j].value })

	cuts := make([]float64, 0, m-1)
	for i := 1; i < m; i++ {
		target := float64(i) / float64(m)
		chosen := entries[len(entries)-1].value
		for _, e := range entries {
			if e.percentile >= target {
				chosen = e.value
				break
			}
		}
		cuts = append(cuts, chosen)
	}
	return cuts, nil
}

func toFloat(v any) (float64, bool) {
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

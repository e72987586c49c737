// Package reservoir implements the distributed reservoir sampling core from
// spec §4.7/§8 items 8-9: uniform (Vitter R) and token-weighted (A-Res,
// Efraimidis-Spirakis) sampling, each maintained per-worker and merged
// single-threaded at end-of-run (spec §5 coordination point (b)).
//
// Grounded on the teacher's seeded-rand idiom in processors.subsample/
// addID (spec §9's determinism requirement for subsample/add_id/shuffle),
// generalized here to a reservoir's own per-worker *rand.Rand.
package reservoir

import "math/rand"

// Uniform implements Vitter's Algorithm R: a reservoir of up to k sampled
// values with a running count n of items offered. It is not safe for
// concurrent use; each worker owns one and they are merged single-threaded.
type Uniform struct {
	k     int
	items []any
	n     int64
	rng   *rand.Rand
}

// NewUniform constructs an empty reservoir with target capacity k, seeded
// from seed for reproducibility when threads == 1 (spec §4.7's "Output
// format" note plus §9's determinism guidance).
func NewUniform(k int, seed int64) *Uniform {
	return &Uniform{
		k:     k,
		items: make([]any, 0, k),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Offer presents the next item in the stream. During the fill phase (n < k)
// the item is always kept; afterward a uniform random index r in [0, n] is
// drawn and the item replaces slot r only if r < k.
func (u *Uniform) Offer(v any) {
	if int64(len(u.items)) < int64(u.k) {
		u.items = append(u.items, v)
		u.n++
		return
	}
	r := u.rng.Int63n(u.n + 1)
	if r < int64(u.k) {
		u.items[r] = v
	}
	u.n++
}

// N returns the total number of items offered to this reservoir.
func (u *Uniform) N() int64 {
	return u.n
}

// Items returns the current sampled values. The slice is owned by the
// reservoir; callers that need to retain it across further Offer calls
// should copy it.
func (u *Uniform) Items() []any {
	return u.items
}

// MergeUniform combines two disjoint-stream reservoirs into one of size
// min(k, n_a+n_b), per spec §4.7: items of b first fill any free slots,
// then each remaining item of b replaces a uniformly random slot of the
// running merge with probability n_b/(n_a+n_b), independently per item,
// which preserves uniformity over the concatenated
// stream. The merge's own randomness is drawn from rng so repeated merges
// under the same seed are reproducible.
func MergeUniform(a, b *Uniform, rng *rand.Rand) *Uniform {
	k := a.k
	merged := make([]any, len(a.items))
	copy(merged, a.items)

	na, nb := a.n, b.n
	total := na + nb

	for _, item := range b.items {
		if len(merged) < k {
			merged = append(merged, item)
			continue
		}
		if total <= 0 {
			break
		}
		if rng.Float64() >= float64(nb)/float64(total) {
			continue
		}
		idx := rng.Intn(len(merged))
		merged[idx] = item
	}

	if len(merged) > k {
		merged = merged[:k]
	}

	return &Uniform{k: k, items: merged, n: total, rng: rng}
}

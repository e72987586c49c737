package reservoir

import (
	"container/heap"
	"math"
	"math/rand"
)

// WeightedItem is one entry in a Weighted reservoir: the sampled value
// together with the A-Res key it was drawn with and the weight that
// produced that key, retained so Output (see output.go) can recompute
// percentile mass.
type WeightedItem struct {
	Key    float64
	Value  any
	Weight float64
}

// weightedHeap is a min-heap over WeightedItem.Key so the smallest key
// (evicted first when the reservoir is full) sits at index 0, per
// container/heap's convention.
type weightedHeap []WeightedItem

func (h weightedHeap) Len() int           { return len(h) }
func (h weightedHeap) Less(i, j int) bool { return h[i].Key < h[j].Key }
func (h weightedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *weightedHeap) Push(x any)        { *h = append(*h, x.(WeightedItem)) }
func (h *weightedHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Weighted implements the Efraimidis-Spirakis A-Res algorithm (spec §4.7):
// each item with weight w > 0 is assigned key = U^(1/w) for U uniform in
// (0,1), and a min-heap of size k retains the k largest keys, evicting the
// minimum when full. Not safe for concurrent use; one per worker, merged
// single-threaded.
type Weighted struct {
	k    int
	heap weightedHeap
	rng  *rand.Rand
}

// NewWeighted constructs an empty weighted reservoir with target capacity k
// and the given seed.
func NewWeighted(k int, seed int64) *Weighted {
	return &Weighted{k: k, rng: rand.New(rand.NewSource(seed))}
}

// Offer presents the next (value, weight) pair. weight must be > 0; the
// tokenizer.Weight helper floors token-derived weights at 1 to guarantee
// this.
func (w *Weighted) Offer(value any, weight float64) {
	if weight <= 0 {
		weight = 1
	}
	u := w.rng.Float64()
	if u <= 0 {
		u = math.SmallestNonzeroFloat64
	}
	key := math.Pow(u, 1/weight)

	item := WeightedItem{Key: key, Value: value, Weight: weight}

	if len(w.heap) < w.k {
		heap.Push(&w.heap, item)
		return
	}
	if len(w.heap) > 0 && key > w.heap[0].Key {
		heap.Pop(&w.heap)
		heap.Push(&w.heap, item)
	}
}

// Items returns the current sampled items in no particular order. Output
// formatting (see output.go) sorts by value separately.
func (w *Weighted) Items() []WeightedItem {
	out := make([]WeightedItem, len(w.heap))
	copy(out, w.heap)
	return out
}

// MergeWeighted combines two weighted reservoirs by taking the top k items
// of their union by key, per spec §4.7: "Merge two heaps by taking the top
// k of their union by key."
func MergeWeighted(a, b *Weighted) *Weighted {
	k := a.k
	union := make(weightedHeap, 0, len(a.heap)+len(b.heap))
	union = append(union, a.heap...)
	union = append(union, b.heap...)

	// Build a max-by-key ordering to pick the top k, then re-heapify as a
	// min-heap of exactly those k items.
	for i := 1; i < len(union); i++ {
		item := union[i]
		j := i - 1
		for j >= 0 && union[j].Key < item.Key {
			union[j+1] = union[j]
			j--
		}
		union[j+1] = item
	}
	if len(union) > k {
		union = union[:k]
	}

	merged := &Weighted{k: k, rng: a.rng}
	merged.heap = append(weightedHeap(nil), union...)
	heap.Init(&merged.heap)
	return merged
}

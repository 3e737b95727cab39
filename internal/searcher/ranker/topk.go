package ranker

import (
	"container/heap"
)

// TopK keeps the best limit documents pushed into it, ordered by descending
// score and then ascending document id. The result does not depend on push
// order.
type TopK struct {
	limit int
	h     scoredDocHeap
}

func NewTopK(limit int) *TopK {
	if limit < 0 {
		limit = 0
	}
	return &TopK{limit: limit, h: make(scoredDocHeap, 0, limit+1)}
}

func (t *TopK) Push(doc ScoredDoc) {
	if t.limit == 0 {
		return
	}
	if t.h.Len() == t.limit {
		if !better(doc, t.h[0]) {
			return
		}
		t.h[0] = doc
		heap.Fix(&t.h, 0)
		return
	}
	heap.Push(&t.h, doc)
}

func (t *TopK) Len() int {
	return t.h.Len()
}

// Results drains the collector, best first.
func (t *TopK) Results() []ScoredDoc {
	result := make([]ScoredDoc, t.h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&t.h).(ScoredDoc)
	}
	return result
}

// better reports whether a ranks ahead of b.
func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// scoredDocHeap is a min-heap: the root is the worst kept document.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

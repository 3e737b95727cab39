// Package ranker scores documents with BM25 and selects the top results.
package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/index"
)

const (
	k1 = 1.2
	b  = 0.75

	// TitleBoost multiplies every title-field contribution, so a title hit
	// outranks the same hit in the body.
	TitleBoost = 2.0
)

type ScoredDoc struct {
	DocID uint32  `json:"doc_id"`
	Score float64 `json:"score"`
}

// FieldStats are the collection statistics BM25 needs for one field.
type FieldStats struct {
	TotalDocs      int
	AvgFieldLength float64
}

// TermScore is the BM25 contribution of a term (or phrase) occurring
// termFreq times in a field of fieldLength tokens. idf is the summed IDF of
// the term(s).
func TermScore(field index.Field, idf float64, termFreq, fieldLength int, stats FieldStats) float64 {
	return idf * computeTFNorm(float64(termFreq), float64(fieldLength), stats.AvgFieldLength) * FieldBoost(field)
}

// IDF is the Lucene BM25 inverse document frequency. It is positive for any
// docFreq and strictly decreasing in it.
func IDF(totalDocs, docFreq int) float64 {
	n := float64(totalDocs)
	df := float64(docFreq)
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

func FieldBoost(field index.Field) float64 {
	if field == index.FieldTitle {
		return TitleBoost
	}
	return 1
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}

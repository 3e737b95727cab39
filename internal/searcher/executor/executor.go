package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/logger"
)

// Reader is the read surface of an index: a committed snapshot or an
// in-memory index.
type Reader interface {
	Postings(field index.Field, term string) (index.PostingList, error)
	Doc(docID uint32) (index.StoredDoc, bool)
	DocCount() int
	AvgFieldLength(field index.Field) float64
}

// ScoredDocument is one ranked search result. Like index.StoredDoc, its title
// and path survive JSON byte for byte.
type ScoredDocument struct {
	Title string
	Path  string
	Score float64
}

type scoredDocumentJSON struct {
	Title    string  `json:"title"`
	TitleRaw []byte  `json:"title_raw,omitempty"`
	Path     string  `json:"path"`
	PathRaw  []byte  `json:"path_raw,omitempty"`
	Score    float64 `json:"score"`
}

func (d ScoredDocument) MarshalJSON() ([]byte, error) {
	out := scoredDocumentJSON{Score: d.Score}
	out.Title, out.TitleRaw = index.SplitRaw(d.Title)
	out.Path, out.PathRaw = index.SplitRaw(d.Path)
	return json.Marshal(out)
}

func (d *ScoredDocument) UnmarshalJSON(data []byte) error {
	var in scoredDocumentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = ScoredDocument{
		Title: index.JoinRaw(in.Title, in.TitleRaw),
		Path:  index.JoinRaw(in.Path, in.PathRaw),
		Score: in.Score,
	}
	return nil
}

type SearchResult struct {
	Query     string           `json:"query"`
	TotalHits int              `json:"total_hits"`
	Results   []ScoredDocument `json:"results"`
}

type Executor struct {
	logger *slog.Logger
}

func New() *Executor {
	return &Executor{
		logger: logger.WithComponent("query-executor"),
	}
}

// clauseHits maps each matching document to the clause's score for it.
type clauseHits map[uint32]float64

// Execute matches plan against r and returns the best limit documents.
//
// A document matches when it matches every MUST clause, no MUST_NOT clause,
// and, if the plan has no MUST clause, at least one SHOULD clause. Its score
// is the sum of the scores of the MUST and SHOULD clauses it matches, added in
// clause order.
func (e *Executor) Execute(ctx context.Context, r Reader, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	result := &SearchResult{
		Query:   plan.RawQuery,
		Results: []ScoredDocument{},
	}
	if !plan.HasPositive() || limit <= 0 || r.DocCount() == 0 {
		return result, nil
	}

	hits := make([]clauseHits, len(plan.Clauses))
	for i, c := range plan.Clauses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := e.matchClause(r, c)
		if err != nil {
			return nil, err
		}
		hits[i] = h
	}

	candidates := candidateDocs(plan, hits)
	top := ranker.NewTopK(limit)
	for _, docID := range candidates {
		score := 0.0
		for i, c := range plan.Clauses {
			if c.Occur == parser.OccurMustNot {
				continue
			}
			score += hits[i][docID]
		}
		top.Push(ranker.ScoredDoc{DocID: docID, Score: score})
	}

	for _, sd := range top.Results() {
		doc, ok := r.Doc(sd.DocID)
		if !ok {
			return nil, fmt.Errorf("document %d missing from stored fields", sd.DocID)
		}
		result.Results = append(result.Results, ScoredDocument{
			Title: doc.Title,
			Path:  doc.Path,
			Score: sd.Score,
		})
	}
	result.TotalHits = len(candidates)

	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms(),
		"candidates", len(candidates),
		"results", len(result.Results),
	)
	return result, nil
}

// candidateDocs applies the boolean structure of plan to the clause hits and
// returns the matching document ids in ascending order.
func candidateDocs(plan *parser.QueryPlan, hits []clauseHits) []uint32 {
	var must []clauseHits
	var should []clauseHits
	var mustNot []clauseHits
	for i, c := range plan.Clauses {
		switch c.Occur {
		case parser.OccurMust:
			must = append(must, hits[i])
		case parser.OccurMustNot:
			mustNot = append(mustNot, hits[i])
		default:
			should = append(should, hits[i])
		}
	}

	var candidates map[uint32]struct{}
	if len(must) > 0 {
		candidates = intersectHits(must)
	} else {
		candidates = unionHits(should)
	}
	for _, h := range mustNot {
		for docID := range h {
			delete(candidates, docID)
		}
	}

	ids := make([]uint32, 0, len(candidates))
	for docID := range candidates {
		ids = append(ids, docID)
	}
	slices.Sort(ids)
	return ids
}

func (e *Executor) matchClause(r Reader, c parser.Clause) (clauseHits, error) {
	hits := make(clauseHits)
	totalDocs := r.DocCount()
	for _, field := range c.Fields {
		stats := ranker.FieldStats{
			TotalDocs:      totalDocs,
			AvgFieldLength: r.AvgFieldLength(field),
		}
		var err error
		if c.Phrase {
			err = matchPhrase(r, field, c.Terms, stats, hits)
		} else {
			err = matchTerm(r, field, c.Terms[0], stats, hits)
		}
		if err != nil {
			return nil, fmt.Errorf("matching %s clause in %s: %w", c.Occur, field, err)
		}
	}
	return hits, nil
}

func matchTerm(r Reader, field index.Field, term string, stats ranker.FieldStats, hits clauseHits) error {
	postings, err := r.Postings(field, term)
	if err != nil {
		return err
	}
	if len(postings) == 0 {
		return nil
	}
	idf := ranker.IDF(stats.TotalDocs, len(postings))
	for _, p := range postings {
		doc, ok := r.Doc(p.DocID)
		if !ok {
			return fmt.Errorf("posting references unknown document %d", p.DocID)
		}
		hits[p.DocID] += ranker.TermScore(field, idf, p.Frequency, doc.FieldLengths[field], stats)
	}
	return nil
}

// matchPhrase scores documents containing terms at consecutive positions of
// field. The phrase is weighted by the summed IDF of its terms and its
// occurrence count is used as the term frequency.
func matchPhrase(r Reader, field index.Field, terms []string, stats ranker.FieldStats, hits clauseHits) error {
	lists := make([]index.PostingList, len(terms))
	idf := 0.0
	for i, term := range terms {
		postings, err := r.Postings(field, term)
		if err != nil {
			return err
		}
		if len(postings) == 0 {
			return nil
		}
		lists[i] = postings
		idf += ranker.IDF(stats.TotalDocs, len(postings))
	}

	for _, first := range lists[0] {
		positions := make([][]int, len(lists))
		positions[0] = first.Positions
		found := true
		for i := 1; i < len(lists); i++ {
			p, ok := findPosting(lists[i], first.DocID)
			if !ok {
				found = false
				break
			}
			positions[i] = p.Positions
		}
		if !found {
			continue
		}
		freq := phraseFrequency(positions)
		if freq == 0 {
			continue
		}
		doc, ok := r.Doc(first.DocID)
		if !ok {
			return fmt.Errorf("posting references unknown document %d", first.DocID)
		}
		hits[first.DocID] += ranker.TermScore(field, idf, freq, doc.FieldLengths[field], stats)
	}
	return nil
}

func findPosting(list index.PostingList, docID uint32) (index.Posting, bool) {
	i := sort.Search(len(list), func(i int) bool { return list[i].DocID >= docID })
	if i < len(list) && list[i].DocID == docID {
		return list[i], true
	}
	return index.Posting{}, false
}

// phraseFrequency counts the start positions p such that term k occurs at
// p+k for every k.
func phraseFrequency(positions [][]int) int {
	freq := 0
	for _, start := range positions[0] {
		match := true
		for k := 1; k < len(positions); k++ {
			if _, ok := slices.BinarySearch(positions[k], start+k); !ok {
				match = false
				break
			}
		}
		if match {
			freq++
		}
	}
	return freq
}

func intersectHits(sets []clauseHits) map[uint32]struct{} {
	shortest := 0
	for i, s := range sets {
		if len(s) < len(sets[shortest]) {
			shortest = i
		}
	}
	candidates := make(map[uint32]struct{}, len(sets[shortest]))
	for docID := range sets[shortest] {
		candidates[docID] = struct{}{}
	}
	for i, s := range sets {
		if i == shortest {
			continue
		}
		for docID := range candidates {
			if _, ok := s[docID]; !ok {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

func unionHits(sets []clauseHits) map[uint32]struct{} {
	result := make(map[uint32]struct{})
	for _, s := range sets {
		for docID := range s {
			result[docID] = struct{}{}
		}
	}
	return result
}

package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/parser"
)

func buildIndex(docs ...index.Document) *index.MemoryIndex {
	mi := index.NewMemoryIndex()
	for _, d := range docs {
		mi.AddDocument(d)
	}
	return mi
}

func doc(title, body string) index.Document {
	return index.Document{Title: title, Body: body, Path: "/corpus/" + title}
}

func search(t *testing.T, r Reader, query string, limit int) *SearchResult {
	t.Helper()
	plan, err := parser.Parse(query)
	require.NoError(t, err)
	result, err := New().Execute(context.Background(), r, plan, limit)
	require.NoError(t, err)
	return result
}

func titles(result *SearchResult) []string {
	out := make([]string, len(result.Results))
	for i, r := range result.Results {
		out[i] = r.Title
	}
	return out
}

func TestExecuteScenario(t *testing.T) {
	mi := buildIndex(doc("a.txt", "apple banana"), doc("b.txt", "banana cherry"))

	banana := search(t, mi, "banana", 5)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, titles(banana))
	assert.Equal(t, 2, banana.TotalHits)

	apple := search(t, mi, "apple", 5)
	assert.Equal(t, []string{"a.txt"}, titles(apple))
	assert.Equal(t, "/corpus/a.txt", apple.Results[0].Path)
	assert.Greater(t, apple.Results[0].Score, 0.0)
}

func TestExecuteUniqueBodyTermScoresPositive(t *testing.T) {
	mi := buildIndex(
		doc("one.txt", "common words everywhere"),
		doc("two.txt", "common words xylophone"),
		doc("three.txt", "common words again"),
	)
	result := search(t, mi, "xylophone", 1)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "two.txt", result.Results[0].Title)
	assert.Greater(t, result.Results[0].Score, 0.0)
}

func TestExecuteShortAndCommonWords(t *testing.T) {
	mi := buildIndex(
		doc("a.txt", "apple x"),
		doc("b.txt", "banana who"),
		doc("c.txt", "cherry 7"),
	)
	for query, want := range map[string]string{"x": "a.txt", "who": "b.txt", "7": "c.txt"} {
		result := search(t, mi, query, 5)
		require.Len(t, result.Results, 1, query)
		assert.Equal(t, want, result.Results[0].Title, query)
		assert.Greater(t, result.Results[0].Score, 0.0, query)
	}
}

func TestExecuteNoMatchReturnsEmpty(t *testing.T) {
	mi := buildIndex(doc("a.txt", "apple banana"))
	result := search(t, mi, "zebra", 5)
	assert.NotNil(t, result.Results)
	assert.Empty(t, result.Results)
	assert.Zero(t, result.TotalHits)
}

func TestExecuteEmptyIndex(t *testing.T) {
	result := search(t, index.NewMemoryIndex(), "anything", 5)
	assert.Empty(t, result.Results)
}

func TestExecuteTitleOutranksBody(t *testing.T) {
	mi := buildIndex(
		doc("notes.txt", "quarterly report draft"),
		doc("report.txt", "quarterly numbers draft"),
	)
	result := search(t, mi, "report", 5)
	assert.Equal(t, []string{"report.txt", "notes.txt"}, titles(result))
}

func TestExecuteMonotonicInTermFrequency(t *testing.T) {
	mi := buildIndex(
		doc("low.txt", "cherry filler filler filler"),
		doc("high.txt", "cherry cherry cherry filler"),
	)
	result := search(t, mi, "cherry", 5)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "high.txt", result.Results[0].Title)
	assert.Greater(t, result.Results[0].Score, result.Results[1].Score)
}

func TestExecuteRarerTermScoresHigher(t *testing.T) {
	mi := buildIndex(
		doc("d1.txt", "alpha omega"),
		doc("d2.txt", "alpha beta"),
		doc("d3.txt", "alpha gamma"),
	)
	rare := search(t, mi, "omega", 5)
	common := search(t, mi, "alpha", 5)
	require.Len(t, rare.Results, 1)
	require.Len(t, common.Results, 3)
	assert.Greater(t, rare.Results[0].Score, common.Results[0].Score)
}

func TestExecuteTiesBrokenByInsertionOrder(t *testing.T) {
	docs := make([]index.Document, 8)
	for i := range docs {
		docs[i] = doc(fmt.Sprintf("same%d.txt", i), "identical content")
	}
	mi := buildIndex(docs...)
	result := search(t, mi, "identical", 5)
	assert.Equal(t, []string{"same0.txt", "same1.txt", "same2.txt", "same3.txt", "same4.txt"}, titles(result))
	assert.Equal(t, 8, result.TotalHits)
}

func TestExecuteBooleanClauses(t *testing.T) {
	mi := buildIndex(
		doc("a.txt", "apple banana"),
		doc("b.txt", "banana cherry"),
		doc("c.txt", "apple cherry"),
	)
	assert.Equal(t, []string{"a.txt"}, titles(search(t, mi, "apple AND banana", 5)))
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, titles(search(t, mi, "banana -date", 5)))
	assert.Equal(t, []string{"b.txt"}, titles(search(t, mi, "banana NOT apple", 5)))
	assert.Equal(t, []string{"c.txt"}, titles(search(t, mi, "+cherry -banana", 5)))
	assert.ElementsMatch(t, []string{"a.txt", "b.txt", "c.txt"}, titles(search(t, mi, "apple OR cherry", 5)))
	assert.Empty(t, search(t, mi, "-apple", 5).Results)
}

func TestExecuteMustRestrictsShould(t *testing.T) {
	mi := buildIndex(
		doc("a.txt", "apple banana"),
		doc("b.txt", "banana cherry"),
	)
	result := search(t, mi, "+banana apple", 5)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "a.txt", result.Results[0].Title, "SHOULD clause adds to the score")
}

func TestExecutePhrase(t *testing.T) {
	mi := buildIndex(
		doc("x.txt", "green apple pie"),
		doc("y.txt", "apple green tea"),
	)
	assert.Equal(t, []string{"x.txt"}, titles(search(t, mi, `"green apple"`, 5)))
	assert.Equal(t, []string{"y.txt"}, titles(search(t, mi, `"apple green"`, 5)))
	assert.Empty(t, search(t, mi, `"green pie"`, 5).Results)
}

func TestExecuteFieldRestriction(t *testing.T) {
	mi := buildIndex(
		doc("banana.txt", "yellow fruit"),
		doc("fruit.txt", "banana split"),
	)
	assert.Equal(t, []string{"banana.txt"}, titles(search(t, mi, "title:banana", 5)))
	assert.Equal(t, []string{"fruit.txt"}, titles(search(t, mi, "body:banana", 5)))
}

func TestExecuteLimit(t *testing.T) {
	docs := make([]index.Document, 10)
	for i := range docs {
		docs[i] = doc(fmt.Sprintf("d%d.txt", i), "shared")
	}
	mi := buildIndex(docs...)
	assert.Len(t, search(t, mi, "shared", 5).Results, 5)
	assert.Empty(t, search(t, mi, "shared", 0).Results)
}

func TestExecuteSegmentMatchesMemoryIndex(t *testing.T) {
	mi := buildIndex(
		doc("a.txt", "apple banana apple"),
		doc("b.txt", "banana cherry"),
		doc("cherry.txt", "green apple pie with cherry"),
	)
	dir := t.TempDir()
	name, err := segment.NewWriter(dir).Write(mi.Snapshot())
	require.NoError(t, err)
	seg, err := segment.OpenReader(filepath.Join(dir, name))
	require.NoError(t, err)
	defer seg.Close()

	for _, q := range []string{"apple", "banana cherry", `"green apple"`, "title:cherry", "apple -pie"} {
		assert.Equal(t, search(t, mi, q, 5), search(t, seg, q, 5), q)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	mi := buildIndex(
		doc("a.txt", "apple banana cherry"),
		doc("b.txt", "banana cherry date"),
		doc("c.txt", "cherry date elderberry"),
	)
	first := search(t, mi, "banana cherry date", 5)
	for range 20 {
		assert.Equal(t, first, search(t, mi, "banana cherry date", 5))
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	mi := buildIndex(doc("a.txt", "apple"))
	plan, err := parser.Parse("apple")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New().Execute(ctx, mi, plan, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkExecute(b *testing.B) {
	mi := index.NewMemoryIndex()
	words := []string{"search", "engine", "index", "query", "distributed", "system", "cache", "shard", "rank", "score"}
	for i := range 2000 {
		body := ""
		for j := range 30 {
			body += words[(i*7+j*3)%len(words)] + " "
		}
		mi.AddDocument(index.Document{Title: fmt.Sprintf("doc%d.txt", i), Body: body, Path: fmt.Sprintf("/d/doc%d.txt", i)})
	}
	plan, _ := parser.Parse("search engine -shard")
	exec := New()
	b.ResetTimer()
	for b.Loop() {
		_, _ = exec.Execute(context.Background(), mi, plan, 5)
	}
}

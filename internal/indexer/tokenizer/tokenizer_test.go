package tokenizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The Apple, and a BANANA!")

	assert.Equal(t, []Token{
		{Term: "the", Position: 0},
		{Term: "apple", Position: 1},
		{Term: "and", Position: 2},
		{Term: "a", Position: 3},
		{Term: "banana", Position: 4},
	}, tokens)
}

func TestTokenizeKeepsShortAndCommonWords(t *testing.T) {
	assert.Equal(t, []string{"a", "i", "the", "of", "to", "x", "7", "who", "is", "s"},
		Terms("a I the of to x 7 who is s"))
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("  --- ... !!!"))
}

func TestTokenizeStems(t *testing.T) {
	tests := map[string]string{
		"indexing":   "index",
		"documents":  "document",
		"relational": "relate",
		"queries":    "query",
		"banana":     "banana",
		"cherry":     "cherry",
	}
	for word, want := range tests {
		t.Run(word, func(t *testing.T) {
			assert.Equal(t, []string{want}, Terms(word))
		})
	}
}

func TestTokenizeKeepsDigitsAndUnicodeLetters(t *testing.T) {
	assert.Equal(t, []string{"v2", "café", "2024"}, Terms("v2 café 2024"))
}

func TestTokenizeTitleWithExtension(t *testing.T) {
	assert.Equal(t, []string{"report", "txt"}, Terms("report.txt"))
}

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Distributed search engines process queries across multiple shards to achieve
        horizontal scalability. Each shard maintains its own inverted index and responds
        to queries independently.`,
	"long": strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. These systems combine tokenization, stemming, and stop word
        removal to normalize text into searchable terms. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	baseWord := "plain text and pdf documents indexed for search "
	for _, size := range []int{10, 100, 1000, 5000} {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}

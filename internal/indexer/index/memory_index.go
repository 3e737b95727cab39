package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/tokenizer"
)

// MemoryIndex accumulates documents of one build before they are written to
// a segment. Document ids are assigned in insertion order starting at 0.
type MemoryIndex struct {
	mu     sync.RWMutex
	fields [NumFields]map[string]map[uint32]*Posting
	docs   []StoredDoc
	size   int64
}

func NewMemoryIndex() *MemoryIndex {
	m := &MemoryIndex{}
	m.resetLocked()
	return m
}

// AddDocument tokenizes the title and body of doc and returns its id.
func (m *MemoryIndex) AddDocument(doc Document) uint32 {
	texts := [NumFields]string{
		FieldTitle: doc.Title,
		FieldBody:  doc.Body,
	}
	var perField [NumFields]map[string]*Posting
	var lengths [NumFields]int
	for _, field := range Fields {
		tokens := tokenizer.Tokenize(texts[field])
		lengths[field] = len(tokens)
		termData := make(map[string]*Posting)
		for _, token := range tokens {
			p, exists := termData[token.Term]
			if !exists {
				p = &Posting{Positions: make([]int, 0, 4)}
				termData[token.Term] = p
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
		}
		perField[field] = termData
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docID := uint32(len(m.docs))
	for _, field := range Fields {
		for term, posting := range perField[field] {
			posting.DocID = docID
			if _, exists := m.fields[field][term]; !exists {
				m.fields[field][term] = make(map[uint32]*Posting)
			}
			m.fields[field][term][docID] = posting
			m.size += int64(len(term) + len(posting.Positions)*8 + 64)
		}
	}
	m.docs = append(m.docs, StoredDoc{
		DocID:        docID,
		Title:        doc.Title,
		Path:         doc.Path,
		FieldLengths: lengths,
	})
	m.size += int64(len(doc.Title) + len(doc.Path) + 32)
	return docID
}

func (m *MemoryIndex) Postings(field Field, term string) (PostingList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(field) >= NumFields {
		return nil, nil
	}
	docs, exists := m.fields[field][term]
	if !exists {
		return nil, nil
	}
	return sortedPostings(docs), nil
}

func (m *MemoryIndex) Doc(docID uint32) (StoredDoc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(docID) >= len(m.docs) {
		return StoredDoc{}, false
	}
	return m.docs[docID], true
}

func (m *MemoryIndex) AvgFieldLength(field Field) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.docs) == 0 || int(field) >= NumFields {
		return 0
	}
	var total int
	for _, d := range m.docs {
		total += d.FieldLengths[field]
	}
	return float64(total) / float64(len(m.docs))
}

func (m *MemoryIndex) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0)
	for _, field := range Fields {
		for term, docs := range m.fields[field] {
			entries = append(entries, TermEntry{
				Field:    field,
				Term:     term,
				Postings: sortedPostings(docs),
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})
	docs := make([]StoredDoc, len(m.docs))
	copy(docs, m.docs)
	return Snapshot{Terms: entries, Docs: docs}
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *MemoryIndex) resetLocked() {
	for _, field := range Fields {
		m.fields[field] = make(map[string]map[uint32]*Posting)
	}
	m.docs = nil
	m.size = 0
}

func sortedPostings(docs map[uint32]*Posting) PostingList {
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

package segment

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/index"
)

// Reader serves postings and stored documents from one segment file. The
// dictionary and stored documents are loaded at open; postings are read on
// demand.
type Reader struct {
	file      *os.File
	filePath  string
	header    SegmentHeader
	footer    SegmentFooter
	dict      []DictEntry
	docs      []index.StoredDoc
	avgLength [index.NumFields]float64
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := newReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newReader(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	size := info.Size()
	if size < int64(HeaderSize+FooterSize) {
		return nil, fmt.Errorf("invalid segment file: truncated (%d bytes)", size)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment format version %d (want %d)", header.Version, FormatVersion)
	}
	if header.DocsOffset+header.DocsSize+int64(FooterSize) != size {
		return nil, fmt.Errorf("invalid segment file: layout does not match file size %d", size)
	}

	footerBytes := make([]byte, FooterSize)
	if _, err := f.ReadAt(footerBytes, size-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading segment footer: %w", err)
	}
	footer := decodeFooter(footerBytes)
	if footer.Magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment file: bad footer magic %x", footer.Magic)
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	if crc32.ChecksumIEEE(dictBytes) != footer.DictChecksum {
		return nil, fmt.Errorf("invalid segment file: dictionary checksum mismatch")
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}

	docsBytes := make([]byte, header.DocsSize)
	if _, err := f.ReadAt(docsBytes, header.DocsOffset); err != nil {
		return nil, fmt.Errorf("reading stored documents: %w", err)
	}
	if crc32.ChecksumIEEE(docsBytes) != footer.DocsChecksum {
		return nil, fmt.Errorf("invalid segment file: stored documents checksum mismatch")
	}
	var docs []index.StoredDoc
	if err := json.Unmarshal(docsBytes, &docs); err != nil {
		return nil, fmt.Errorf("parsing stored documents: %w", err)
	}
	if len(docs) != int(header.DocCount) {
		return nil, fmt.Errorf("invalid segment file: header claims %d docs, found %d", header.DocCount, len(docs))
	}

	r := &Reader{
		file:     f,
		filePath: path,
		header:   header,
		footer:   footer,
		dict:     dict,
		docs:     docs,
	}
	if len(docs) > 0 {
		var totals [index.NumFields]int
		for _, d := range docs {
			for _, field := range index.Fields {
				totals[field] += d.FieldLengths[field]
			}
		}
		for _, field := range index.Fields {
			r.avgLength[field] = float64(totals[field]) / float64(len(docs))
		}
	}
	return r, nil
}

// Postings returns the posting list of term in field, or nil when the term
// does not occur.
func (r *Reader) Postings(field index.Field, term string) (index.PostingList, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		if r.dict[i].Field != field {
			return r.dict[i].Field > field
		}
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Field != field || r.dict[idx].Term != term {
		return nil, nil
	}
	entry := r.dict[idx]
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	return postings, nil
}

func (r *Reader) Doc(docID uint32) (index.StoredDoc, bool) {
	if int(docID) >= len(r.docs) {
		return index.StoredDoc{}, false
	}
	return r.docs[docID], true
}

func (r *Reader) AvgFieldLength(field index.Field) float64 {
	if int(field) >= index.NumFields {
		return 0
	}
	return r.avgLength[field]
}

func (r *Reader) DocCount() int {
	return len(r.docs)
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}

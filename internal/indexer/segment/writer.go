package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/index"
)

// MagicBytes identifies a valid .spdx segment file.
const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 32
	Extension            = ".spdx"
)

// SegmentHeader is the 64-byte header written at the start of every segment.
// Offsets are absolute file offsets.
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	PostOffset int64
	PostSize   int64
	DictOffset int64
	DictSize   int64
	DocsOffset int64
	DocsSize   int64
}

// SegmentFooter trails the stored-document table and carries checksums of
// the dictionary and the stored documents.
type SegmentFooter struct {
	DictChecksum uint32
	DocsChecksum uint32
	CreatedAt    int64
	Magic        uint32
}

// DictEntry maps a (field, term) pair to its postings offset, length, and
// document frequency in the segment file. PostOffset is relative to the start
// of the postings area.
type DictEntry struct {
	Field      index.Field `json:"f"`
	Term       string      `json:"t"`
	PostOffset int64       `json:"o"`
	PostLen    int         `json:"l"`
	DocFreq    int         `json:"d"`
}

// Writer serialises index snapshots into new .spdx segment files.
type Writer struct {
	dataDir string
	now     func() time.Time
}

// NewWriter creates a Writer that writes segments into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir, now: time.Now}
}

// Write atomically creates a new segment file containing the snapshot. It
// writes to a .tmp file first, syncs it, and renames on success. An empty
// snapshot produces a valid segment with no terms and no documents.
func (w *Writer) Write(snap index.Snapshot) (string, error) {
	created := w.now()
	segmentName := fmt.Sprintf("seg_%d%s", created.UnixNano(), Extension)
	finalPath := filepath.Join(w.dataDir, segmentName)
	tmpPath := finalPath + TempSuffix

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	committed := false
	defer func() {
		f.Close()
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	header := SegmentHeader{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		TermCount: uint32(len(snap.Terms)),
		DocCount:  uint32(len(snap.Docs)),
	}
	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		return "", fmt.Errorf("reserving header: %w", err)
	}

	header.PostOffset = int64(HeaderSize)
	var written int64
	dict := make([]DictEntry, 0, len(snap.Terms))
	for _, entry := range snap.Terms {
		postingsData, err := json.Marshal(entry.Postings)
		if err != nil {
			return "", fmt.Errorf("marshaling postings for %s:%q: %w", entry.Field, entry.Term, err)
		}
		if _, err := f.Write(postingsData); err != nil {
			return "", fmt.Errorf("writing postings for %s:%q: %w", entry.Field, entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Field:      entry.Field,
			Term:       entry.Term,
			PostOffset: written,
			PostLen:    len(postingsData),
			DocFreq:    len(entry.Postings),
		})
		written += int64(len(postingsData))
	}
	header.PostSize = written

	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	header.DictOffset = header.PostOffset + header.PostSize
	header.DictSize = int64(len(dictData))
	if _, err := f.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}

	docs := snap.Docs
	if docs == nil {
		docs = []index.StoredDoc{}
	}
	docsData, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("marshaling stored documents: %w", err)
	}
	header.DocsOffset = header.DictOffset + header.DictSize
	header.DocsSize = int64(len(docsData))
	if _, err := f.Write(docsData); err != nil {
		return "", fmt.Errorf("writing stored documents: %w", err)
	}

	footer := SegmentFooter{
		DictChecksum: crc32.ChecksumIEEE(dictData),
		DocsChecksum: crc32.ChecksumIEEE(docsData),
		CreatedAt:    created.UnixNano(),
		Magic:        MagicBytes,
	}
	if _, err := f.Write(encodeFooter(footer)); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}
	if _, err := f.WriteAt(encodeHeader(header), 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	committed = true
	if err := syncDir(w.dataDir); err != nil {
		return "", err
	}
	return segmentName, nil
}

func encodeHeader(h SegmentHeader) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(buf[48:56], uint64(h.DocsOffset))
	binary.LittleEndian.PutUint64(buf[56:64], uint64(h.DocsSize))
	return buf
}

func decodeHeader(buf []byte) SegmentHeader {
	return SegmentHeader{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint32(buf[4:8]),
		TermCount:  binary.LittleEndian.Uint32(buf[8:12]),
		DocCount:   binary.LittleEndian.Uint32(buf[12:16]),
		PostOffset: int64(binary.LittleEndian.Uint64(buf[16:24])),
		PostSize:   int64(binary.LittleEndian.Uint64(buf[24:32])),
		DictOffset: int64(binary.LittleEndian.Uint64(buf[32:40])),
		DictSize:   int64(binary.LittleEndian.Uint64(buf[40:48])),
		DocsOffset: int64(binary.LittleEndian.Uint64(buf[48:56])),
		DocsSize:   int64(binary.LittleEndian.Uint64(buf[56:64])),
	}
}

func encodeFooter(f SegmentFooter) []byte {
	buf := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(buf[0:4], f.DictChecksum)
	binary.LittleEndian.PutUint32(buf[4:8], f.DocsChecksum)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(f.CreatedAt))
	binary.LittleEndian.PutUint32(buf[16:20], f.Magic)
	return buf
}

func decodeFooter(buf []byte) SegmentFooter {
	return SegmentFooter{
		DictChecksum: binary.LittleEndian.Uint32(buf[0:4]),
		DocsChecksum: binary.LittleEndian.Uint32(buf[4:8]),
		CreatedAt:    int64(binary.LittleEndian.Uint64(buf[8:16])),
		Magic:        binary.LittleEndian.Uint32(buf[16:20]),
	}
}

// syncDir flushes directory metadata so a completed rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("opening directory for sync: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("syncing directory: %w", err)
	}
	return nil
}

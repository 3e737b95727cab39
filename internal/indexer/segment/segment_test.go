package segment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/indexer/index"
)

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	mi := index.NewMemoryIndex()
	mi.AddDocument(index.Document{Title: "a.txt", Body: "apple banana", Path: "/d/a.txt"})
	mi.AddDocument(index.Document{Title: "b.txt", Body: "banana cherry cherry", Path: "/d/b.txt"})

	name, err := NewWriter(dir).Write(mi.Snapshot())
	require.NoError(t, err)
	return filepath.Join(dir, name)
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir)

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.DocCount())
	assert.Equal(t, path, r.Path())
	// title: a b txt; body: apple banana cherry
	assert.Equal(t, 6, r.Terms())

	banana, err := r.Postings(index.FieldBody, "banana")
	require.NoError(t, err)
	require.Len(t, banana, 2)
	assert.Equal(t, uint32(0), banana[0].DocID)
	assert.Equal(t, uint32(1), banana[1].DocID)

	cherry, err := r.Postings(index.FieldBody, "cherry")
	require.NoError(t, err)
	require.Len(t, cherry, 1)
	assert.Equal(t, 2, cherry[0].Frequency)
	assert.Equal(t, []int{1, 2}, cherry[0].Positions)

	txt, err := r.Postings(index.FieldTitle, "txt")
	require.NoError(t, err)
	assert.Len(t, txt, 2)

	missing, err := r.Postings(index.FieldTitle, "banana")
	require.NoError(t, err)
	assert.Nil(t, missing)

	doc, ok := r.Doc(1)
	require.True(t, ok)
	assert.Equal(t, "b.txt", doc.Title)
	assert.Equal(t, "/d/b.txt", doc.Path)
	_, ok = r.Doc(2)
	assert.False(t, ok)

	assert.InDelta(t, 2.5, r.AvgFieldLength(index.FieldBody), 1e-9)
	assert.InDelta(t, 2.0, r.AvgFieldLength(index.FieldTitle), 1e-9)
}

func TestWriteKeepsNonUTF8Paths(t *testing.T) {
	dir := t.TempDir()
	title := "caf\xe9.txt"
	path := "/d/caf\xe9.txt"
	mi := index.NewMemoryIndex()
	mi.AddDocument(index.Document{Title: title, Body: "espresso", Path: path})
	mi.AddDocument(index.Document{Title: "plain.txt", Body: "tea", Path: "/d/plain.txt"})

	name, err := NewWriter(dir).Write(mi.Snapshot())
	require.NoError(t, err)
	r, err := OpenReader(filepath.Join(dir, name))
	require.NoError(t, err)
	defer r.Close()

	doc, ok := r.Doc(0)
	require.True(t, ok)
	assert.Equal(t, []byte(title), []byte(doc.Title))
	assert.Equal(t, []byte(path), []byte(doc.Path))

	doc, ok = r.Doc(1)
	require.True(t, ok)
	assert.Equal(t, "/d/plain.txt", doc.Path)
}

func TestWriteEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	name, err := NewWriter(dir).Write(index.Snapshot{})
	require.NoError(t, err)

	r, err := OpenReader(filepath.Join(dir, name))
	require.NoError(t, err)
	defer r.Close()

	assert.Zero(t, r.DocCount())
	assert.Zero(t, r.AvgFieldLength(index.FieldBody))
	postings, err := r.Postings(index.FieldBody, "anything")
	require.NoError(t, err)
	assert.Nil(t, postings)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Extension, filepath.Ext(entries[0].Name()))
}

func TestOpenReaderRejectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] ^= 0xFF
		p := filepath.Join(dir, "magic.spdx")
		require.NoError(t, os.WriteFile(p, bad, 0o644))
		_, err := OpenReader(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad magic")
	})

	t.Run("flipped dictionary byte", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		h := decodeHeader(bad[:HeaderSize])
		bad[h.DictOffset+1] ^= 0x01
		p := filepath.Join(dir, "dict.spdx")
		require.NoError(t, os.WriteFile(p, bad, 0o644))
		_, err := OpenReader(p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checksum")
	})

	t.Run("truncated", func(t *testing.T) {
		p := filepath.Join(dir, "short.spdx")
		require.NoError(t, os.WriteFile(p, data[:len(data)-5], 0o644))
		_, err := OpenReader(p)
		require.Error(t, err)
	})
}

func TestManifestRoundTripAndCompatibility(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadManifest(dir)
	require.ErrorIs(t, err, os.ErrNotExist)

	m := &Manifest{
		FormatVersion: FormatVersion,
		Schema:        CurrentSchema(),
		BuildID:       "b-1",
		Segment:       "seg_1.spdx",
		DocCount:      2,
		TermCount:     4,
		CommittedAt:   time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, WriteManifest(dir, m))

	got, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.NoError(t, got.Compatible())

	got.FormatVersion = 1
	assert.Error(t, got.Compatible())

	got.FormatVersion = FormatVersion
	got.Schema.Indexed = []string{"title"}
	assert.Error(t, got.Compatible())
}

func TestListSegments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"seg_2.spdx", "seg_1.spdx", "seg_3.spdx.tmp", ManifestName} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	names, err := ListSegments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"seg_1.spdx", "seg_2.spdx"}, names)

	temps, err := ListTemp(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"seg_3.spdx.tmp"}, temps)
}

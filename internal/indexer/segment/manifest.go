package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ManifestName is the file naming the committed segment of an index
// directory. Replacing it is the commit point of a build.
const ManifestName = "MANIFEST"

// TempSuffix marks a segment or manifest that is still being written.
const TempSuffix = ".tmp"

// Schema describes the fields a segment was written with.
type Schema struct {
	Indexed []string `json:"indexed"`
	Stored  []string `json:"stored"`
}

// CurrentSchema is the document schema written by this version.
func CurrentSchema() Schema {
	return Schema{
		Indexed: []string{"title", "body"},
		Stored:  []string{"title", "path"},
	}
}

type Manifest struct {
	FormatVersion uint32    `json:"format_version"`
	Schema        Schema    `json:"schema"`
	BuildID       string    `json:"build_id"`
	Segment       string    `json:"segment"`
	DocCount      int       `json:"doc_count"`
	TermCount     int       `json:"term_count"`
	CommittedAt   time.Time `json:"committed_at"`
}

// Compatible reports whether the manifest was written with the current
// format version and schema.
func (m *Manifest) Compatible() error {
	if m.FormatVersion != FormatVersion {
		return fmt.Errorf("index format version %d is not supported (want %d)", m.FormatVersion, FormatVersion)
	}
	want := CurrentSchema()
	if !slices.Equal(m.Schema.Indexed, want.Indexed) || !slices.Equal(m.Schema.Stored, want.Stored) {
		return fmt.Errorf("index schema %+v does not match %+v", m.Schema, want)
	}
	return nil
}

// ReadManifest loads the manifest of dir. A missing manifest yields an error
// matching os.ErrNotExist.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Segment == "" {
		return nil, errors.New("manifest names no segment")
	}
	return &m, nil
}

// WriteManifest atomically replaces the manifest of dir.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	finalPath := filepath.Join(dir, ManifestName)
	tmpPath := finalPath + TempSuffix
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing manifest: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return syncDir(dir)
}

// ListSegments returns the segment file names in dir, sorted.
func ListSegments(dir string) ([]string, error) {
	return listFiles(dir, func(name string) bool { return filepath.Ext(name) == Extension })
}

// ListTemp returns the names of files in dir left behind by interrupted
// segment or manifest writes, sorted.
func ListTemp(dir string) ([]string, error) {
	return listFiles(dir, func(name string) bool { return strings.HasSuffix(name, TempSuffix) })
}

func listFiles(dir string, match func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && match(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

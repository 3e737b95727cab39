package index

import (
	"encoding/json"
	"fmt"
)

// Field identifies one indexed text field of the document schema.
type Field uint8

const (
	FieldTitle Field = iota
	FieldBody
)

// NumFields is the number of indexed fields in the schema.
const NumFields = 2

// Fields lists the indexed fields in scoring order.
var Fields = [NumFields]Field{FieldTitle, FieldBody}

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldBody:
		return "body"
	default:
		return fmt.Sprintf("field(%d)", uint8(f))
	}
}

// ParseField resolves a schema field name.
func ParseField(name string) (Field, bool) {
	switch name {
	case "title":
		return FieldTitle, true
	case "body":
		return FieldBody, true
	}
	return 0, false
}

// Document is one file to be indexed. Title and Body are tokenized; Title and
// Path are stored for retrieval.
type Document struct {
	Title string
	Body  string
	Path  string
}

// StoredDoc is the retrievable part of an indexed document plus the per-field
// token counts used for length normalisation. Title and Path keep their exact
// bytes through JSON, even when they are not valid UTF-8.
type StoredDoc struct {
	DocID        uint32
	Title        string
	Path         string
	FieldLengths [NumFields]int
}

type storedDocJSON struct {
	DocID        uint32         `json:"id"`
	Title        string         `json:"title"`
	TitleRaw     []byte         `json:"title_raw,omitempty"`
	Path         string         `json:"path"`
	PathRaw      []byte         `json:"path_raw,omitempty"`
	FieldLengths [NumFields]int `json:"len"`
}

func (d StoredDoc) MarshalJSON() ([]byte, error) {
	out := storedDocJSON{DocID: d.DocID, FieldLengths: d.FieldLengths}
	out.Title, out.TitleRaw = SplitRaw(d.Title)
	out.Path, out.PathRaw = SplitRaw(d.Path)
	return json.Marshal(out)
}

func (d *StoredDoc) UnmarshalJSON(data []byte) error {
	var in storedDocJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = StoredDoc{
		DocID:        in.DocID,
		Title:        JoinRaw(in.Title, in.TitleRaw),
		Path:         JoinRaw(in.Path, in.PathRaw),
		FieldLengths: in.FieldLengths,
	}
	return nil
}

type Posting struct {
	DocID     uint32 `json:"d"`
	Frequency int    `json:"f"`
	Positions []int  `json:"p,omitempty"`
}

// PostingList is always sorted by ascending DocID.
type PostingList []Posting

type TermEntry struct {
	Field    Field
	Term     string
	Postings PostingList
}

// Snapshot is a point-in-time copy of an index, ordered for serialisation:
// terms by (field, term), docs by id.
type Snapshot struct {
	Terms []TermEntry
	Docs  []StoredDoc
}

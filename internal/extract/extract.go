// Package extract turns indexable files into text. A file is classified once
// by extension into a FileKind, and each kind has one extraction function.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/cacherch/pkg/errors"
)

// Kind is the closed set of file handlings known to the indexer.
type Kind int

const (
	KindUnsupported Kind = iota
	KindText
	KindPDF
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPDF:
		return "pdf"
	default:
		return "unsupported"
	}
}

// FileKind is the classification of one file: its Kind plus the lower-cased
// extension without the dot, kept for error reporting.
type FileKind struct {
	Kind      Kind
	Extension string
}

// Classify resolves the handling of path from its extension, ignoring case.
func Classify(path string) FileKind {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "txt":
		return FileKind{Kind: KindText, Extension: ext}
	case "pdf":
		return FileKind{Kind: KindPDF, Extension: ext}
	default:
		return FileKind{Kind: KindUnsupported, Extension: ext}
	}
}

// PDFExtractor extracts the text of a PDF file.
type PDFExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Extractor dispatches a classified file to its extraction function.
type Extractor struct {
	pdf PDFExtractor
}

func New(pdf PDFExtractor) *Extractor {
	return &Extractor{pdf: pdf}
}

// Extract returns the text of path according to kind. Failures are typed:
// ErrUnsupportedExtension, ErrIO for plain-text reads, ErrExtraction for PDFs.
func (e *Extractor) Extract(ctx context.Context, path string, kind FileKind) (string, error) {
	switch kind.Kind {
	case KindText:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", apperrors.Wrap(apperrors.ErrIO, err, fmt.Sprintf("reading %s", path))
		}
		return string(data), nil
	case KindPDF:
		if e.pdf == nil {
			return "", apperrors.New(apperrors.ErrExtraction, path)
		}
		text, err := e.pdf.ExtractText(ctx, path)
		if err != nil {
			return "", apperrors.Wrap(apperrors.ErrExtraction, err, path)
		}
		return text, nil
	default:
		return "", apperrors.New(apperrors.ErrUnsupportedExtension, kind.Extension)
	}
}

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrPDFToolNotFound is returned when the pdftotext binary is not on PATH.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils (apt) or poppler (brew)")

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// PDFToText extracts PDF text by running `pdftotext -layout <file> -`.
type PDFToText struct {
	binary string
	runner CommandRunner
}

// NewPDFToText uses binary (a name on PATH or a path) to extract text.
func NewPDFToText(binary string) *PDFToText {
	return NewPDFToTextWithRunner(binary, execRunner{})
}

func NewPDFToTextWithRunner(binary string, runner CommandRunner) *PDFToText {
	if binary == "" {
		binary = "pdftotext"
	}
	return &PDFToText{binary: binary, runner: runner}
}

// CheckAvailable reports ErrPDFToolNotFound if the binary cannot be found.
func (p *PDFToText) CheckAvailable() error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

func (p *PDFToText) ExtractText(ctx context.Context, path string) (string, error) {
	out, err := p.runner.Run(ctx, p.binary, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return "", ErrPDFToolNotFound
		}
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(out), nil
}

package ui

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Adithya-Monish-Kumar-K/cacherch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/cacherch/pkg/health"
)

// Printer writes user-facing output. Write errors are ignored: there is
// nowhere better to report them.
type Printer struct {
	w      io.Writer
	styles Styles
}

func NewPrinter(w io.Writer, noColor bool) *Printer {
	return &Printer{w: w, styles: GetStyles(noColor)}
}

func (p *Printer) Info(format string, args ...any) {
	p.tagged(p.styles.Info, "[Info]", format, args...)
}

func (p *Printer) Success(format string, args ...any) {
	p.tagged(p.styles.Success, "[Success]", format, args...)
}

func (p *Printer) Warning(format string, args ...any) {
	p.tagged(p.styles.Warning, "[Warning]", format, args...)
}

func (p *Printer) Error(format string, args ...any) {
	p.tagged(p.styles.Error, "[Error]", format, args...)
}

func (p *Printer) tagged(style lipgloss.Style, tag, format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", style.Render(tag), fmt.Sprintf(format, args...))
}

// CacheStatus prints the hit or miss tag of a search.
func (p *Printer) CacheStatus(hit bool, elapsed time.Duration) {
	if hit {
		fmt.Fprintf(p.w, "%s served from cache in %s\n", p.styles.Success.Render("[Cache Hit]"), roundElapsed(elapsed))
		return
	}
	fmt.Fprintf(p.w, "%s searched the index in %s\n", p.styles.Warning.Render("[Cache Miss]"), roundElapsed(elapsed))
}

// Results prints one line per result, ranked from 1:
//
//	1. notes.txt (0.87) - /docs/notes.txt
func (p *Printer) Results(results []executor.ScoredDocument) {
	if len(results) == 0 {
		p.Info("No documents matched")
		return
	}
	for i, r := range results {
		fmt.Fprintf(p.w, "%s %s %s - %s\n",
			p.styles.Rank.Render(fmt.Sprintf("%d.", i+1)),
			p.styles.Title.Render(r.Title),
			p.styles.Score.Render(fmt.Sprintf("(%.2f)", r.Score)),
			p.styles.Path.Render(r.Path),
		)
	}
}

// Health prints one line per component, in name order.
func (p *Printer) Health(report health.Report) {
	for _, name := range report.Names() {
		comp := report.Components[name]
		msg := comp.Message
		if msg == "" {
			msg = "ok"
		}
		switch comp.Status {
		case health.StatusUp:
			p.Success("%s: %s", name, msg)
		case health.StatusDegraded:
			p.Warning("%s: %s", name, msg)
		default:
			p.Error("%s: %s", name, msg)
		}
		for _, key := range slices.Sorted(maps.Keys(comp.Details)) {
			fmt.Fprintf(p.w, "    %s: %v\n", key, comp.Details[key])
		}
	}
}

func roundElapsed(d time.Duration) time.Duration {
	if d < time.Millisecond {
		return d.Round(time.Microsecond)
	}
	return d.Round(time.Millisecond)
}

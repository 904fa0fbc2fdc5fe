// Package output renders review results on a terminal instead of publishing
// them, for dry runs and local use.
package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/sevigo/review-action/internal/core"
)

// Printer writes review bodies as rendered Markdown. It is safe for
// concurrent use; each comment is written as one block.
type Printer struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *glamour.TermRenderer
	header   lipgloss.Style
	muted    *color.Color
	notice   *color.Color
}

// NewPrinter creates a Printer writing to out. style is a glamour standard
// style name such as "dark", "light" or "notty".
func NewPrinter(out io.Writer, style string, wordWrap int) (*Printer, error) {
	if style == "" {
		style = "notty"
	}
	if wordWrap <= 0 {
		wordWrap = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &Printer{
		out:      out,
		renderer: renderer,
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240")),
		muted:  color.New(color.FgHiBlack),
		notice: color.New(color.FgYellow),
	}, nil
}

// Comment prints one review comment under a title line.
func (p *Printer) Comment(title, body string) error {
	rendered, err := p.renderer.Render(body)
	if err != nil {
		// Fall back to the raw text; the content matters more than the styling.
		rendered = body + "\n"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintln(p.out, p.header.Render(title)); err != nil {
		return err
	}
	_, err = io.WriteString(p.out, rendered)
	return err
}

// Notice prints a one-line highlighted message.
func (p *Printer) Notice(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notice.Fprintf(p.out, format+"\n", args...)
}

// Muted prints a one-line dimmed message.
func (p *Printer) Muted(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted.Fprintf(p.out, format+"\n", args...)
}

// DryRunService reads pull requests through the wrapped service and prints
// the comments it is asked to publish.
type DryRunService struct {
	core.PullRequestService
	printer *Printer
}

// NewDryRunService wraps prs so nothing is published.
func NewDryRunService(prs core.PullRequestService, printer *Printer) *DryRunService {
	return &DryRunService{PullRequestService: prs, printer: printer}
}

var _ core.PullRequestService = (*DryRunService)(nil)

// CreateReviewComment prints c instead of posting it.
func (d *DryRunService) CreateReviewComment(_ context.Context, c core.ReviewComment) error {
	title := fmt.Sprintf("%s/%s#%d  %s", c.Owner, c.Repo, c.PRNumber, c.Path)
	return d.printer.Comment(title, c.Body)
}

// CreateReview prints every draft comment of r instead of posting the review.
func (d *DryRunService) CreateReview(_ context.Context, r core.Review) error {
	if strings.TrimSpace(r.Body) != "" {
		if err := d.printer.Comment(fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.PRNumber), r.Body); err != nil {
			return err
		}
	}
	for _, c := range r.Comments {
		title := fmt.Sprintf("%s/%s#%d  %s:%d", r.Owner, r.Repo, r.PRNumber, c.Path, c.Line)
		if err := d.printer.Comment(title, c.Body); err != nil {
			return err
		}
	}
	return nil
}

// StatusPrinter implements core.StatusReporter by printing the run status.
type StatusPrinter struct {
	printer *Printer
}

// NewStatusPrinter creates a StatusPrinter.
func NewStatusPrinter(printer *Printer) *StatusPrinter {
	return &StatusPrinter{printer: printer}
}

var _ core.StatusReporter = (*StatusPrinter)(nil)

func (s *StatusPrinter) InProgress(_ context.Context, event *core.PullRequestEvent, title, summary string) (int64, error) {
	s.printer.Notice("%s: %s (%s#%d, dry run)", title, summary, event.RepoFullName(), event.PRNumber)
	return 0, nil
}

func (s *StatusPrinter) Completed(_ context.Context, _ *core.PullRequestEvent, _ int64, conclusion, title, summary string) error {
	s.printer.Muted("conclusion: %s", conclusion)
	return s.printer.Comment(title, summary)
}

// Package printer writes styled, human-facing command output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/postsync/internal/core/notify"
	"github.com/hay-kot/postsync/internal/core/styles"
)

const (
	iconSuccess = "✔"
	iconInfo    = "●"
	iconWarning = "!"
	iconError   = "✘"
)

type ctxKey struct{}

// Printer writes status lines to out and problems to errOut. It is safe
// for concurrent use and satisfies notify.Sink.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

var _ notify.Sink = (*Printer)(nil)

// New creates a Printer.
func New(out, errOut io.Writer) *Printer {
	return &Printer{out: out, errOut: errOut}
}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the Printer stored in ctx, or one writing to stdout and
// stderr.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stdout, os.Stderr)
}

func (p *Printer) line(w io.Writer, s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(w, s)
}

// Printf writes an unstyled line.
func (p *Printer) Printf(format string, args ...any) {
	p.line(p.out, fmt.Sprintf(format, args...))
}

// Success writes a success line with a muted detail.
func (p *Printer) Success(title, detail string) {
	s := styles.SuccessStyle.Render(iconSuccess + " " + title)
	if detail != "" {
		s += " " + styles.MutedStyle.Render(detail)
	}
	p.line(p.out, s)
}

func (p *Printer) Successf(format string, args ...any) {
	p.line(p.out, styles.SuccessStyle.Render(iconSuccess+" "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Infof(format string, args ...any) {
	p.line(p.out, styles.MutedStyle.Render(iconInfo+" "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Warnf(format string, args ...any) {
	p.line(p.errOut, styles.WarningStyle.Render(iconWarning+" "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Errorf(format string, args ...any) {
	p.line(p.errOut, styles.ErrorStyle.Render(iconError+" "+fmt.Sprintf(format, args...)))
}

// Notify prints a notification as a single line. Errors and warnings go to
// errOut.
func (p *Printer) Notify(n notify.Notification) {
	w := p.out
	if n.Level == notify.LevelError || n.Level == notify.LevelWarning {
		w = p.errOut
	}
	p.line(w, FormatNotification(n))
}

// FormatNotification renders n as "<icon> <title>  <message>".
func FormatNotification(n notify.Notification) string {
	head := lipgloss.NewStyle().Bold(true).Inherit(styles.LevelStyle(n.Level)).
		Render(levelIcon(n.Level) + " " + n.Title)
	if n.Message == "" {
		return head
	}
	return head + "  " + n.Message
}

func levelIcon(l notify.Level) string {
	switch l {
	case notify.LevelSuccess:
		return iconSuccess
	case notify.LevelWarning:
		return iconWarning
	case notify.LevelError:
		return iconError
	default:
		return iconInfo
	}
}

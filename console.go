package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/logrusorgru/aurora"
	"github.com/mattn/go-isatty"
)

// Console handles user-facing output separate from logging.
type Console struct {
	w       io.Writer
	spinner *spinner.Spinner
	color   bool
	au      aurora.Aurora

	mu sync.Mutex
}

// NewConsole writes to w, using color and a spinner only when w is a
// terminal.
func NewConsole(w io.Writer) *Console {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	if err := s.Color("cyan"); err != nil {
		logging.GetLogger().Warn(context.Background(), "Failed to set spinner color: %v", err)
	}

	return &Console{
		w:       w,
		spinner: s,
		color:   color,
		au:      aurora.NewAurora(color),
	}
}

// WithSpinner shows message while fn runs. Without a terminal it just runs fn.
func (c *Console) WithSpinner(ctx context.Context, message string, fn func() error) error {
	if c.color {
		c.mu.Lock()
		c.spinner.Suffix = " " + message
		c.spinner.Start()
		c.mu.Unlock()

		defer func() {
			c.mu.Lock()
			c.spinner.Stop()
			c.mu.Unlock()
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Markdown renders text for the terminal, falling back to the raw text.
func (c *Console) Markdown(text string) {
	if c.color {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			if out, err := renderer.Render(text); err == nil {
				fmt.Fprint(c.w, out)
				return
			}
		}
	}
	fmt.Fprintln(c.w, text)
}

// Field prints an aligned label and value.
func (c *Console) Field(label, value string) {
	fmt.Fprintf(c.w, "%s %s\n", c.au.Blue(fmt.Sprintf("%-22s", label+":")).Bold(), c.au.Cyan(value))
}

// Success prints a confirmation line.
func (c *Console) Success(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "%s %s\n", c.au.Green("✓").Bold(), fmt.Sprintf(format, args...))
}

// Failure prints an error line.
func (c *Console) Failure(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "%s %s\n", c.au.Red("✗").Bold(), fmt.Sprintf(format, args...))
}

package report

import (
	"context"
	"fmt"
	"io"

	"github.com/systmms/credfresh/internal/logging"
)

// Provider delivers a rendered summary through one channel. Delivery
// failures are the channel's problem, never conflated with refresh
// failures.
type Provider interface {
	// Name identifies the channel in logs.
	Name() string

	// Notify delivers the summary.
	Notify(ctx context.Context, summary Summary) error
}

// WriterProvider delivers the rendered report to an io.Writer, typically
// stdout for cron mails.
type WriterProvider struct {
	name string
	w    io.Writer
}

// NewWriterProvider creates a writer-backed delivery channel.
func NewWriterProvider(name string, w io.Writer) *WriterProvider {
	return &WriterProvider{name: name, w: w}
}

// Name identifies the channel.
func (p *WriterProvider) Name() string {
	return p.name
}

// Notify writes the rendered report.
func (p *WriterProvider) Notify(_ context.Context, summary Summary) error {
	_, err := fmt.Fprint(p.w, summary.Render())
	return err
}

// Deliver sends the summary to every provider, isolating failures: one
// channel's error is logged and the rest still run.
func Deliver(ctx context.Context, summary Summary, providers []Provider, logger *logging.Logger) {
	for _, p := range providers {
		if err := p.Notify(ctx, summary); err != nil {
			logger.Warn("Report delivery via %s failed: %v", p.Name(), err)
		}
	}
}

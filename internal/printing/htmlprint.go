package printing

import (
	"context"
	"fmt"
)

// PDFRenderer converts HTML to PDF. report.Client satisfies it.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// HTMLPrinter prints the visual ticket for printers without a raw channel.
type HTMLPrinter struct {
	renderer   PDFRenderer
	dispatcher *Dispatcher
}

// NewHTMLPrinter wires the renderer to the dispatcher's document pipeline.
func NewHTMLPrinter(renderer PDFRenderer, dispatcher *Dispatcher) *HTMLPrinter {
	return &HTMLPrinter{renderer: renderer, dispatcher: dispatcher}
}

// Print renders html to PDF and sends it to the printer. The staged PDF gets
// the same release guarantee as raw buffers.
func (p *HTMLPrinter) Print(ctx context.Context, html, printer, job string) (Receipt, error) {
	pdf, err := p.renderer.RenderHTML(ctx, html)
	if err != nil {
		p.dispatcher.metrics.ObservePrint("render_error")
		return Receipt{}, &PrintDispatchError{Printer: printer, Job: job, Err: fmt.Errorf("render pdf: %w", err)}
	}
	return p.dispatcher.DispatchDocument(ctx, pdf, printer, job)
}

package printing

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// CUPSProvider prints through the CUPS command line tools. Raw jobs use the
// "raw" option so the filter chain passes the bytes through untouched.
type CUPSProvider struct {
	run CommandRunner
}

// Name implements RawPrintProvider.
func (p *CUPSProvider) Name() string { return "cups" }

// PrintRaw implements RawPrintProvider.
func (p *CUPSProvider) PrintRaw(ctx context.Context, printer, job, path string) (string, error) {
	args := destination(printer)
	args = append(args, "-t", job, "-o", "raw", path)
	out, err := p.run(ctx, "lp", args, nil)
	return string(out), err
}

// PrintDocument implements RawPrintProvider.
func (p *CUPSProvider) PrintDocument(ctx context.Context, printer, job, path string) (string, error) {
	args := destination(printer)
	args = append(args, "-t", job, path)
	out, err := p.run(ctx, "lp", args, nil)
	return string(out), err
}

// ListPrinters implements RawPrintProvider.
func (p *CUPSProvider) ListPrinters(ctx context.Context) ([]string, error) {
	out, err := p.run(ctx, "lpstat", []string{"-e"}, nil)
	if err != nil {
		return nil, fmt.Errorf("lpstat: %w", err)
	}
	var printers []string
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			printers = append(printers, name)
		}
	}
	return printers, scanner.Err()
}

// Classify implements RawPrintProvider. lp prints "request id is <queue>-<n>"
// once the spooler accepted the job.
func (p *CUPSProvider) Classify(output string) Outcome {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "request id is"):
		return OutcomeConfirmed
	case strings.Contains(lower, "lp: error"), strings.Contains(lower, "unable to"), strings.Contains(lower, "does not exist"):
		return OutcomeFailed
	default:
		return OutcomeAmbiguous
	}
}

func destination(printer string) []string {
	if printer = strings.TrimSpace(printer); printer == "" {
		return nil
	}
	return []string{"-d", printer}
}

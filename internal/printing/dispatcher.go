package printing

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

const (
	rawPattern      = "pos-ticket-*.bin"
	documentPattern = "pos-ticket-*.pdf"

	defaultHelperTimeout = 20 * time.Second
	ambiguousWarning     = "print helper did not confirm the job"
)

// Receipt describes a delivered job.
type Receipt struct {
	Provider string  `json:"provider"`
	Printer  string  `json:"printer"`
	Job      string  `json:"job"`
	Bytes    int     `json:"bytes"`
	Outcome  Outcome `json:"outcome"`
	Output   string  `json:"output,omitempty"`
	Warning  string  `json:"warning,omitempty"`
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Provider      RawPrintProvider
	StagingDir    string
	HelperTimeout time.Duration
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
}

// Dispatcher stages buffers and hands them to the provider.
type Dispatcher struct {
	provider RawPrintProvider
	dir      string
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewDispatcher builds a dispatcher. An empty staging dir uses os.TempDir.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.HelperTimeout
	if timeout <= 0 {
		timeout = defaultHelperTimeout
	}
	return &Dispatcher{
		provider: cfg.Provider,
		dir:      cfg.StagingDir,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "printing"), slog.String("provider", cfg.Provider.Name())),
		metrics:  cfg.Metrics,
	}
}

// Dispatch delivers buf verbatim to the printer's raw channel. An empty
// printer selects the host default. The staging file is removed on every exit
// path. There is no retry; callers decide.
func (d *Dispatcher) Dispatch(ctx context.Context, buf []byte, printer, job string) (Receipt, error) {
	return d.deliver(ctx, buf, printer, job, rawPattern, d.provider.PrintRaw)
}

// DispatchDocument delivers a rendered PDF through the standard pipeline.
func (d *Dispatcher) DispatchDocument(ctx context.Context, pdf []byte, printer, job string) (Receipt, error) {
	return d.deliver(ctx, pdf, printer, job, documentPattern, d.provider.PrintDocument)
}

type sendFunc func(ctx context.Context, printer, job, path string) (string, error)

func (d *Dispatcher) deliver(ctx context.Context, data []byte, printer, job, pattern string, send sendFunc) (Receipt, error) {
	path, err := d.stage(pattern, data)
	if err != nil {
		d.metrics.ObservePrint("staging_error")
		return Receipt{}, &StagingIOError{Job: job, Err: err}
	}
	defer d.release(path)

	helperCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	output, err := send(helperCtx, printer, job, path)
	output = strings.TrimSpace(output)
	receipt := Receipt{
		Provider: d.provider.Name(),
		Printer:  printer,
		Job:      job,
		Bytes:    len(data),
		Output:   output,
	}
	if err != nil {
		if ctxErr := helperCtx.Err(); ctxErr != nil && errors.Is(ctxErr, context.DeadlineExceeded) {
			err = errors.Join(err, ctxErr)
		}
		receipt.Outcome = OutcomeFailed
		d.metrics.ObservePrint(string(OutcomeFailed))
		return receipt, &PrintDispatchError{Printer: printer, Job: job, Output: output, Err: err}
	}

	receipt.Outcome = d.provider.Classify(output)
	switch receipt.Outcome {
	case OutcomeFailed:
		d.metrics.ObservePrint(string(OutcomeFailed))
		return receipt, &PrintDispatchError{Printer: printer, Job: job, Output: output, Err: ErrHelperReportedFailure}
	case OutcomeAmbiguous:
		receipt.Warning = ambiguousWarning
		d.logger.Warn("print job not confirmed", slog.String("printer", printer), slog.String("job", job), slog.String("output", output))
	}
	d.metrics.ObservePrint(string(receipt.Outcome))
	return receipt, nil
}

func (d *Dispatcher) stage(pattern string, data []byte) (path string, err error) {
	f, err := os.CreateTemp(d.dir, pattern)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func (d *Dispatcher) release(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("remove staged ticket", slog.String("path", path), slog.Any("error", err))
	}
}

// SweepStaging removes staged files older than maxAge left behind by a
// process that died mid-dispatch. It returns the number of files removed.
func (d *Dispatcher) SweepStaging(maxAge time.Duration) int {
	dir := d.dir
	if dir == "" {
		dir = os.TempDir()
	}
	removed := 0
	for _, pattern := range []string{rawPattern, documentPattern} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || time.Since(info.ModTime()) < maxAge {
				continue
			}
			if os.Remove(match) == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		d.logger.Info("removed stale staged tickets", slog.Int("count", removed))
	}
	return removed
}

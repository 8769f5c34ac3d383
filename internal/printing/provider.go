// Package printing delivers encoded tickets to physical printers.
//
// Raw ESC/POS buffers bypass the page-rendering print pipeline: paper cut,
// drawer kick and buzzer opcodes only survive a raw passthrough channel. Every
// buffer is staged in a temp file and handed to an out-of-process helper
// provided by the host OS (CUPS lp on Unix-likes, the winspool API through
// PowerShell on Windows).
package printing

import (
	"context"
	"os"
	"os/exec"
)

// Outcome classifies what the helper reported about a job.
type Outcome string

const (
	// OutcomeConfirmed means the helper positively acknowledged the job.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeAmbiguous means the helper exited cleanly without a definitive answer.
	OutcomeAmbiguous Outcome = "ambiguous"
	// OutcomeFailed means the helper output states the job was rejected.
	OutcomeFailed Outcome = "failed"
)

// RawPrintProvider is the host capability that moves staged files to printers.
type RawPrintProvider interface {
	// Name identifies the provider in logs and receipts.
	Name() string
	// PrintRaw streams the file verbatim to the printer's raw data channel.
	PrintRaw(ctx context.Context, printer, job, path string) (string, error)
	// PrintDocument prints a rendered document (PDF) through the standard pipeline.
	PrintDocument(ctx context.Context, printer, job, path string) (string, error)
	// ListPrinters enumerates the printers known to the host.
	ListPrinters(ctx context.Context) ([]string, error)
	// Classify interprets helper output.
	Classify(output string) Outcome
}

// CommandRunner executes an external helper and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args []string, env []string) ([]byte, error)

// ExecRunner runs the helper with os/exec, inheriting the process environment.
func ExecRunner(ctx context.Context, name string, args []string, env []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}

// NewProvider selects the provider for the given GOOS value.
func NewProvider(goos string, run CommandRunner) RawPrintProvider {
	if run == nil {
		run = ExecRunner
	}
	if goos == "windows" {
		return &WindowsProvider{run: run}
	}
	return &CUPSProvider{run: run}
}

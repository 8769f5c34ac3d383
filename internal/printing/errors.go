package printing

import (
	"errors"
	"fmt"
)

// ErrHelperReportedFailure is wrapped when the helper ran but its output
// states that the printer rejected the job.
var ErrHelperReportedFailure = errors.New("print helper reported failure")

// StagingIOError means the buffer could not be written to its temp file. The
// job is abandoned; the sale it belongs to is unaffected.
type StagingIOError struct {
	Job string
	Err error
}

func (e *StagingIOError) Error() string {
	return fmt.Sprintf("printing: stage job %q: %v", e.Job, e.Err)
}

func (e *StagingIOError) Unwrap() error {
	return e.Err
}

// PrintDispatchError means the OS helper could not deliver the staged file.
type PrintDispatchError struct {
	Printer string
	Job     string
	Output  string
	Err     error
}

func (e *PrintDispatchError) Error() string {
	printer := e.Printer
	if printer == "" {
		printer = "default printer"
	}
	if e.Output != "" {
		return fmt.Sprintf("printing: dispatch job %q to %s: %v (helper output: %s)", e.Job, printer, e.Err, e.Output)
	}
	return fmt.Sprintf("printing: dispatch job %q to %s: %v", e.Job, printer, e.Err)
}

func (e *PrintDispatchError) Unwrap() error {
	return e.Err
}

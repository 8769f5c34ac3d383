// Package cli implements the posctl subcommands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/hibiken/asynq"
)

// Usage is printed for unknown or missing subcommands.
const Usage = `usage: posctl <command> [args]

commands:
  queue                    print queue statistics
  failed [n]               list the last n failed print jobs
  selftest [printer]       print the diagnostic page
  refresh-catalog [branch] refresh the local catalog mirror`

// Run executes one subcommand and returns the process exit code.
func Run(ctx context.Context, c *JobsCLI, args []string, jsonOutput bool, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, Usage)
		return 2
	}
	var (
		result any
		err    error
	)
	switch args[0] {
	case "queue":
		var stats []QueueStats
		stats, err = c.InspectQueues(ctx)
		if err == nil && !jsonOutput {
			writeStats(stdout, stats)
			return 0
		}
		result = stats
	case "failed":
		size := 10
		if len(args) > 1 {
			if size, err = strconv.Atoi(args[1]); err != nil {
				fmt.Fprintf(stderr, "invalid count %q\n", args[1])
				return 2
			}
		}
		tasks, listErr := c.FailedPrints(ctx, size)
		err = listErr
		if err == nil && !jsonOutput {
			for _, task := range tasks {
				fmt.Fprintf(stdout, "%s\t%s\t%s\n", task.ID, task.Type, task.LastErr)
			}
			return 0
		}
		result = tasks
	case "selftest":
		printer := ""
		if len(args) > 1 {
			printer = args[1]
		}
		result, err = c.SelfTest(ctx, printer)
	case "refresh-catalog":
		var branch int64
		if len(args) > 1 {
			if branch, err = strconv.ParseInt(args[1], 10, 64); err != nil {
				fmt.Fprintf(stderr, "invalid branch %q\n", args[1])
				return 2
			}
		}
		result, err = c.RefreshCatalog(ctx, branch)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s\n", args[0], Usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return 1
	}
	if jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(stderr, "encode: %v\n", err)
			return 1
		}
		return 0
	}
	if info, ok := result.(*asynq.TaskInfo); ok && info != nil {
		fmt.Fprintf(stdout, "%s enqueued as %s on queue %s\n", info.Type, info.ID, info.Queue)
		return 0
	}
	fmt.Fprintf(stdout, "%s enqueued\n", args[0])
	return 0
}

func writeStats(w io.Writer, stats []QueueStats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
	}
	_ = tw.Flush()
}

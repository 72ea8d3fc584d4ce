// Package remote defines the command-execution channel used to reach media
// hosts. The orchestrator never touches a remote filesystem directly, it only
// runs command lines and pattern-matches captured output
package remote

import (
	"context"
	"io"
	"strings"
)

// Markers echoed by generated command lines. A non-zero remote exit status is
// never surfaced as an error by an Executor, callers look for these instead
const (
	MarkerExists            = "EXISTS"
	MarkerNotExists         = "NOT_EXISTS"
	MarkerConversionSuccess = "CONVERSION_SUCCESS"
	MarkerConversionError   = "CONVERSION_ERROR"
	MarkerStepOK            = "STEP_OK"
	MarkerStepFailed        = "STEP_FAILED"
)

type Result struct {
	Stdout string
	Stderr string
}

type Stat struct {
	Exists bool
	Size   int64
}

// Executor runs a command line on a named host and reports captured output.
// Errors returned by either method mean the channel itself failed, not the
// command
type Executor interface {
	Run(ctx context.Context, hostID uint, command string) (*Result, error)
	Stat(ctx context.Context, hostID uint, path string) (*Stat, error)

	// Stream hands back the command's stdout as it is produced instead of
	// buffering it. Closing the reader tears down the session
	Stream(ctx context.Context, hostID uint, command string) (io.ReadCloser, error)
}

// Quote wraps s in single quotes so it survives the remote shell untouched
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Checked appends the step markers to a command line so its exit status
// survives the channel. Succeeded reads them back from a Result
func Checked(command string) string {
	return command + " && echo " + MarkerStepOK + " || echo " + MarkerStepFailed
}

func Succeeded(res *Result) bool {
	return strings.Contains(res.Stdout, MarkerStepOK)
}

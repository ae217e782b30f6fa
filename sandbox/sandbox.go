// Package sandbox runs short, untrusted JavaScript snippets in an embedded
// goja interpreter.
//
// Isolation comes from the interpreter itself: a fresh goja runtime has no
// module resolution, no filesystem, process, or network primitives, and the
// few dynamic-evaluation escape hatches it does ship (eval, Function) are
// shadowed before user code runs. A static pre-scan of the source rejects
// known-dangerous patterns as defense-in-depth; it is a heuristic filter,
// not the security boundary. Every execution is bounded by a wall-clock
// timeout enforced through the runtime's interrupt mechanism, and stdout /
// stderr are captured into a buffer instead of inherited.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout bounds a single execution.
const DefaultTimeout = 5 * time.Second

// maxOutputBytes caps captured console output per run.
const maxOutputBytes = 64 * 1024

// dangerousPatterns are substrings rejected by the pre-execution scan.
var dangerousPatterns = []string{
	"require(",
	"eval(",
	"Function(",
	"process.",
	"child_process",
	"import(",
	"importScripts",
	"XMLHttpRequest",
	"fetch(",
	"WebSocket",
}

// blockedGlobals are shadowed with undefined before user code runs.
var blockedGlobals = []string{"eval", "Function"}

// Interrupt values distinguish the wall-clock timer from a caller-initiated
// cancellation when classifying the resulting InterruptedError.
const (
	interruptTimeout   = "timeout"
	interruptCancelled = "cancelled"
)

// TimeoutError reports an execution that exceeded the wall-clock limit.
type TimeoutError struct {
	Timeout time.Duration
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timed out after %s", e.Timeout)
}

// CancelledError reports an execution interrupted by the caller's context.
type CancelledError struct {
	Elapsed time.Duration
	Cause   error
}

func (e *CancelledError) Error() string {
	return "execution cancelled: " + e.Cause.Error()
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// RuntimeError reports a thrown JavaScript error.
type RuntimeError struct {
	Message string
	Elapsed time.Duration
}

func (e *RuntimeError) Error() string {
	return "execution error: " + e.Message
}

// RejectedError reports source that failed the static danger-pattern scan.
type RejectedError struct {
	Pattern string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("code rejected: disallowed pattern %q", e.Pattern)
}

// Result holds the outcome of one execution. Elapsed is reported for both
// successful and failed runs so callers can tell slow failures from fast
// ones.
type Result struct {
	Success bool          `json:"success"`
	Output  string        `json:"output"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Sandbox executes snippets with a configured timeout. A Sandbox is cheap
// and stateless; each Run gets a fresh interpreter.
type Sandbox struct {
	timeout time.Duration
}

// New creates a Sandbox with the default timeout.
func New() *Sandbox {
	return &Sandbox{timeout: DefaultTimeout}
}

// NewWithTimeout creates a Sandbox with a custom timeout.
func NewWithTimeout(timeout time.Duration) *Sandbox {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sandbox{timeout: timeout}
}

// Scan checks source against the danger-pattern list without executing it.
func Scan(source string) error {
	for _, pattern := range dangerousPatterns {
		if strings.Contains(source, pattern) {
			return &RejectedError{Pattern: pattern}
		}
	}
	return nil
}

// Run executes source and returns its captured output. The returned Result
// is always non-nil; a non-nil error accompanies Success == false and is one
// of *RejectedError, *TimeoutError, *CancelledError, or *RuntimeError.
func (s *Sandbox) Run(ctx context.Context, source string) (*Result, error) {
	if err := Scan(source); err != nil {
		return &Result{Success: false, Error: err.Error()}, err
	}

	vm := goja.New()

	var out strings.Builder
	capture := func(call goja.FunctionCall) goja.Value {
		if out.Len() < maxOutputBytes {
			out.WriteString(joinArgs(call.Arguments))
			out.WriteString("\n")
		}
		return goja.Undefined()
	}

	console := vm.NewObject()
	for _, name := range []string{"log", "info", "warn", "error"} {
		_ = console.Set(name, capture)
	}
	if err := vm.Set("console", console); err != nil {
		return &Result{Success: false, Error: err.Error()}, &RuntimeError{Message: err.Error()}
	}

	for _, name := range blockedGlobals {
		_ = vm.GlobalObject().Set(name, goja.Undefined())
	}

	done := make(chan struct{})
	defer close(done)

	timer := time.AfterFunc(s.timeout, func() {
		vm.Interrupt(interruptTimeout)
	})
	defer timer.Stop()

	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(interruptCancelled)
		case <-done:
		}
	}()

	start := time.Now()
	value, err := vm.RunString(source)
	elapsed := time.Since(start)

	if err != nil {
		if ierr, ok := err.(*goja.InterruptedError); ok {
			if v, ok := ierr.Value().(string); ok && v == interruptCancelled {
				cause := ctx.Err()
				if cause == nil {
					cause = context.Canceled
				}
				cerr := &CancelledError{Elapsed: elapsed, Cause: cause}
				return &Result{Success: false, Output: capped(out.String()), Error: cerr.Error(), Elapsed: elapsed}, cerr
			}
			terr := &TimeoutError{Timeout: s.timeout, Elapsed: elapsed}
			return &Result{Success: false, Output: capped(out.String()), Error: terr.Error(), Elapsed: elapsed}, terr
		}
		msg := err.Error()
		if ex, ok := err.(*goja.Exception); ok {
			msg = ex.Value().String()
		}
		rerr := &RuntimeError{Message: msg, Elapsed: elapsed}
		return &Result{Success: false, Output: capped(out.String()), Error: rerr.Error(), Elapsed: elapsed}, rerr
	}

	output := capped(out.String())
	// Surface the final expression value when nothing was printed.
	if output == "" && value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
		output = value.String()
	}

	return &Result{Success: true, Output: output, Elapsed: elapsed}, nil
}

func capped(s string) string {
	if len(s) > maxOutputBytes {
		return s[:maxOutputBytes] + "\n[output truncated]"
	}
	return strings.TrimRight(s, "\n")
}

func joinArgs(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil || goja.IsUndefined(a) || goja.IsNull(a) {
			continue
		}
		parts = append(parts, a.String())
	}
	return strings.Join(parts, " ")
}

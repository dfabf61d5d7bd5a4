package config

import "fmt"

// ExitCode is the process exit status spec.md §6.5/§7 assigns to each
// error category.
type ExitCode int

const (
	ExitSuccess      ExitCode = 0
	ExitConfigError  ExitCode = 1
	ExitIOError      ExitCode = 2
	ExitInternalFail ExitCode = 3
)

// ConfigError reports an unrecognized option or an inconsistent flag
// combination (spec.md §7): "reported to the user; exit non-zero without
// touching databases."
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Option == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config: -%s: %s", e.Option, e.Reason)
}

// IOError reports a failure to read or write a named path (spec.md §7):
// "reported with the offending path; exit non-zero; temporary files may be
// retained for inspection."
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("io error on %q: %v", e.Path, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// NumericFailure reports matrix-adjust or lambda-solver non-convergence
// (spec.md §7): "recovered locally via fallback chain; counted in
// statistics; never fatal." Callers log and increment a counter, they
// never abort on this type.
type NumericFailure struct {
	Stage  string
	Detail string
}

func (e *NumericFailure) Error() string {
	return fmt.Sprintf("numeric failure in %s: %s", e.Stage, e.Detail)
}

// OverflowError reports 8-bit SIMD saturation (spec.md §7): "recovered
// locally by re-running the tile at the next wider integer width." Like
// NumericFailure this is not fatal; dpkernel retries and the caller need
// not propagate it unless every width overflows.
type OverflowError struct {
	Width int // the width that saturated
}

func (e *OverflowError) Error() string { return fmt.Sprintf("dp overflow at %d-bit width", e.Width) }

// InternalInvariantError reports a score/transcript mismatch, band
// violation, or queue corruption (spec.md §7): "propagated as a fatal
// error; process aborts." The ordering queue drains gracefully and
// rethrows this on the main goroutine; it is never swallowed.
type InternalInvariantError struct {
	Invariant string
	Detail    string
}

func (e *InternalInvariantError) Error() string {
	return fmt.Sprintf("internal invariant violated (%s): %s", e.Invariant, e.Detail)
}

// ExitCodeFor maps an error produced anywhere in the pipeline to the
// process exit status spec.md §6.5 assigns it. nil maps to ExitSuccess.
func ExitCodeFor(err error) ExitCode {
	switch err.(type) {
	case nil:
		return ExitSuccess
	case *ConfigError:
		return ExitConfigError
	case *IOError:
		return ExitIOError
	case *InternalInvariantError:
		return ExitInternalFail
	default:
		// NumericFailure and OverflowError are never returned to the top
		// level (they're recovered locally); anything else unrecognized
		// is treated as an internal failure rather than silently exiting
		// 0.
		return ExitInternalFail
	}
}

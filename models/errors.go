package models

import "fmt"

// Error taxonomy for a reconciliation run. Source and store failures are fatal
// and abort the run; a single failed tag write is not.

// SourceNotFoundError reports a spreadsheet path that does not resolve to a file.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source file not found: %s: %v", e.Path, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// SourceParseError reports a spreadsheet that could be opened but does not have
// the expected shape (unreadable workbook, fewer columns than the configured
// positions require).
type SourceParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SourceParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse source %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to parse source %s: %s", e.Path, e.Reason)
}

func (e *SourceParseError) Unwrap() error { return e.Err }

// StoreUnavailableError reports that the inventory store could not be reached
// or read. No partial SyncResult is returned to the caller.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("inventory store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// MutationError reports a single failed tag write. The run logs it and moves on
// to the next record; classification bookkeeping is independent of mutation
// success.
type MutationError struct {
	Key string
	Tag string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("failed to update tag for inventory %q to %q: %v", e.Key, e.Tag, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

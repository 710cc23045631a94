package store

import (
	"fmt"
	"strings"

	"github.com/franz/mldb/internal/util"
)

// NoDataError reports a read that found no rows where one was expected.
// Callers usually treat it as "nothing recorded yet".
type NoDataError struct {
	Table    string
	Identity string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data in %s for %s", e.Table, e.Identity)
}

func (e *NoDataError) Unwrap() error {
	return util.ErrNoData
}

// CollisionError reports a write that violated a uniqueness constraint.
type CollisionError struct {
	Table string
	Err   error
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("unique constraint violated in %s: %v", e.Table, e.Err)
}

func (e *CollisionError) Unwrap() []error {
	return []error{util.ErrCollision, e.Err}
}

// IntegrityError reports more rows than the schema's constraints allow. It
// means the data or schema is corrupt, not that something is missing.
type IntegrityError struct {
	Table    string
	Identity string
	Expected int
	Got      int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: found %d rows for %s, expected at most %d",
		e.Table, e.Got, e.Identity, e.Expected)
}

func (e *IntegrityError) Unwrap() error {
	return util.ErrIntegrity
}

// ConnectionError reports an unreachable backend or rejected credentials.
type ConnectionError struct {
	Backend string
	Target  string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s (%s): %v", e.Backend, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{util.ErrConnection, e.Err}
}

// UnknownBackendError reports a configuration naming no registered backend.
type UnknownBackendError struct {
	Kind  string
	Known []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("backend %q not recognised (known: %s)", e.Kind, strings.Join(e.Known, ", "))
}

func (e *UnknownBackendError) Unwrap() error {
	return util.ErrUnknownBackend
}

// PartialError reports a multi-step write that stopped part-way. Completed
// lists the steps whose effects were committed; the steps after them were
// not applied.
type PartialError struct {
	Op        string
	Completed []string
	Failed    string
	Err       error
}

func (e *PartialError) Error() string {
	if len(e.Completed) == 0 {
		return fmt.Sprintf("%s failed at %s, nothing was committed: %v", e.Op, e.Failed, e.Err)
	}
	return fmt.Sprintf("%s failed at %s after committing %s: %v",
		e.Op, e.Failed, strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialError) Unwrap() []error {
	return []error{util.ErrPartial, e.Err}
}

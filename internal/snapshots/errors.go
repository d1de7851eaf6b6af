package snapshots

import (
	"errors"
	"fmt"
)

// Error kinds. Returned errors wrap one of these; match with errors.Is.
var (
	// ErrConfiguration covers caller mistakes: a snapshot that already
	// exists, a snapshot that does not, an invalid ignore pattern.
	ErrConfiguration = errors.New("configuration error")

	// ErrExecution covers failures of the host: the cache directory cannot
	// be created, snapshot files cannot be read or written, the package
	// manager cannot be queried.
	ErrExecution = errors.New("execution error")

	// ErrArity is returned when compare is not given exactly two names.
	ErrArity = errors.New("wrong number of arguments")
)

// notFoundError reports a snapshot that does not exist. It matches both
// ErrConfiguration and ErrExecution.
type notFoundError struct {
	name string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("frozen state %q not found", e.name)
}

func (e *notFoundError) Is(target error) bool {
	return target == ErrConfiguration || target == ErrExecution
}

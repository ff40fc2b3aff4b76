package report

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStructuralMismatch matches any *StructuralMismatchError.
	ErrStructuralMismatch = errors.New("structural mismatch")
	// ErrNotFound matches any *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrIncompleteRun matches any *IncompleteRunError.
	ErrIncompleteRun = errors.New("incomplete run")
)

// StructuralMismatchError means two trees could not be combined, or a child was added under a
// UID that is already taken. Path locates the offending node from the root of the merge.
type StructuralMismatchError struct {
	Path   Path
	Reason string
}

func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("structural mismatch at %q: %s", e.Path.String(), e.Reason)
}

func (e *StructuralMismatchError) Is(target error) bool { return target == ErrStructuralMismatch }

func mismatch(path Path, format string, args ...interface{}) error {
	return &StructuralMismatchError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned by lookups of a UID that has no node.
type NotFoundError struct {
	Parent UID
	UID    UID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no child %q in %q", e.UID, e.Parent)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IncompleteRunError lists the cases that were expected to have a result but never finished.
type IncompleteRunError struct {
	Paths []Path
}

func (e *IncompleteRunError) Error() string {
	const maxShown = 5
	var shown []string
	for i, p := range e.Paths {
		if i == maxShown {
			shown = append(shown, fmt.Sprintf("and %d more", len(e.Paths)-maxShown))
			break
		}
		shown = append(shown, p.String())
	}
	return fmt.Sprintf("%d test case(s) did not finish: %s", len(e.Paths), strings.Join(shown, ", "))
}

func (e *IncompleteRunError) Is(target error) bool { return target == ErrIncompleteRun }

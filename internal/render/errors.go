package render

import (
	"errors"
	"fmt"
)

// DisposedSurfaceError is returned by every adapter operation after Dispose.
type DisposedSurfaceError struct {
	Op string
}

func (e *DisposedSurfaceError) Error() string {
	return fmt.Sprintf("render: %s on disposed surface", e.Op)
}

// ErrNotAttached is returned when an operation needs a surface that has not
// been attached yet.
var ErrNotAttached = errors.New("render: surface not attached")

// IsDisposed reports whether err is a DisposedSurfaceError.
func IsDisposed(err error) bool {
	var d *DisposedSurfaceError
	return errors.As(err, &d)
}

package intake

import "errors"

// ErrTimeout is returned when the extraction deadline passed before any text was read.
var ErrTimeout = errors.New("extraction timed out")

package metrics

import "errors"

// ErrObserveFailed is returned when a value cannot be exported.
var ErrObserveFailed = errors.New("metrics observe failed")

package signal

import "errors"

// Sentinel errors for signal analysis. Analyzers never return them to
// callers; they are used internally to select default reports.
var (
	ErrSignalExtraction = errors.New("signal extraction failed")
	ErrEmptySignal      = errors.New("signal is empty")
)

package convert

import "fmt"

// FormatDetectionError reports that a source buffer matched no known
// signature. Retrying the conversion will not change the outcome.
type FormatDetectionError struct {
	Filename string
	Cause    error
}

func (e *FormatDetectionError) Error() string {
	return fmt.Sprintf("cannot detect format of %q: %v", e.Filename, e.Cause)
}

func (e *FormatDetectionError) Unwrap() error { return e.Cause }

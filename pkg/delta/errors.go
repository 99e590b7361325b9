package delta

import "fmt"

// BuildError reports a construction-time failure: schema/key mismatches,
// inconsistent relation ordering, or malformed join chains. The construction
// either succeeds once, producing a valid graph, or fails with a BuildError;
// there is no partial or degraded mode.
type BuildError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BuildError) Unwrap() error { return e.Cause }

func newBuildError(message string, cause error) error {
	return &BuildError{Message: message, Cause: cause}
}

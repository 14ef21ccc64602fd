package classifier

// classifierError is a simple error type for the classifier package.
type classifierError string

func (e classifierError) Error() string { return string(e) }

// Errors returned by the classifier.
const (
	// ErrInitialization matches every error returned by New.
	ErrInitialization = classifierError("classifier initialization failed")
	// ErrUseAfterClose is returned by Classify after Close.
	ErrUseAfterClose = classifierError("classifier is closed")
)

// InitError reports a failed construction. It matches ErrInitialization with
// errors.Is and unwraps to the cause, such as models.ErrArtifactLoad or
// inference.ErrBackendUnavailable.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return ErrInitialization.Error() + ": " + e.Err.Error()
}

// Is reports whether target is ErrInitialization.
func (e *InitError) Is(target error) bool {
	return target == ErrInitialization
}

// Unwrap returns the cause.
func (e *InitError) Unwrap() error {
	return e.Err
}

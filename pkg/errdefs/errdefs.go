package errdefs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the remote configuration subsystem. Callers classify
// failures with errors.Is rather than string matching.
var (
	// ErrNotFound signals absence of the backing store. It is the only soft
	// failure in the taxonomy: expected before bootstrap, surfaced as a
	// warning so a create flow can proceed.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists signals a create against an existing resource.
	ErrAlreadyExists = errors.New("already exists")

	// ErrSchema signals a malformed stored document: bad version string,
	// missing required field, or a runtime type mismatch.
	ErrSchema = errors.New("schema violation")

	// ErrConfiguration signals that a namespace or deployment could not be
	// resolved from the local registry.
	ErrConfiguration = errors.New("configuration unresolved")

	// ErrRead and ErrWrite classify hard store access failures.
	ErrRead  = errors.New("read failure")
	ErrWrite = errors.New("write failure")

	// ErrValidation signals drift between declared and observed state.
	ErrValidation = errors.New("validation failure")
)

func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }
func IsSchema(err error) bool        { return errors.Is(err, ErrSchema) }
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }
func IsRead(err error) bool          { return errors.Is(err, ErrRead) }
func IsWrite(err error) bool         { return errors.Is(err, ErrWrite) }
func IsValidation(err error) bool    { return errors.Is(err, ErrValidation) }

// NotFoundf returns an ErrNotFound wrapped with identifying context.
func NotFoundf(format string, args ...interface{}) error {
	return wrapf(ErrNotFound, format, args...)
}

// Conflictf returns an ErrAlreadyExists wrapped with identifying context.
func Conflictf(format string, args ...interface{}) error {
	return wrapf(ErrAlreadyExists, format, args...)
}

// Schemaf returns an ErrSchema wrapped with identifying context.
func Schemaf(format string, args ...interface{}) error {
	return wrapf(ErrSchema, format, args...)
}

// Configurationf returns an ErrConfiguration wrapped with identifying context.
func Configurationf(format string, args ...interface{}) error {
	return wrapf(ErrConfiguration, format, args...)
}

// Readf returns an ErrRead wrapping cause with identifying context.
func Readf(cause error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), ErrRead, cause)
}

// Writef returns an ErrWrite wrapping cause with identifying context.
func Writef(cause error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), ErrWrite, cause)
}

func wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

// DriftError reports a component declared in the remote configuration that has
// no matching pods in the live cluster.
type DriftError struct {
	Kind      string
	Name      string
	Namespace string
	Cluster   string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("no pod found for %s %q in namespace %q on cluster %q",
		e.Kind, e.Name, e.Namespace, e.Cluster)
}

func (e *DriftError) Unwrap() error { return ErrValidation }

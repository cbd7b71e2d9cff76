package texture

import "fmt"

// ConfigurationError reports an invalid pattern value or face selector.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("texture: invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// positive checks that every named value is strictly positive.
func positive(fields ...namedValue) error {
	for _, f := range fields {
		if !(f.v > 0) {
			return invalid(f.name, "must be > 0, got %g", f.v)
		}
	}
	return nil
}

type namedValue struct {
	name string
	v    float64
}

// GeometryError reports a kernel failure while texturing a face. Face is
// -1 for whole-solid stages.
type GeometryError struct {
	Face  int
	Stage string
	Err   error
}

func (e *GeometryError) Error() string {
	if e.Face < 0 {
		return fmt.Sprintf("texture: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("texture: face %d: %s: %v", e.Face, e.Stage, e.Err)
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

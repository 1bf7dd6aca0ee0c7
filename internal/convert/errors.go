package convert

import (
	"errors"
	"fmt"

	"github.com/fileforge/fileforge/internal/format"
)

// ClassificationError is returned when a file extension is not present in any
// category's input set. It is surfaced before any conversion work starts.
type ClassificationError struct {
	Ext string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("unsupported file extension %q", e.Ext)
}

// UnsupportedTargetError is returned when the requested target extension is
// not a permitted output of the resolved category. Callers should prevent
// this by construction; strategies still validate defensively.
type UnsupportedTargetError struct {
	Category format.Category
	Target   string
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("target format %q is not a valid %s output", e.Target, e.Category)
}

// DecodeError is returned when source bytes cannot be interpreted as the
// claimed media type.
type DecodeError struct {
	Category format.Category
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s source: %v", e.Category, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CapabilityError is returned when the platform cannot decode the source or
// produce the requested target MIME type. It is distinct from DecodeError so
// callers can suggest an alternate format.
type CapabilityError struct {
	MIME   string
	Reason string
}

func (e *CapabilityError) Error() string {
	if e.MIME != "" {
		return fmt.Sprintf("format %s not supported by this platform: %s", e.MIME, e.Reason)
	}
	return fmt.Sprintf("not supported by this platform: %s", e.Reason)
}

// EncodeError is returned when encoding ran but produced no usable artifact.
type EncodeError struct {
	Target string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encode to %s: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("encode to %s produced no output", e.Target)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// UnsupportedConversionError is returned by the document strategy when no
// dispatch rule matches the (source, target) extension pair.
type UnsupportedConversionError struct {
	Source string
	Target string
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("conversion not supported: %s to %s", e.Source, e.Target)
}

// IsCapabilityError reports whether the error chain contains a CapabilityError.
func IsCapabilityError(err error) bool {
	var target *CapabilityError
	return errors.As(err, &target)
}

// IsUnsupportedTarget reports whether the error chain contains an
// UnsupportedTargetError.
func IsUnsupportedTarget(err error) bool {
	var target *UnsupportedTargetError
	return errors.As(err, &target)
}

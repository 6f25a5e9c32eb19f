package core

import "github.com/pkg/errors"

// kindError is an error kind that also reports as a broader parent kind,
// e.g. an incompatible shape is a particular invalid argument.
type kindError struct {
	msg    string
	parent error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.parent }

// Error kinds. Every error returned by this module wraps one of these,
// so callers can test with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRange           = errors.New("out of range")
	ErrTypeCoercion    = errors.New("type coercion failed")
	ErrUnattached      = errors.New("view is not attached to a live buffer")
	ErrScatterConflict = errors.New("scatter conflict")
	ErrTargetRegion    = errors.New("store outside target region")

	ErrIncompatibleShape error = &kindError{"incompatible shape", ErrInvalidArgument}
	ErrEmptyReduce       error = &kindError{"reduce of empty collection with no initial value", ErrRange}
)

func invalidf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func rangef(format string, args ...any) error {
	return errors.Wrapf(ErrRange, format, args...)
}

func coercef(format string, args ...any) error {
	return errors.Wrapf(ErrTypeCoercion, format, args...)
}

func shapef(format string, args ...any) error {
	return errors.Wrapf(ErrIncompatibleShape, format, args...)
}

func unattached(v *View) error {
	return errors.Wrapf(ErrUnattached, "%s at offset %d", v.descr, v.offset)
}

func targetf(lo, hi int, w *window) error {
	return errors.Wrapf(ErrTargetRegion, "bytes [%d, %d) outside window [%d, %d)", lo, hi, w.lo, w.hi)
}

package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Script-visible errors
// ---------------------------------------------------------------------------

// ErrorKind is the script-level error class an Error surfaces as.
type ErrorKind uint8

const (
	KindError ErrorKind = iota
	KindReferenceError
	KindTypeError
	KindArgumentError
	KindVerifyError
	KindRangeError
)

func (k ErrorKind) String() string {
	switch k {
	case KindReferenceError:
		return "ReferenceError"
	case KindTypeError:
		return "TypeError"
	case KindArgumentError:
		return "ArgumentError"
	case KindVerifyError:
		return "VerifyError"
	case KindRangeError:
		return "RangeError"
	}
	return "Error"
}

// Error is a failure the calling interpreter turns into a script exception.
// Code and Message follow the runtime's documented error catalog.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: Error #%d: %s", e.Kind, e.Code, e.Message)
}

func newError(kind ErrorKind, code int, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode returns the catalog code of err, or 0 if err is not an *Error.
func ErrorCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsErrorKind reports whether err is an *Error of the given kind.
func IsErrorKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func errNotAFunction(name string) error {
	return newError(KindTypeError, 1006, "%s is not a function.", name)
}

func errNullReference() error {
	return newError(KindTypeError, 1009, "Cannot access a property or method of a null object reference.")
}

func errStackOverflow() error {
	return newError(KindError, 1023, "Stack overflow occurred.")
}

func errCoercion(value, to string) error {
	return newError(KindTypeError, 1034, "Type Coercion failed: cannot convert %s to %s.", value, to)
}

func errAssignToMethod(name, on string) error {
	return newError(KindReferenceError, 1037, "Cannot assign to a method %s on %s.", name, on)
}

func errInvalidWrite(name, on string) error {
	return newError(KindReferenceError, 1056, "Cannot create property %s on %s.", name, on)
}

func errArgCount(name string, expected, got int) error {
	return newError(KindArgumentError, 1063, "Argument count mismatch on %s. Expected %d, got %d.", name, expected, got)
}

func errInvalidRead(name, on string) error {
	return newError(KindReferenceError, 1069, "Property %s not found on %s and there is no default value.", name, on)
}

func errSuperMethodNotFound(name, on string) error {
	return newError(KindReferenceError, 1070, "Method %s not found on %s", name, on)
}

func errReadOnly(name, on string) error {
	return newError(KindReferenceError, 1074, "Illegal write to read-only property %s on %s.", name, on)
}

func errWriteOnly(name, on string) error {
	return newError(KindReferenceError, 1077, "Illegal read of write-only property %s on %s.", name, on)
}

func errExtendFinal(name string) error {
	return newError(KindVerifyError, 1103, "Class %s cannot extend final base class.", name)
}

func errExtendInterface(name, base string) error {
	return newError(KindVerifyError, 1110, "Class %s cannot extend %s.", name, base)
}

func errImplementNonInterface(name, iface string) error {
	return newError(KindVerifyError, 1111, "%s cannot implement %s.", name, iface)
}

func errCoercionArity(got int) error {
	return newError(KindTypeError, 1112, "Argument count mismatch on class coercion.  Expected 1, got %d.", got)
}

func errNotAConstructor(name string) error {
	return newError(KindTypeError, 1115, "%s is not a constructor.", name)
}

func errNotParameterized() error {
	return newError(KindTypeError, 1127, "Type application attempted on a non-parameterized type.")
}

func errTypeParamCount(name string, got int) error {
	return newError(KindArgumentError, 1128, "Incorrect number of type parameters for %s. Expected 1, got %d.", name, got)
}

func errNotLoaded() error {
	return newError(KindError, 2099, "The loading object is not sufficiently loaded to provide this information.")
}

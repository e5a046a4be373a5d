package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind represents the category of a contract violation.
type ErrorKind string

const (
	KindInvalidOperation ErrorKind = "invalid_operation"
	KindNotFound         ErrorKind = "not_found"
	KindNullArgument     ErrorKind = "null_argument"
	KindParse            ErrorKind = "parse"
	KindConfig           ErrorKind = "config"
)

// Common error codes.
const (
	CodeLeafMutation = "ERR_LEAF_MUTATION"
	CodeCycle        = "ERR_CYCLE"
	CodeSharedParent = "ERR_SHARED_PARENT"
	CodeChildMissing = "ERR_CHILD_MISSING"
	CodeNilVisitor   = "ERR_NIL_VISITOR"
	CodeNilChild     = "ERR_NIL_CHILD"
	CodeNilKind      = "ERR_NIL_KIND"
	CodeSyntax       = "ERR_SYNTAX"
	CodeDocument     = "ERR_DOCUMENT"
	CodeConfig       = "ERR_CONFIG_INVALID"
)

// CanopyError is a structured error type with context.
type CanopyError struct {
	Kind    ErrorKind
	Code    string
	Op      string
	Element string
	Path    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Sentinels for errors.Is. They match any CanopyError of the same kind.
var (
	ErrInvalidOperation = &CanopyError{Kind: KindInvalidOperation, Message: "invalid operation"}
	ErrNotFound         = &CanopyError{Kind: KindNotFound, Message: "not found"}
	ErrNullArgument     = &CanopyError{Kind: KindNullArgument, Message: "null argument"}
	ErrParse            = &CanopyError{Kind: KindParse, Message: "parse error"}
	ErrConfig           = &CanopyError{Kind: KindConfig, Message: "configuration error"}
)

// Error implements the error interface.
func (e *CanopyError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Op != "" {
		parts = append(parts, e.Op+":")
	}

	if e.Element != "" {
		parts = append(parts, "element:"+e.Element)
	}

	if e.Path != "" {
		parts = append(parts, "at "+e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *CanopyError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CanopyError of the same kind. A target
// carrying a code only matches errors with that code.
func (e *CanopyError) Is(target error) bool {
	var t *CanopyError
	if !errors.As(target, &t) {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}

	return t.Code == "" || t.Code == e.Code
}

// WithElement records the identity of the element involved.
func (e *CanopyError) WithElement(id string) *CanopyError {
	e.Element = id

	return e
}

// WithPath records the document path the error refers to.
func (e *CanopyError) WithPath(path string) *CanopyError {
	e.Path = path

	return e
}

// WithCause attaches the underlying error.
func (e *CanopyError) WithCause(cause error) *CanopyError {
	e.Cause = cause

	return e
}

// WithContext adds context information to the error.
func (e *CanopyError) WithContext(key string, value interface{}) *CanopyError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// Error creation functions

// NewInvalidOperation reports a mutating call issued where it is not allowed.
func NewInvalidOperation(op, code, message string) *CanopyError {
	return &CanopyError{
		Kind:    KindInvalidOperation,
		Code:    code,
		Op:      op,
		Message: message,
	}
}

// NewNotFound reports an element missing from a composite.
func NewNotFound(op, message string) *CanopyError {
	return &CanopyError{
		Kind:    KindNotFound,
		Code:    CodeChildMissing,
		Op:      op,
		Message: message,
	}
}

// NewNullArgument reports a nil argument where one is required.
func NewNullArgument(op, code, argument string) *CanopyError {
	return &CanopyError{
		Kind:    KindNullArgument,
		Code:    code,
		Op:      op,
		Message: argument + " must not be nil",
	}
}

// NewParseError reports malformed builder input.
func NewParseError(code, message string) *CanopyError {
	return &CanopyError{
		Kind:    KindParse,
		Code:    code,
		Message: message,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *CanopyError {
	return &CanopyError{
		Kind:    KindConfig,
		Code:    CodeConfig,
		Message: message,
	}
}

// IsInvalidOperation checks if err reports an invalid operation.
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsNotFound checks if err reports a missing element.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNullArgument checks if err reports a nil argument.
func IsNullArgument(err error) bool {
	return errors.Is(err, ErrNullArgument)
}

// IsParse checks if err reports malformed input.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// KindOf returns the kind of a CanopyError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var ce *CanopyError
	if errors.As(err, &ce) {
		return ce.Kind
	}

	return ""
}

// Package errs defines the coded error taxonomy shared by every refscope
// component. Callers branch on codes with IsCode rather than on message
// text.
package errs

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidLocationFormat Code = "INVALID_LOCATION_FORMAT"
	CodeOutOfBoundsLocation   Code = "OUT_OF_BOUNDS_LOCATION"
	CodeInvalidRange          Code = "INVALID_RANGE"
	CodeNoNodeAtPosition      Code = "NO_NODE_AT_POSITION"
	CodeNoSymbolAtPosition    Code = "NO_SYMBOL_AT_POSITION"
	CodeDeclarationNotFound   Code = "DECLARATION_NOT_FOUND"
	CodeCompilationErrors     Code = "COMPILATION_ERRORS"
	CodeNotSupported          Code = "NOT_SUPPORTED"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// Context keys.
const (
	CtxPath     = "path"
	CtxLocation = "location"
	CtxName     = "name"
	CtxCount    = "count"
)

type DomainError struct {
	Code    Code
	Message string
	Err     error
	Context map[string]any
}

func (e *DomainError) WithContext(key string, value any) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code Code, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a key/value to the first DomainError in err's chain,
// wrapping err as an internal error when it carries no code.
func AddContext(err error, key string, value any) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return err
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]any{key: value},
	}
}

// IsCode reports whether any DomainError in err's chain carries code.
func IsCode(err error, code Code) bool {
	var de *DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the code of the outermost DomainError in err's chain.
func CodeOf(err error) (Code, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

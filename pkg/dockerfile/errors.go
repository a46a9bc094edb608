package dockerfile

import (
	stderrors "errors"
	"fmt"
)

// ErrorKind categorizes analysis failures.
type ErrorKind string

const (
	// ErrEmptyInput means the document holds no instructions at all.
	ErrEmptyInput ErrorKind = "empty_input"

	// ErrMalformedInstruction means an instruction's argument text does
	// not have the required shape.
	ErrMalformedInstruction ErrorKind = "malformed_instruction"

	// ErrInvalidStageReference means a stage index or name is referenced
	// before it is declared.
	ErrInvalidStageReference ErrorKind = "invalid_stage_reference"

	// ErrInvalidImageReference means an image reference does not match
	// the [registry/]name[:tag|@digest] grammar.
	ErrInvalidImageReference ErrorKind = "invalid_image_reference"
)

// ParseError describes the first offending instruction of a failed
// analysis. Analysis is all-or-nothing: no partial result accompanies a
// ParseError.
type ParseError struct {
	Kind    ErrorKind
	Line    int
	Keyword string
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Keyword != "":
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Keyword, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	default:
		return e.Message
	}
}

func newParseError(kind ErrorKind, line int, keyword, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Kind:    kind,
		Line:    line,
		Keyword: keyword,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the ErrorKind of err, unwrapping as needed, or the
// empty string when err is not a ParseError.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if stderrors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

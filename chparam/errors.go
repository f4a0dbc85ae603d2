// Package chparam implements the Parameter Renderer: extracting
// {name:Type} placeholders from SQL text and substituting them with the
// textual literal form the server's SQL parser accepts for that type.
package chparam

import "github.com/go-faster/errors"

// ConflictingTypeHint is returned when the same parameter name appears
// twice in one query with differing type text.
type ConflictingTypeHint struct {
	Name string
}

func (e *ConflictingTypeHint) Error() string {
	return "chparam: conflicting type hint for parameter " + e.Name
}

// MissingParameter is returned when a placeholder's name has no entry in
// the parameter bag at substitution time.
type MissingParameter struct {
	Name string
}

func (e *MissingParameter) Error() string {
	return "chparam: missing parameter " + e.Name
}

// UntypedParameter is returned when a parameter has neither an extracted
// hint nor a declared type.
type UntypedParameter struct {
	Name string
}

func (e *UntypedParameter) Error() string {
	return "chparam: untyped parameter " + e.Name
}

var (
	// ErrUnterminatedString is returned when a single-quoted literal
	// never closes before end of input.
	ErrUnterminatedString = errors.New("chparam: unterminated string literal")
	// ErrUnterminatedComment is returned when a /* block comment never
	// closes before end of input.
	ErrUnterminatedComment = errors.New("chparam: unterminated block comment")
	// ErrUnterminatedPlaceholder is returned when a {name:Type} token
	// never closes before end of input.
	ErrUnterminatedPlaceholder = errors.New("chparam: unterminated parameter placeholder")
	// ErrEmptyPlaceholderName is returned for a bare "{:Type}" or "{}" token.
	ErrEmptyPlaceholderName = errors.New("chparam: empty parameter name")
)

package dzi

import (
	"fmt"
)

// ErrorKind classifies a descriptor parse failure.
type ErrorKind int

const (
	// MalformedInput means the payload is not a readable descriptor.
	MalformedInput ErrorKind = iota
	// MissingField means a required element or attribute is absent.
	MissingField
	// InvalidField means a field is present but out of range.
	InvalidField
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedInput:
		return "MalformedInput"
	case MissingField:
		return "MissingField"
	case InvalidField:
		return "InvalidField"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ParseError is returned by Parse and Inspect.
type ParseError struct {
	Kind  ErrorKind
	Field string
	Err   error
}

// Error formats the ParseError message.
func (e ParseError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s(%s): %v", e.Kind, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s(%s)", e.Kind, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

// Unwrap returns the underlying decoder error, if any.
func (e ParseError) Unwrap() error {
	return e.Err
}

func malformed(field string, err error) error {
	return ParseError{Kind: MalformedInput, Field: field, Err: err}
}

func missing(field string) error {
	return ParseError{Kind: MissingField, Field: field}
}

func invalid(field string, value int) error {
	return ParseError{Kind: InvalidField, Field: field, Err: fmt.Errorf("out of range: %d", value)}
}

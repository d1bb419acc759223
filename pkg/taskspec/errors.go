package taskspec

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a parse failure. It implements error so callers can
// match with errors.Is(err, taskspec.PrefixMismatch).
type ErrorKind string

func (k ErrorKind) Error() string { return string(k) }

const (
	UnknownTaskType        ErrorKind = "unknown task type"
	PrefixMismatch         ErrorKind = "prefix mismatch"
	EnvelopeMismatch       ErrorKind = "envelope mismatch"
	UnbalancedDelimiters   ErrorKind = "unbalanced delimiters"
	WrongFieldCount        ErrorKind = "wrong field count"
	SectionLabelMismatch   ErrorKind = "section label mismatch"
	LocationTokenMalformed ErrorKind = "location token malformed"
	MissingObjectGroup     ErrorKind = "missing object group"
	EmptyObjectList        ErrorKind = "empty object list"
	ObjectTokenMalformed   ErrorKind = "object token malformed"
	UnmappedOrientation    ErrorKind = "unmapped orientation"
	StepMalformed          ErrorKind = "step malformed"
)

// ParseError describes why a specification string was rejected.
type ParseError struct {
	Kind     ErrorKind `json:"kind"`
	Expected string    `json:"expected"`
	Received string    `json:"received"`
	Position string    `json:"position,omitempty"`
	Stage    Stage     `json:"stage"`
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Position != "" {
		fmt.Fprintf(&b, " at %s", e.Position)
	}
	fmt.Fprintf(&b, ": expected %s, received %q", e.Expected, e.Received)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Kind }

func parseErr(kind ErrorKind, expected, received, position string) *ParseError {
	return &ParseError{Kind: kind, Expected: expected, Received: received, Position: position}
}

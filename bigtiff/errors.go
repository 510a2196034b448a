package bigtiff

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a bigtiff error, matching the error handling design's
// fixed set of kinds.
type Kind int

const (
	UnsupportedFormat Kind = iota + 1
	Truncated
	InvalidType
	LabelMacroNotFound
	RelocationOutOfRange
	IOError
	InvalidParameter
)

var kindNames = map[Kind]string{
	UnsupportedFormat:    "UnsupportedFormat",
	Truncated:            "Truncated",
	InvalidType:          "InvalidType",
	LabelMacroNotFound:   "LabelMacroNotFound",
	RelocationOutOfRange: "RelocationOutOfRange",
	IOError:              "IOError",
	InvalidParameter:     "InvalidParameter",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Error carries the kind, the phase in which it occurred, and the
// file offset and tag implicated, when applicable. A zero Tag/Offset
// means "not applicable" and is left out of the message.
type Error struct {
	Kind   Kind
	Phase  string
	Offset int64
	Tag    Tag
	cause  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: phase=%s", e.Kind, e.Phase)
	if e.Offset != 0 {
		msg += fmt.Sprintf(" offset=0x%x", e.Offset)
	}
	if e.Tag != 0 {
		msg += fmt.Sprintf(" tag=%s(%d)", e.Tag.Name(), e.Tag)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// newError builds an *Error, wrapping cause (if non-nil) with
// pkg/errors so a %+v of the returned error carries a stack trace back
// to the point of first failure.
func newError(kind Kind, phase string, offset int64, tag Tag, cause error) *Error {
	var wrapped error
	if cause != nil {
		wrapped = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Phase: phase, Offset: offset, Tag: tag, cause: wrapped}
}

// NewError is the exported form of newError, for use by sibling
// packages (subimage, slide, splice, label) that need to raise a
// bigtiff.Error.
func NewError(kind Kind, phase string, offset int64, tag Tag, cause error) *Error {
	return newError(kind, phase, offset, tag, cause)
}

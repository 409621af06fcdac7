// Package diag carries the error model and non-fatal warnings shared by every
// pass: a single Error type tagged with a Kind, the offending pointer and a
// YAML fragment of the raw schema.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind classifies an Error.
type Kind string

// Error kinds (exported consts for IDE completion and type safety by convention)
const (
	// KindResolution: a $ref cannot be dereferenced (dangling pointer, malformed path).
	KindResolution Kind = "resolution"
	// KindComposition: unsupported or malformed composition (anyOf, allOf > 2,
	// missing mapping target, non-string discriminator).
	KindComposition Kind = "composition"
	// KindTranspile: a node matches none of the transpiler's shape rules.
	KindTranspile Kind = "transpile"
	// KindGraph: a dependency cycle escaped the circularity filter.
	KindGraph Kind = "graph"
)

// Sentinels for errors.Is.
var (
	ErrResolution  = errors.New("resolution error")
	ErrComposition = errors.New("composition error")
	ErrTranspile   = errors.New("transpile error")
	ErrGraph       = errors.New("graph error")
)

// maxFragment bounds the rendered schema fragment.
const maxFragment = 512

// Error is the single error type surfaced by every pass.
type Error struct {
	Kind    Kind
	Pointer string // offending location ("#/components/schemas/Pet"), when known
	Message string
	// Fragment is a compact YAML rendering of the offending raw schema.
	Fragment string
	Cause    error
}

func (e *Error) Error() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s error", e.Kind)
	if e.Pointer != "" {
		fmt.Fprintf(b, " at %s", e.Pointer)
	}
	fmt.Fprintf(b, ": %s", e.Message)
	if e.Cause != nil {
		fmt.Fprintf(b, ": %v", e.Cause)
	}
	if e.Fragment != "" {
		fmt.Fprintf(b, "\n  schema: %s", e.Fragment)
	}
	return b.String()
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches the Kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrResolution:
		return e.Kind == KindResolution
	case ErrComposition:
		return e.Kind == KindComposition
	case ErrTranspile:
		return e.Kind == KindTranspile
	case ErrGraph:
		return e.Kind == KindGraph
	}
	return false
}

// Option decorates an Error under construction.
type Option func(*Error)

// At sets the offending pointer.
func At(pointer string) Option { return func(e *Error) { e.Pointer = pointer } }

// Schema renders v (a schema node or any yaml-marshalable value) as the fragment.
func Schema(v any) Option { return func(e *Error) { e.Fragment = Fragment(v) } }

// Cause attaches an underlying error.
func Cause(err error) Option { return func(e *Error) { e.Cause = err } }

// New builds an Error.
func New(kind Kind, msg string, opts ...Option) *Error {
	e := &Error{Kind: kind, Message: msg}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Resolutionf builds a KindResolution error.
func Resolutionf(opts []Option, format string, a ...any) *Error {
	return New(KindResolution, fmt.Sprintf(format, a...), opts...)
}

// Compositionf builds a KindComposition error.
func Compositionf(opts []Option, format string, a ...any) *Error {
	return New(KindComposition, fmt.Sprintf(format, a...), opts...)
}

// Transpilef builds a KindTranspile error.
func Transpilef(opts []Option, format string, a ...any) *Error {
	return New(KindTranspile, fmt.Sprintf(format, a...), opts...)
}

// Graphf builds a KindGraph error.
func Graphf(opts []Option, format string, a ...any) *Error {
	return New(KindGraph, fmt.Sprintf(format, a...), opts...)
}

// Opts is a readability helper for the *f constructors.
func Opts(o ...Option) []Option { return o }

// AsError extracts an *Error using errors.As internally.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Fragment renders v as single-line flow YAML, truncated to a bounded size.
func Fragment(v any) string {
	if v == nil {
		return ""
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	s := strings.Join(strings.Fields(string(out)), " ")
	if len(s) > maxFragment {
		s = s[:maxFragment] + " ..."
	}
	return s
}

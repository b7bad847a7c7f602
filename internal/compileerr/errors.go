// Package compileerr defines the compiler's typed error taxonomy
// (spec.md §7). Every CompileError carries the offending node's stack
// path once known, plus a human message; Report batches errors from
// stages that must not fail fast (Syntax, Resolve).
package compileerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of compiler error kinds, one per row of
// spec.md §7's table plus the SPEC_FULL.md additions.
type Kind string

const (
	MalformedNode           Kind = "MalformedNode"
	UnknownOpCode           Kind = "UnknownOpCode"
	ReservedName            Kind = "ReservedName"
	PrivateName             Kind = "PrivateName"
	MissingRequiredField    Kind = "MissingRequiredField"
	ExternalWriteAttempt    Kind = "ExternalWriteAttempt"
	NestedFanOut            Kind = "NestedFanOut"
	UndefinedReference      Kind = "UndefinedReference"
	AmbiguousProducer       Kind = "AmbiguousProducer"
	InvalidModifier         Kind = "InvalidModifier"
	UnboundDynamicVariable  Kind = "UnboundDynamicVariable"
	CircularDependency      Kind = "CircularDependency"
	InternalAssemblyError   Kind = "InternalAssemblyError"
	InvalidAcceptExpression Kind = "InvalidAcceptExpression"
	SchemaViolation         Kind = "SchemaViolation"
)

// stageOf reports which pipeline stage originates a given Kind, purely
// for diagnostic display (internal/format groups rows by stage).
var stageOf = map[Kind]string{
	MalformedNode:           "parse",
	UnknownOpCode:           "parse",
	ReservedName:            "syntax",
	PrivateName:             "syntax",
	MissingRequiredField:    "syntax",
	ExternalWriteAttempt:    "syntax",
	NestedFanOut:            "syntax",
	InvalidAcceptExpression: "syntax",
	SchemaViolation:         "syntax",
	UndefinedReference:      "resolve",
	AmbiguousProducer:       "resolve",
	InvalidModifier:         "resolve",
	UnboundDynamicVariable:  "resolve",
	CircularDependency:      "wiring",
	InternalAssemblyError:   "assemble",
}

// Stage returns the pipeline stage that raises errors of this Kind.
func (k Kind) Stage() string { return stageOf[k] }

// CompileError is a single compiler diagnostic.
type CompileError struct {
	Kind    Kind
	Path    string // stack_path of the offending node, "" if unknown yet
	Message string
	Err     error // wrapped cause, if any
}

func (e *CompileError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Is supports errors.Is(err, SomeKind) by comparing Kind via a
// sentinel wrapper; callers more commonly use IsKind below.
func (e *CompileError) Is(target error) bool {
	var other *CompileError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs a CompileError.
func New(kind Kind, path, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a CompileError around an existing error.
func Wrap(kind Kind, path string, err error) *CompileError {
	return &CompileError{Kind: kind, Path: path, Message: err.Error(), Err: err}
}

// IsKind reports whether err is (or wraps) a CompileError of kind k.
func IsKind(err error, k Kind) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind == k
	}
	return false
}

// Report aggregates every CompileError collected during a batching
// stage (Syntax, Resolve). It implements error so callers can treat a
// failed compile uniformly, and supports errors.As to recover
// individual CompileErrors.
type Report struct {
	Errors []*CompileError
}

func (r *Report) Add(err *CompileError) { r.Errors = append(r.Errors, err) }

func (r *Report) HasErrors() bool { return len(r.Errors) > 0 }

// Unwrap exposes every collected CompileError to errors.Is/As.
func (r *Report) Unwrap() []error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errs
}

func (r *Report) Error() string {
	lines := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		lines[i] = e.Error()
	}
	return fmt.Sprintf("%d compile error(s):\n%s", len(r.Errors), strings.Join(lines, "\n"))
}

// AsReport builds a *Report from a single error, wrapping bare
// CompileErrors and passing through an existing Report unchanged.
// Stages that fail fast (Parse, Wiring, Assemble) still return a
// one-element Report so callers have a single failure type.
func AsReport(err error) *Report {
	if err == nil {
		return nil
	}
	var r *Report
	if errors.As(err, &r) {
		return r
	}
	var ce *CompileError
	if errors.As(err, &ce) {
		return &Report{Errors: []*CompileError{ce}}
	}
	return &Report{Errors: []*CompileError{{Kind: InternalAssemblyError, Message: err.Error(), Err: err}}}
}

// Package errs defines the engine's closed error taxonomy.
//
// Every error the core produces belongs to one of the categories below.
// Handlers on the wire boundary (internal/wire) use the category to decide
// whether a failure short-circuits a command with an error string or is
// downgraded to a Warning (see pkg/cache for the WarningTracker).
package errs

import (
	"fmt"
	"runtime"
	"strings"
)

// Category classifies an error by its handling strategy.
type Category int

const (
	// UserInput covers malformed commands, unknown column/role references,
	// schema length mismatches, illegal type coercions.
	UserInput Category = iota
	// Capacity covers file-mapping failure and out-of-memory conditions
	// encountered while materialising a column.
	Capacity
	// Consistency covers a fingerprint whose dependency is missing, or a
	// frame whose last_change no longer matches a cached entry.
	Consistency
	// FrozenMutation covers any mutation attempted on a frozen DataFrame.
	FrozenMutation
	// External covers errors bubbled up verbatim from database drivers,
	// Arrow codecs, or memory-mapped I/O.
	External
	// Internal covers assertion failures. Never sent to clients; the wire
	// layer maps it to a generic failure string instead.
	Internal
)

func (c Category) String() string {
	switch c {
	case UserInput:
		return "UserInput"
	case Capacity:
		return "Capacity"
	case Consistency:
		return "Consistency"
	case FrozenMutation:
		return "FrozenMutation"
	case External:
		return "External"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is a structured error carrying enough context to name the
// offending table and column after macro-rewriting, per the propagation
// policy in the specification's error handling design.
type Error struct {
	Category  Category
	Code      string // stable machine-readable identifier, e.g. "COLUMN_NOT_FOUND"
	Message   string
	Table     string // staging-table-friendly name, never an internal synthetic one
	Column    string
	Role      string
	Cause     error
	stack     []uintptr
}

// New creates an Error with no table/column context.
func New(cat Category, code, message string) *Error {
	return &Error{Category: cat, Code: code, Message: message, stack: captureStack()}
}

// Wrap attaches category/code context to an existing error, preserving the
// chain for errors.Is/errors.As.
func Wrap(cat Category, code string, err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Category: cat, Code: code, Message: err.Error(), Cause: err, stack: captureStack()}
}

// WithColumn annotates the error with the offending table/column/role.
func (e *Error) WithColumn(table, column, role string) *Error {
	e.Table, e.Column, e.Role = table, column, role
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message))
	if e.Table != "" {
		b.WriteString(fmt.Sprintf(" (table=%s", e.Table))
		if e.Column != "" {
			b.WriteString(fmt.Sprintf(" column=%s", e.Column))
		}
		if e.Role != "" {
			b.WriteString(fmt.Sprintf(" role=%s", e.Role))
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// ClientSafe reports whether this error may be surfaced to a wire client.
// Internal assertion failures never are (per §7's propagation policy).
func (e *Error) ClientSafe() bool { return e.Category != Internal }

func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// ColumnNotFound builds the structured error named by §4.2's failure model.
func ColumnNotFound(table, column, role string) *Error {
	return New(UserInput, "COLUMN_NOT_FOUND", fmt.Sprintf("column %q not found", column)).
		WithColumn(table, column, role)
}

// FrameFrozen builds the structured error for a mutation on a frozen frame.
func FrameFrozen(table string) *Error {
	return New(FrozenMutation, "FRAME_FROZEN", "mutation attempted on a frozen frame").
		WithColumn(table, "", "")
}

// NotSupportedInCommunity is returned for feature-learner tags that parse
// but are not implemented in this build (Fastboost/Multirel/Relboost/RelMT).
func NotSupportedInCommunity(kind string) *Error {
	return New(UserInput, "NOT_SUPPORTED_IN_COMMUNITY",
		fmt.Sprintf("%s is not supported in this build", kind))
}

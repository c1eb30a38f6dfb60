package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in a run the error occurred
type Phase string

const (
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseDiscover Phase = "discover" // page parsing
	PhaseResolve  Phase = "resolve"  // fragment content retrieval
	PhaseLoad     Phase = "load"     // engine loading
	PhaseConvert  Phase = "convert"  // engine conversion
	PhaseRun      Phase = "run"      // orchestration
)

// Kind categorizes the error
type Kind string

const (
	KindFetch          Kind = "fetch"
	KindStatus         Kind = "status"
	KindInvalidData    Kind = "invalid_data"
	KindInvalidInput   Kind = "invalid_input"
	KindNotFound       Kind = "not_found"
	KindMissingExport  Kind = "missing_export"
	KindMissingImport  Kind = "missing_import"
	KindSignature      Kind = "signature_mismatch"
	KindInstantiation  Kind = "instantiation"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindGuest          Kind = "guest_failure"
	KindNotInitialized Kind = "not_initialized"
	KindCanceled       Kind = "canceled"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Source   string
	WitType  string
	CoreType string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Source != "" {
		b.WriteString(" (")
		b.WriteString(e.Source)
		b.WriteByte(')')
	}

	typed := e.WitType != "" || e.CoreType != ""
	if typed {
		b.WriteString(": ")
		if e.WitType != "" && e.CoreType != "" {
			b.WriteString("WIT type ")
			b.WriteString(e.WitType)
			b.WriteString(", core type ")
			b.WriteString(e.CoreType)
		} else if e.WitType != "" {
			b.WriteString("WIT type ")
			b.WriteString(e.WitType)
		} else {
			b.WriteString("core type ")
			b.WriteString(e.CoreType)
		}
	}

	if e.Detail != "" {
		if typed {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Kind matches any error of the same phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Kind == "" {
			return e.Phase == t.Phase
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the element path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Source sets the location involved
func (b *Builder) Source(src string) *Builder {
	b.err.Source = src
	return b
}

// WitType sets the expected WIT signature
func (b *Builder) WitType(t string) *Builder {
	b.err.WitType = t
	return b
}

// CoreType sets the observed core wasm signature
func (b *Builder) CoreType(t string) *Builder {
	b.err.CoreType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Match targets for errors.Is

var (
	// EngineLoadFailure matches every engine loading error.
	EngineLoadFailure = &Error{Phase: PhaseLoad}
	// FragmentResolutionFailure matches every content resolution error.
	FragmentResolutionFailure = &Error{Phase: PhaseResolve}
	// ConversionFailure matches every engine conversion error.
	ConversionFailure = &Error{Phase: PhaseConvert}
)

// Convenience constructors for common error patterns

// FragmentPath returns the path naming the fragment at index.
func FragmentPath(index int) []string {
	return []string{fmt.Sprintf("fragment[%d]", index)}
}

// Fetch creates a retrieval error for a transport failure
func Fetch(index int, source string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindFetch,
		Path:   FragmentPath(index),
		Source: source,
		Detail: "retrieve content",
		Cause:  cause,
	}
}

// BadStatus creates a retrieval error for a non-success response
func BadStatus(phase Phase, source string, code int, status string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStatus,
		Source: source,
		Detail: fmt.Sprintf("unexpected response status %s", status),
		Value:  code,
	}
}

// Load creates an engine loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Instantiation creates an engine instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate engine module",
		Cause:  cause,
	}
}

// SignatureMismatch creates an export signature error
func SignatureMismatch(export, witType, coreType string) *Error {
	return New(PhaseLoad, KindSignature).
		Path("export", export).
		WitType(witType).
		CoreType(coreType).
		Build()
}

// Conversion creates an engine conversion error
func Conversion(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConvert,
		Kind:   KindGuest,
		Detail: detail,
		Cause:  cause,
	}
}

// OutOfBounds creates a guest memory access error
func OutOfBounds(phase Phase, offset, length uint32, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) exceeds memory size %d", offset, uint64(offset)+uint64(length), size),
		Value:  offset,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Canceled creates an error for a run abandoned by its caller
func Canceled(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCanceled,
		Detail: "canceled by caller",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingExportsError is returned when an engine module lacks required exports
type MissingExportsError struct {
	Exports []string
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[load] missing_export: no exports specified"
	}
	return fmt.Sprintf("[load] missing_export: engine module does not export %s", strings.Join(e.Exports, ", "))
}

// Is reports whether target matches this error type or the load phase
func (e *MissingExportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingExportsError:
		return true
	case *Error:
		return t.Phase == PhaseLoad && (t.Kind == "" || t.Kind == KindMissingExport)
	}
	return false
}

// MissingImport represents a single unresolved engine import
type MissingImport struct {
	Module   string // e.g., "wbg"
	Function string // e.g., "__wbg_log_1d3ae0273d8f4f8a"
}

// MissingImportsError is returned when an engine imports functions the host
// does not provide
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "module#function" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		mod, fn := parseImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Module:   mod,
			Function: fn,
		})
	}
	return result
}

func parseImportKey(key string) (module, function string) {
	mod, fn, found := strings.Cut(key, "#")
	if found {
		return mod, fn
	}
	return key, ""
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[load] missing_import: no imports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d host function(s):\n", len(e.Imports)))

	// Group by module for cleaner output
	byMod := make(map[string][]string)
	var modOrder []string
	for _, imp := range e.Imports {
		if _, exists := byMod[imp.Module]; !exists {
			modOrder = append(modOrder, imp.Module)
		}
		byMod[imp.Module] = append(byMod[imp.Module], imp.Function)
	}

	for _, mod := range modOrder {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, fn := range byMod[mod] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type or the load phase
func (e *MissingImportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingImportsError:
		return true
	case *Error:
		return t.Phase == PhaseLoad && (t.Kind == "" || t.Kind == KindMissingImport)
	}
	return false
}

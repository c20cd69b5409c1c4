package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// Class groups error codes by the invariant they protect.
type Class string

const (
	ClassStructural  Class = "structural"
	ClassConsistency Class = "consistency"
	ClassToken       Class = "token"
)

// Compile error codes (E200-E499). Every one aborts the compilation.
const (
	// Structural errors (E200-E299)
	ErrOrphanContent      = "E201" // statement, annotation, tweak, solution or hint before any task
	ErrDuplicateStatement = "E202" // task already has a statement
	ErrSaltReused         = "E203" // salt already used in the document
	ErrSelfReference      = "E204" // redirection to the task's own salt
	ErrUnknownLabel       = "E205" // label not in the label table
	ErrDuplicateTweak     = "E206" // task already has a tweak

	// Consistency errors (E300-E399)
	ErrMissingFormula   = "E301" // first solution has no formula
	ErrFormulaMismatch  = "E302" // formula differs from the task's after dequalification
	ErrMissingTweak     = "E303" // placeholder in the formula but no tweak
	ErrUnexpectedTweak  = "E304" // tweak defined but no placeholder in the formula
	ErrSaltMismatch     = "E305" // formula salt differs from the task's salt
	ErrMissingStatement = "E306" // first solution before the statement

	// Token errors (E400-E499)
	ErrHintWithoutToken = "E401" // hint cell was never executed
	ErrDuplicateHint    = "E402" // two hints produce the same token
	ErrHintCollision    = "E403" // hint token equals a non-hint token
)

var codeClasses = map[string]Class{
	ErrOrphanContent:      ClassStructural,
	ErrDuplicateStatement: ClassStructural,
	ErrSaltReused:         ClassStructural,
	ErrSelfReference:      ClassStructural,
	ErrUnknownLabel:       ClassStructural,
	ErrDuplicateTweak:     ClassStructural,
	ErrMissingFormula:     ClassConsistency,
	ErrFormulaMismatch:    ClassConsistency,
	ErrMissingTweak:       ClassConsistency,
	ErrUnexpectedTweak:    ClassConsistency,
	ErrSaltMismatch:       ClassConsistency,
	ErrMissingStatement:   ClassConsistency,
	ErrHintWithoutToken:   ClassToken,
	ErrDuplicateHint:      ClassToken,
	ErrHintCollision:      ClassToken,
}

// CompileError reports why a document cannot be compiled. Excerpt is the
// raw source of the offending cell; Cell is its index, or -1 when the
// error is detected after the scan.
type CompileError struct {
	Code    string `json:"code"`
	Class   Class  `json:"class"`
	Message string `json:"message"`
	Excerpt string `json:"excerpt,omitempty"`
	Cell    int    `json:"cell"`
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", e.Code)
	if e.Cell >= 0 {
		fmt.Fprintf(&b, "cell %d: ", e.Cell)
	}
	b.WriteString(e.Message)
	if e.Excerpt != "" {
		b.WriteString("\n")
		b.WriteString(e.Excerpt)
	}
	return b.String()
}

func newError(code string, cell int, excerpt, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Class:   codeClasses[code],
		Message: fmt.Sprintf(format, args...),
		Excerpt: excerpt,
		Cell:    cell,
	}
}

// AsCompileError extracts a *CompileError from err's chain.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// HasCode reports whether err is a CompileError with the given code.
func HasCode(err error, code string) bool {
	ce, ok := AsCompileError(err)
	return ok && ce.Code == code
}

// IsStructural reports whether err is a structural compile error.
func IsStructural(err error) bool { return hasClass(err, ClassStructural) }

// IsConsistency reports whether err is a consistency compile error.
func IsConsistency(err error) bool { return hasClass(err, ClassConsistency) }

// IsToken reports whether err is a token compile error.
func IsToken(err error) bool { return hasClass(err, ClassToken) }

func hasClass(err error, class Class) bool {
	ce, ok := AsCompileError(err)
	return ok && ce.Class == class
}

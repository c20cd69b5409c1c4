package harness

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/sqlab/internal/store"
	"github.com/roach88/sqlab/internal/tokentable"
)

// AssertionError is returned when an assertion fails.
// It includes the record keys to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Keys     []string // Record keys for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Keys) > 0 {
		fmt.Fprintf(&buf, "\nRecord keys: %s\n", strings.Join(e.Keys, " "))
	}
	return buf.String()
}

// AssertionContext provides what token_row assertions need.
type AssertionContext struct {
	Store       *store.Store
	Ctx         context.Context
	Compilation string
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	if result.Records == nil {
		return fmt.Errorf("%s assertion requires a successful compilation", a.Type)
	}
	switch a.Type {
	case AssertKeys:
		return assertKeys(result, a)
	case AssertKind:
		return assertKind(result, a)
	case AssertAlias:
		return assertAlias(result, a)
	case AssertWarning:
		return assertWarning(result, a)
	case AssertNoWarnings:
		return assertNoWarnings(result)
	case AssertTokenRow:
		if actx == nil || actx.Store == nil {
			return fmt.Errorf("token_row assertion requires a store")
		}
		return assertTokenRow(actx, result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertKeys(result *Result, a Assertion) error {
	keys := result.Records.Keys()
	if slices.Equal(keys, a.Keys) {
		return nil
	}
	return &AssertionError{
		Type:     AssertKeys,
		Expected: strings.Join(a.Keys, " "),
		Actual:   strings.Join(keys, " "),
	}
}

func assertKind(result *Result, a Assertion) error {
	rec, ok := result.Records.Lookup(a.Token)
	if !ok {
		return &AssertionError{
			Type:     AssertKind,
			Expected: fmt.Sprintf("%s under token %s", a.Kind, a.Token),
			Actual:   "token not found",
			Keys:     result.Records.Keys(),
		}
	}
	if string(rec.Kind()) != a.Kind {
		return &AssertionError{
			Type:     AssertKind,
			Expected: fmt.Sprintf("%s under token %s", a.Kind, a.Token),
			Actual:   string(rec.Kind()),
		}
	}
	return nil
}

func assertAlias(result *Result, a Assertion) error {
	task, ok := result.Records.Resolve(a.Token)
	if !ok {
		return &AssertionError{
			Type:     AssertAlias,
			Expected: fmt.Sprintf("%s leads to %s", a.Token, a.Target),
			Actual:   "token does not resolve to a task",
			Keys:     result.Records.Keys(),
		}
	}
	target, ok := result.Records.PrimaryToken(task)
	if !ok || target != a.Target {
		return &AssertionError{
			Type:     AssertAlias,
			Expected: fmt.Sprintf("%s leads to %s", a.Token, a.Target),
			Actual:   fmt.Sprintf("%s leads to %s", a.Token, target),
		}
	}
	return nil
}

func assertWarning(result *Result, a Assertion) error {
	for _, w := range result.Warnings {
		if w.Code == a.Code && (a.Token == "" || w.Token == a.Token) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertWarning,
		Expected: fmt.Sprintf("warning %s %s", a.Code, a.Token),
		Actual:   formatWarnings(result),
	}
}

func assertNoWarnings(result *Result) error {
	if len(result.Warnings) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoWarnings,
		Expected: "no warnings",
		Actual:   formatWarnings(result),
	}
}

func formatWarnings(result *Result) string {
	if len(result.Warnings) == 0 {
		return "no warnings"
	}
	lines := make([]string, len(result.Warnings))
	for i, w := range result.Warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "; ")
}

// assertTokenRow reads the token table back from the store and checks
// the row of the token using subset semantics.
func assertTokenRow(actx *AssertionContext, result *Result, a Assertion) error {
	items, err := actx.Store.ReadTokenTable(actx.Ctx, actx.Compilation)
	if err != nil {
		return fmt.Errorf("read token table: %w", err)
	}

	var matches []tokentable.Item
	for _, item := range items {
		if item.Token == a.Token {
			matches = append(matches, item)
		}
	}
	if len(matches) == 0 {
		return &AssertionError{
			Type:     AssertTokenRow,
			Expected: fmt.Sprintf("row for token %s", a.Token),
			Actual:   "row not found",
			Keys:     result.Records.Keys(),
		}
	}

	// Several rows may share a token; one of them must match.
	var mismatch string
	for _, item := range matches {
		if mismatch = matchItem(item, a.Expect); mismatch == "" {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTokenRow,
		Expected: fmt.Sprintf("row for token %s with %v", a.Token, a.Expect),
		Actual:   mismatch,
	}
}

// matchItem returns a description of the first differing field, or "".
func matchItem(item tokentable.Item, expect map[string]interface{}) string {
	actual := map[string]string{
		"activity": strconv.Itoa(item.Activity),
		"source":   strconv.Itoa(item.Source),
		"target":   strconv.Itoa(item.Target),
		"action":   string(item.Action),
		"salt":     item.Salt,
	}
	fields := make([]string, 0, len(expect))
	for field := range expect {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	for _, field := range fields {
		got, ok := actual[field]
		if !ok {
			return fmt.Sprintf("unknown field %q", field)
		}
		if want := fmt.Sprint(expect[field]); want != got {
			return fmt.Sprintf("%s = %s, expected %s", field, got, want)
		}
	}
	return ""
}

// Package quality evaluates data tests against pipeline outputs. Tests
// never modify data; they return the rows that break a rule.
package quality

import (
	"fmt"
	"strings"
)

// Kind is the family a test belongs to.
type Kind string

const (
	KindUnique         Kind = "unique"
	KindNotNull        Kind = "not_null"
	KindAcceptedValues Kind = "accepted_values"
	KindRelationships  Kind = "relationships"
	KindExpression     Kind = "expression"
)

// Severity decides whether a failing test fails the run.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Status is the outcome of one test.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Failure is one offending row (or key, for uniqueness).
type Failure struct {
	Key    string
	Detail string
}

// Result is the outcome of a single named test.
type Result struct {
	Name     string
	Model    string
	Column   string
	Kind     Kind
	Severity Severity
	Failures []Failure
}

// Status derives pass/warn/fail from failures and severity.
func (r Result) Status() Status {
	switch {
	case len(r.Failures) == 0:
		return StatusPass
	case r.Severity == SeverityWarn:
		return StatusWarn
	default:
		return StatusFail
	}
}

func testName(kind Kind, model, column string) string {
	return fmt.Sprintf("%s_%s_%s", kind, model, column)
}

// Unique fails for every key that occurs more than once. Failures are in
// order of first occurrence.
func Unique[T any](model, column string, rows []T, key func(T) string) Result {
	counts := make(map[string]int, len(rows))
	var order []string
	for _, r := range rows {
		k := key(r)
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	res := Result{Name: testName(KindUnique, model, column), Model: model, Column: column, Kind: KindUnique, Severity: SeverityError}
	for _, k := range order {
		if n := counts[k]; n > 1 {
			res.Failures = append(res.Failures, Failure{Key: k, Detail: fmt.Sprintf("appears %d times", n)})
		}
	}
	return res
}

// NotNull fails for every row whose column is null.
func NotNull[T any](model, column string, rows []T, isNull func(T) bool, id func(T) string) Result {
	res := Result{Name: testName(KindNotNull, model, column), Model: model, Column: column, Kind: KindNotNull, Severity: SeverityError}
	for _, r := range rows {
		if isNull(r) {
			res.Failures = append(res.Failures, Failure{Key: id(r), Detail: column + " is null"})
		}
	}
	return res
}

// AcceptedValues fails for every row whose value is outside accepted.
func AcceptedValues[T any](model, column string, rows []T, value func(T) string, accepted []string, id func(T) string) Result {
	allowed := make(map[string]bool, len(accepted))
	for _, a := range accepted {
		allowed[a] = true
	}

	res := Result{Name: testName(KindAcceptedValues, model, column), Model: model, Column: column, Kind: KindAcceptedValues, Severity: SeverityError}
	for _, r := range rows {
		if v := value(r); !allowed[v] {
			res.Failures = append(res.Failures, Failure{
				Key:    id(r),
				Detail: fmt.Sprintf("%q not in [%s]", v, strings.Join(accepted, ", ")),
			})
		}
	}
	return res
}

// Relationships fails for every child row whose reference has no parent.
func Relationships[T, P any](model, column string, rows []T, ref func(T) string, toModel, toColumn string, parents []P, parentKey func(P) string, id func(T) string) Result {
	known := make(map[string]bool, len(parents))
	for _, p := range parents {
		known[parentKey(p)] = true
	}

	res := Result{Name: testName(KindRelationships, model, column), Model: model, Column: column, Kind: KindRelationships, Severity: SeverityError}
	for _, r := range rows {
		if v := ref(r); !known[v] {
			res.Failures = append(res.Failures, Failure{
				Key:    id(r),
				Detail: fmt.Sprintf("%s=%s has no match in %s.%s", column, v, toModel, toColumn),
			})
		}
	}
	return res
}

// Expect is a single-query business rule: every row for which failing
// returns true is reported.
func Expect[T any](name, model string, rows []T, failing func(T) bool, id func(T) string) Result {
	res := Result{Name: name, Model: model, Kind: KindExpression, Severity: SeverityError}
	for _, r := range rows {
		if failing(r) {
			res.Failures = append(res.Failures, Failure{Key: id(r)})
		}
	}
	return res
}

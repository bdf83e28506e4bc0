// Package filter provides the row predicate surface consumed by the
// statistics evaluators: comparisons over dotted column paths and literal
// values, logical composition, and the no-op sentinel that selects the
// metadata-only fast path.
package filter

import (
	"fmt"
	"strings"

	"github.com/parqstat/parqstat/pkg/value"
)

// Row is a decoded row restricted to the columns a filter needs. A column
// with no value for this row (absent field, null, or not in the schema)
// reports ok=false.
type Row interface {
	Value(column string) (value.Raw, bool)
}

// Filter is a predicate over rows. Implementations are immutable.
type Filter interface {
	// Matches reports whether the row satisfies the predicate.
	// Comparing incompatible value kinds is a decode error.
	Matches(row Row) (bool, error)

	// Columns returns the dotted column paths the predicate references.
	Columns() []string

	String() string
}

// Noop is the distinguished filter matching every row. It is a singleton:
// the dispatcher selects the fast path by identity (IsNoop), never by
// re-evaluating semantics.
var Noop Filter = noopFilter{}

// IsNoop reports whether f is the no-op sentinel (or nil, which callers may
// pass to mean "no filter").
func IsNoop(f Filter) bool {
	return f == nil || f == Noop
}

type noopFilter struct{}

func (noopFilter) Matches(Row) (bool, error) { return true, nil }
func (noopFilter) Columns() []string         { return nil }
func (noopFilter) String() string            { return "noop" }

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

type compare struct {
	column string
	op     Op
	lit    value.Raw
}

// Eq matches rows whose column equals the literal.
func Eq(column string, lit value.Raw) Filter { return &compare{column, OpEq, lit} }

// Lt matches rows whose column is strictly less than the literal.
func Lt(column string, lit value.Raw) Filter { return &compare{column, OpLt, lit} }

// Le matches rows whose column is at most the literal.
func Le(column string, lit value.Raw) Filter { return &compare{column, OpLe, lit} }

// Gt matches rows whose column is strictly greater than the literal.
func Gt(column string, lit value.Raw) Filter { return &compare{column, OpGt, lit} }

// Ge matches rows whose column is at least the literal.
func Ge(column string, lit value.Raw) Filter { return &compare{column, OpGe, lit} }

func (c *compare) Matches(row Row) (bool, error) {
	v, ok := row.Value(c.column)
	if !ok {
		// Absence is not a value: no comparison against it holds.
		return false, nil
	}
	cmp, err := value.Compare(v, c.lit)
	if err != nil {
		return false, err
	}
	switch c.op {
	case OpEq:
		return cmp == 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGt:
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func (c *compare) Columns() []string { return []string{c.column} }

func (c *compare) String() string {
	return fmt.Sprintf("%s %s %s", c.column, c.op, c.lit)
}

type membership struct {
	column string
	lits   []value.Raw
}

// In matches rows whose column equals any of the literals.
func In(column string, lits ...value.Raw) Filter {
	return &membership{column: column, lits: lits}
}

func (m *membership) Matches(row Row) (bool, error) {
	v, ok := row.Value(m.column)
	if !ok {
		return false, nil
	}
	for _, lit := range m.lits {
		cmp, err := value.Compare(v, lit)
		if err != nil {
			return false, err
		}
		if cmp == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (m *membership) Columns() []string { return []string{m.column} }

func (m *membership) String() string {
	parts := make([]string, len(m.lits))
	for i, l := range m.lits {
		parts[i] = l.String()
	}
	return fmt.Sprintf("%s in (%s)", m.column, strings.Join(parts, ", "))
}

type conjunction struct{ children []Filter }

// And matches rows satisfying every child filter. With no children it
// behaves like Noop but is not the sentinel.
func And(children ...Filter) Filter { return &conjunction{children} }

func (a *conjunction) Matches(row Row) (bool, error) {
	for _, c := range a.children {
		ok, err := c.Matches(row)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (a *conjunction) Columns() []string { return mergeColumns(a.children) }
func (a *conjunction) String() string    { return joinChildren(a.children, " && ") }

type disjunction struct{ children []Filter }

// Or matches rows satisfying at least one child filter.
func Or(children ...Filter) Filter { return &disjunction{children} }

func (o *disjunction) Matches(row Row) (bool, error) {
	for _, c := range o.children {
		ok, err := c.Matches(row)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (o *disjunction) Columns() []string { return mergeColumns(o.children) }
func (o *disjunction) String() string    { return joinChildren(o.children, " || ") }

type negation struct{ child Filter }

// Not matches rows the child filter rejects.
func Not(child Filter) Filter { return &negation{child} }

func (n *negation) Matches(row Row) (bool, error) {
	ok, err := n.child.Matches(row)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (n *negation) Columns() []string { return n.child.Columns() }
func (n *negation) String() string    { return fmt.Sprintf("!(%s)", n.child) }

func mergeColumns(children []Filter) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range children {
		for _, col := range c.Columns() {
			if !seen[col] {
				seen[col] = true
				out = append(out, col)
			}
		}
	}
	return out
}

func joinChildren(children []Filter, sep string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = "(" + c.String() + ")"
	}
	return strings.Join(parts, sep)
}

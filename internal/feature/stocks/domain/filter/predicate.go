// Package filter builds composable predicates over stocks for listing queries.
//
// A Predicate is a conjunction of Conditions. It can be evaluated in memory
// with Match or rendered to SQL by a store adapter. In both forms a condition
// that reads an absent field is false, mirroring SQL NULL comparison.
package filter

import (
	"strconv"
	"strings"

	"stock_screener/internal/feature/stocks/domain/entity"
)

// Field names a numeric column of a stock. The value doubles as the column name.
type Field string

const (
	FieldPrice         Field = "price"
	FieldMA50          Field = "ma50"
	FieldMA200         Field = "ma200"
	FieldForwardPE     Field = "forward_pe"
	FieldForwardEPS    Field = "forward_eps"
	FieldDividendYield Field = "dividend_yield"
)

// Value returns the field of s, or nil when absent or unknown.
func (f Field) Value(s entity.Stock) *float64 {
	switch f {
	case FieldPrice:
		return s.Price
	case FieldMA50:
		return s.MA50
	case FieldMA200:
		return s.MA200
	case FieldForwardPE:
		return s.ForwardPE
	case FieldForwardEPS:
		return s.ForwardEPS
	case FieldDividendYield:
		return s.DividendYield
	}
	return nil
}

// Op is a strict comparison operator.
type Op string

const (
	OpLess    Op = "<"
	OpGreater Op = ">"
)

// Condition compares Field either against a constant (Value) or against
// another field (Other). Exactly one of Value and Other is set.
type Condition struct {
	Field Field
	Op    Op
	Value *float64
	Other Field
}

// Less returns the condition field < v.
func Less(f Field, v float64) Condition {
	return Condition{Field: f, Op: OpLess, Value: &v}
}

// Greater returns the condition field > v.
func Greater(f Field, v float64) Condition {
	return Condition{Field: f, Op: OpGreater, Value: &v}
}

// GreaterThanField returns the condition f > other.
func GreaterThanField(f, other Field) Condition {
	return Condition{Field: f, Op: OpGreater, Other: other}
}

// Match evaluates the condition against s.
func (c Condition) Match(s entity.Stock) bool {
	left := c.Field.Value(s)
	if left == nil {
		return false
	}
	var right *float64
	if c.Other != "" {
		right = c.Other.Value(s)
	} else {
		right = c.Value
	}
	if right == nil {
		return false
	}
	switch c.Op {
	case OpLess:
		return *left < *right
	case OpGreater:
		return *left > *right
	}
	return false
}

func (c Condition) String() string {
	if c.Other != "" {
		return string(c.Field) + string(c.Op) + string(c.Other)
	}
	v := "nil"
	if c.Value != nil {
		v = strconv.FormatFloat(*c.Value, 'g', -1, 64)
	}
	return string(c.Field) + string(c.Op) + v
}

// Predicate is an AND of conditions. The zero value matches every stock.
type Predicate struct {
	conds []Condition
}

// And returns a new predicate with cs appended. p is not modified.
func (p Predicate) And(cs ...Condition) Predicate {
	out := make([]Condition, 0, len(p.conds)+len(cs))
	out = append(out, p.conds...)
	out = append(out, cs...)
	return Predicate{conds: out}
}

// Conditions returns a copy of the conditions in insertion order.
func (p Predicate) Conditions() []Condition {
	return append([]Condition(nil), p.conds...)
}

// Empty reports whether the predicate has no conditions.
func (p Predicate) Empty() bool {
	return len(p.conds) == 0
}

// Match reports whether s satisfies every condition.
func (p Predicate) Match(s entity.Stock) bool {
	for _, c := range p.conds {
		if !c.Match(s) {
			return false
		}
	}
	return true
}

// Key returns a stable textual form of the predicate, suitable as a cache key.
func (p Predicate) Key() string {
	if p.Empty() {
		return "all"
	}
	parts := make([]string, 0, len(p.conds))
	for _, c := range p.conds {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, "&")
}

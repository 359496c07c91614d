package alertrule

import (
	"strconv"
	"strings"
)

// Operator encodes the comparison applied by a condition.
type Operator string

// Text operators are case-insensitive; each has a negated variant.
const (
	OpIExact      Operator = "iexact"
	OpIContains   Operator = "icontains"
	OpIStartsWith Operator = "istartswith"
	OpIEndsWith   Operator = "iendswith"

	OpNotIExact      Operator = "not_iexact"
	OpNotIContains   Operator = "not_icontains"
	OpNotIStartsWith Operator = "not_istartswith"
	OpNotIEndsWith   Operator = "not_iendswith"
)

// Numeric operators.
const (
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
)

// OpIn is the only operator for list attributes: exact membership.
const OpIn Operator = "in"

// Allows reports whether the operator is legal for the attribute type.
func (t AttrType) Allows(op Operator) bool {
	switch t {
	case AttrText:
		switch op {
		case OpIExact, OpIContains, OpIStartsWith, OpIEndsWith,
			OpNotIExact, OpNotIContains, OpNotIStartsWith, OpNotIEndsWith:
			return true
		}
	case AttrNumeric:
		switch op {
		case OpGT, OpGTE, OpLT, OpLTE:
			return true
		}
	case AttrList:
		return op == OpIn
	}
	return false
}

// Operators returns the legal operator set for the attribute type.
func (t AttrType) Operators() []Operator {
	switch t {
	case AttrText:
		return []Operator{
			OpIExact, OpIContains, OpIStartsWith, OpIEndsWith,
			OpNotIExact, OpNotIContains, OpNotIStartsWith, OpNotIEndsWith,
		}
	case AttrNumeric:
		return []Operator{OpGT, OpGTE, OpLT, OpLTE}
	case AttrList:
		return []Operator{OpIn}
	}
	return nil
}

// Evaluate tests the rule against an entity. It never returns an
// error: a rule that does not apply to the entity's type, names an
// unknown attribute, or carries a malformed comparison value simply
// does not match.
func Evaluate(r *Rule, entity any) bool {
	scope, ok := ScopeOf(entity)
	if !ok || scope != r.Scope {
		return false
	}

	attr, ok := LookupAttribute(r.Scope, r.ScopeAttr)
	if !ok {
		return false
	}

	val, ok := attr.Get(entity)
	if !ok {
		return false
	}

	switch attr.Type {
	case AttrText:
		return matchText(r.Condition.Operator, val.Text, r.Condition.Value)
	case AttrNumeric:
		want, err := strconv.ParseFloat(r.Condition.Value, 64)
		if err != nil {
			return false
		}
		return matchNumeric(r.Condition.Operator, val.Number, want)
	case AttrList:
		if r.Condition.Operator != OpIn || !attr.IsLegalValue(r.Condition.Value) {
			return false
		}
		return strings.EqualFold(val.Text, r.Condition.Value)
	}
	return false
}

func matchText(op Operator, have, want string) bool {
	h := strings.ToLower(have)
	w := strings.ToLower(want)

	switch op {
	case OpIExact:
		return h == w
	case OpIContains:
		return strings.Contains(h, w)
	case OpIStartsWith:
		return strings.HasPrefix(h, w)
	case OpIEndsWith:
		return strings.HasSuffix(h, w)
	case OpNotIExact:
		return h != w
	case OpNotIContains:
		return !strings.Contains(h, w)
	case OpNotIStartsWith:
		return !strings.HasPrefix(h, w)
	case OpNotIEndsWith:
		return !strings.HasSuffix(h, w)
	}
	return false
}

func matchNumeric(op Operator, have, want float64) bool {
	switch op {
	case OpGT:
		return have > want
	case OpGTE:
		return have >= want
	case OpLT:
		return have < want
	case OpLTE:
		return have <= want
	}
	return false
}

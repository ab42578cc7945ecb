package filter

import (
	"fmt"
	"strings"
)

// MaxConditions is the maximum number of hard predicates per query.
const MaxConditions = 32

// Condition is an exact tag match on an indexed place field.
type Condition struct {
	field string
	value string
}

// NewMatch creates a tag match condition.
func NewMatch(field, value string) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for field %q", field)
	}
	return Condition{field: field, value: value}, nil
}

// Field returns the indexed field name.
func (c Condition) Field() string { return c.field }

// Value returns the exact match value.
func (c Condition) Value() string { return c.value }

// String renders the condition as field=value.
func (c Condition) String() string { return c.field + "=" + c.value }

// Expression is a conjunction of conditions: every one must hold.
type Expression struct {
	must []Condition
}

// And validates and creates an Expression.
func And(conds ...Condition) (Expression, error) {
	if len(conds) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{must: conds}, nil
}

// Must returns the conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Matches evaluates the expression against a record. values returns the
// record's values for a field; comparison is case-insensitive.
func (e Expression) Matches(values func(field string) []string) bool {
	for _, c := range e.must {
		if !contains(values(c.field), c.value) {
			return false
		}
	}
	return true
}

func contains(vals []string, want string) bool {
	for _, v := range vals {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

package filter

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/rebeliceyang/lazygrid/internal/logger"
	"github.com/rebeliceyang/lazygrid/internal/models"
)

// Predicate reports whether a row passes a filter
type Predicate[R any] func(row R) bool

// Compiled is the executable form of a FilterDescriptor.
// It is pure and may be reused for as long as the descriptor is unchanged.
type Compiled[R any] struct {
	match Predicate[R]

	// Warnings holds soft ValueParseErrors; the affected filters never match.
	Warnings []error
}

// Match evaluates the compiled filter against a row
func (c *Compiled[R]) Match(row R) bool {
	return c.match(row)
}

// Apply returns the rows that match, in their original order
func (c *Compiled[R]) Apply(rows []R) []R {
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		if c.match(row) {
			out = append(out, row)
		}
	}
	return out
}

// Compile turns a descriptor into a predicate over rows of the schema.
// Unknown properties and unsupported operators fail the whole descriptor;
// unparsable values only neutralize their own filter.
func Compile[R any](desc *models.FilterDescriptor, schema *models.Schema[R]) (*Compiled[R], error) {
	if desc == nil {
		return &Compiled[R]{match: always[R]}, nil
	}

	connector := desc.Connector()
	filters := desc.Filters()

	preds := make([]Predicate[R], 0, len(filters))
	var warnings []error
	for _, f := range filters {
		pred, warning, err := compileFilter(f, schema)
		if err != nil {
			return nil, err
		}
		if warning != nil {
			logger.Log.WithFields(logrus.Fields{
				"property": f.Property,
				"operator": f.Operator.String(),
				"value":    f.Value,
			}).Warn("filter value cannot be parsed, filter will never match")
			warnings = append(warnings, warning)
		}
		preds = append(preds, pred)
	}

	return &Compiled[R]{
		match:    combine(connector, preds),
		Warnings: warnings,
	}, nil
}

// Validate checks that every filter resolves on the schema without building predicates
func Validate[R any](desc *models.FilterDescriptor, schema *models.Schema[R]) error {
	if desc == nil {
		return nil
	}
	for _, f := range desc.Filters() {
		if _, err := checkFilter(f, schema); err != nil {
			return err
		}
	}
	return nil
}

func combine[R any](connector models.FilterConnector, preds []Predicate[R]) Predicate[R] {
	// An empty filter list imposes no constraint regardless of connector
	if len(preds) == 0 {
		return always[R]
	}
	if len(preds) == 1 {
		return preds[0]
	}

	if connector == models.Or {
		return func(row R) bool {
			for _, p := range preds {
				if p(row) {
					return true
				}
			}
			return false
		}
	}
	return func(row R) bool {
		for _, p := range preds {
			if !p(row) {
				return false
			}
		}
		return true
	}
}

func always[R any](R) bool { return true }
func never[R any](R) bool  { return false }

// checkFilter resolves the property type and rejects operators the type cannot take
func checkFilter[R any](f models.PropertyFilter, schema *models.Schema[R]) (models.PropertyType, error) {
	typ, err := Resolve(schema, f.Property)
	if err != nil {
		return typ, err
	}
	unsupported := !f.Operator.Valid() ||
		(f.Operator.IsStringOnly() && typ != models.TypeString) ||
		(f.Operator.IsOrdering() && !typ.IsNumeric())
	if unsupported {
		return typ, &models.UnsupportedOperatorError{Property: f.Property, Operator: f.Operator, Type: typ}
	}
	return typ, nil
}

func compileFilter[R any](f models.PropertyFilter, schema *models.Schema[R]) (Predicate[R], error, error) {
	typ, err := checkFilter(f, schema)
	if err != nil {
		return nil, nil, err
	}
	prop, _ := schema.Lookup(f.Property)

	switch typ {
	case models.TypeInteger:
		target, err := ParseInteger(f.Value)
		if err != nil {
			return never[R], &models.ValueParseError{Property: f.Property, Value: f.Value, Type: typ, Err: err}, nil
		}
		return numericPredicate(f.Operator, func(row R) (int, bool) {
			return CompareInteger(prop.Get(row), target)
		}), nil, nil

	case models.TypeDecimal:
		target, err := ParseDecimal(f.Value)
		if err != nil {
			return never[R], &models.ValueParseError{Property: f.Property, Value: f.Value, Type: typ, Err: err}, nil
		}
		return numericPredicate(f.Operator, func(row R) (int, bool) {
			v, ok := DecimalValue(prop.Get(row))
			if !ok {
				return 0, false
			}
			return cmp.Compare(v, target), true
		}), nil, nil

	default:
		return stringPredicate(f.Operator, f.Value, func(row R) (string, bool) {
			return StringValue(prop.Get(row))
		}), nil, nil
	}
}

// numericPredicate applies op to the result of comparing a row value with the target
func numericPredicate[R any](op models.FilterOperator, compare func(R) (int, bool)) Predicate[R] {
	var test func(c int) bool
	switch op {
	case models.Equals:
		test = func(c int) bool { return c == 0 }
	case models.NotEquals:
		// null rows match NotEquals
		return func(row R) bool {
			c, ok := compare(row)
			return !ok || c != 0
		}
	case models.GreaterThan:
		test = func(c int) bool { return c > 0 }
	case models.GreaterThanOrEqualTo:
		test = func(c int) bool { return c >= 0 }
	case models.LessThan:
		test = func(c int) bool { return c < 0 }
	case models.LessThanOrEqualTo:
		test = func(c int) bool { return c <= 0 }
	default:
		return never[R]
	}
	return func(row R) bool {
		c, ok := compare(row)
		return ok && test(c)
	}
}

func stringPredicate[R any](op models.FilterOperator, target string, read func(R) (string, bool)) Predicate[R] {
	folded := strings.ToLower(target)
	switch op {
	case models.Equals:
		return func(row R) bool {
			v, ok := read(row)
			return ok && v == target
		}
	case models.NotEquals:
		return func(row R) bool {
			v, ok := read(row)
			return !ok || v != target
		}
	case models.Contains:
		return func(row R) bool {
			v, _ := read(row)
			return strings.Contains(strings.ToLower(v), folded)
		}
	case models.DoesNotContain:
		return func(row R) bool {
			v, _ := read(row)
			return !strings.Contains(strings.ToLower(v), folded)
		}
	case models.StartsWith:
		return func(row R) bool {
			v, _ := read(row)
			return strings.HasPrefix(strings.ToLower(v), folded)
		}
	case models.EndsWith:
		return func(row R) bool {
			v, _ := read(row)
			return strings.HasSuffix(strings.ToLower(v), folded)
		}
	default:
		return never[R]
	}
}

// ParseInteger parses a filter value for an Integer property
func ParseInteger(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

// ParseDecimal parses a filter value for a Decimal property
func ParseDecimal(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

// IntegerValue coerces a row value; ok is false for null or non-numeric values
// and for unsigned values above math.MaxInt64, which CompareInteger handles
func IntegerValue(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	if _, above := unsignedAbove(v); above {
		return 0, false
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CompareInteger compares a row value with n. Unsigned values above
// math.MaxInt64 compare greater than every n; ok is false for null or non-numeric values.
func CompareInteger(v any, n int64) (int, bool) {
	if _, above := unsignedAbove(v); above {
		return 1, true
	}
	x, ok := IntegerValue(v)
	if !ok {
		return 0, false
	}
	return cmp.Compare(x, n), true
}

// CompareIntegers orders two row values with nulls first, covering the whole
// int64 and uint64 ranges
func CompareIntegers(a, b any) int {
	ua, aboveA := unsignedAbove(a)
	ub, aboveB := unsignedAbove(b)
	switch {
	case aboveA && aboveB:
		return cmp.Compare(ua, ub)
	case aboveA:
		return 1
	case aboveB:
		return -1
	}

	x, okA := IntegerValue(a)
	y, okB := IntegerValue(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	default:
		return cmp.Compare(x, y)
	}
}

// unsignedAbove reports unsigned values that do not fit in an int64
func unsignedAbove(v any) (uint64, bool) {
	var u uint64
	switch x := v.(type) {
	case uint64:
		u = x
	case uint:
		u = uint64(x)
	case uintptr:
		u = uint64(x)
	default:
		return 0, false
	}
	return u, u > math.MaxInt64
}

// DecimalValue coerces a row value; ok is false for null or non-numeric values
func DecimalValue(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// StringValue renders a row value; ok is false for null
func StringValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v), true
	}
	return s, true
}

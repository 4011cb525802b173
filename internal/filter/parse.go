package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rebeliceyang/lazygrid/internal/models"
)

// Operator tokens, longest first so that "<=" wins over "<"
var operatorTokens = []struct {
	token string
	op    models.FilterOperator
}{
	{"!=", models.NotEquals},
	{"!~", models.DoesNotContain},
	{">=", models.GreaterThanOrEqualTo},
	{"<=", models.LessThanOrEqualTo},
	{"^=", models.StartsWith},
	{"$=", models.EndsWith},
	{"=", models.Equals},
	{"~", models.Contains},
	{">", models.GreaterThan},
	{"<", models.LessThan},
}

// ParseExpression parses a single filter expression
// Examples:
//   - "IntVal <= 20" → {IntVal, LessThanOrEqualTo, "20"}
//   - "name~ann" → {name, Contains, "ann"}
//   - `city = "New York"` → {city, Equals, "New York"}
//   - "title !~ draft" → {title, DoesNotContain, "draft"}
func ParseExpression(expr string) (models.PropertyFilter, error) {
	pos, token, op := findOperator(expr)
	if pos < 0 {
		return models.PropertyFilter{}, fmt.Errorf("no operator in filter expression %q", expr)
	}

	property := strings.TrimSpace(expr[:pos])
	if property == "" {
		return models.PropertyFilter{}, fmt.Errorf("missing property in filter expression %q", expr)
	}

	value := strings.TrimSpace(expr[pos+len(token):])
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		unquoted, err := strconv.Unquote(value)
		if err != nil {
			return models.PropertyFilter{}, fmt.Errorf("invalid quoted value in %q: %w", expr, err)
		}
		value = unquoted
	}

	return models.PropertyFilter{Property: property, Operator: op, Value: value}, nil
}

// ParseExpressions parses every expression into a descriptor joined by connector
func ParseExpressions(connector models.FilterConnector, exprs ...string) (*models.FilterDescriptor, error) {
	filters := make([]models.PropertyFilter, 0, len(exprs))
	for _, expr := range exprs {
		f, err := ParseExpression(expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return models.NewFilterDescriptor(connector, filters...), nil
}

// FormatExpression renders a filter back into expression syntax
func FormatExpression(f models.PropertyFilter) string {
	for _, t := range operatorTokens {
		if t.op == f.Operator {
			value := f.Value
			if value == "" || strings.ContainsAny(value, " \t\"") {
				value = strconv.Quote(value)
			}
			return f.Property + " " + t.token + " " + value
		}
	}
	return f.String()
}

// findOperator returns the leftmost operator, preferring the longest token at that position
func findOperator(expr string) (int, string, models.FilterOperator) {
	for i := 0; i < len(expr); i++ {
		for _, t := range operatorTokens {
			if strings.HasPrefix(expr[i:], t.token) {
				return i, t.token, t.op
			}
		}
	}
	return -1, "", 0
}

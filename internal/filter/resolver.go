package filter

import (
	"strings"

	"github.com/rebeliceyang/lazygrid/internal/models"
)

// Resolve classifies a property of the schema for comparison purposes
func Resolve[R any](schema *models.Schema[R], property string) (models.PropertyType, error) {
	p, ok := schema.Lookup(property)
	if !ok {
		return models.TypeString, &models.UnknownPropertyError{Property: property}
	}
	return ClassifyType(p.Declared), nil
}

// ClassifyType maps a declared type name (Go or SQL) to Integer, Decimal or String
func ClassifyType(declared string) models.PropertyType {
	t := strings.ToLower(unwrapNullable(strings.TrimSpace(declared)))

	// Drop a precision suffix such as numeric(10,2) or varchar(32)
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	switch t {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"byte", "rune", "integer", "bigint", "smallint", "tinyint", "mediumint",
		"int2", "int4", "serial", "bigserial", "smallserial", "long", "short":
		return models.TypeInteger
	case "float32", "float64", "float", "float4", "float8", "double", "double precision",
		"real", "decimal", "numeric", "money":
		return models.TypeDecimal
	}

	// Multi-word names such as "unsigned big int" or "double precision"
	for _, word := range strings.Fields(t) {
		switch word {
		case "int", "integer", "bigint", "smallint", "tinyint":
			return models.TypeInteger
		case "numeric", "decimal", "real", "double", "float":
			return models.TypeDecimal
		}
	}
	return models.TypeString
}

func unwrapNullable(t string) string {
	for {
		switch {
		case strings.HasPrefix(t, "*"):
			t = t[1:]
		case strings.HasSuffix(t, "?"):
			t = t[:len(t)-1]
		case strings.HasPrefix(t, "sql.Null"):
			t = strings.TrimPrefix(t, "sql.Null")
		case strings.HasPrefix(strings.ToLower(t), "nullable(") && strings.HasSuffix(t, ")"):
			t = t[len("nullable(") : len(t)-1]
		default:
			return t
		}
	}
}

// OperatorsForType returns the operators a property of the given type accepts
func OperatorsForType(typ models.PropertyType) []models.FilterOperator {
	if typ.IsNumeric() {
		return []models.FilterOperator{
			models.Equals, models.NotEquals,
			models.GreaterThan, models.GreaterThanOrEqualTo,
			models.LessThan, models.LessThanOrEqualTo,
		}
	}
	return []models.FilterOperator{
		models.Equals, models.NotEquals,
		models.Contains, models.DoesNotContain,
		models.StartsWith, models.EndsWith,
	}
}

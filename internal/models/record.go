package models

import (
	"fmt"
	"slices"
	"strings"
)

// Record is a row whose properties are only known at run time,
// e.g. rows read from a SQL table or a JSON endpoint.
type Record map[string]any

// ColumnInfo represents column metadata for a table
type ColumnInfo struct {
	Name       string `json:"name" yaml:"name"`
	DataType   string `json:"dataType" yaml:"data_type"`
	Nullable   bool   `json:"nullable" yaml:"nullable"`
	PrimaryKey bool   `json:"primaryKey" yaml:"primary_key"`
}

// RecordProperty builds a property that reads and writes a Record key
func RecordProperty(name, declared string) Property[Record] {
	return Property[Record]{
		Name:     name,
		Declared: declared,
		Get: func(r Record) any {
			return r[name]
		},
		Set: func(r *Record, value any) error {
			if *r == nil {
				*r = Record{}
			}
			(*r)[name] = value
			return nil
		},
	}
}

// NewRecordSchema builds a schema from column metadata
func NewRecordSchema(columns []ColumnInfo) *Schema[Record] {
	props := make([]Property[Record], len(columns))
	for i, col := range columns {
		declared := col.DataType
		if col.Nullable {
			declared = "*" + declared
		}
		props[i] = RecordProperty(col.Name, declared)
	}
	return NewSchema(props...)
}

// InferColumns derives column metadata from decoded records. Columns are
// sorted by name; the declared type is the Go type of the first non-null value.
func InferColumns(rows []Record) []ColumnInfo {
	index := make(map[string]int)
	var columns []ColumnInfo

	for _, row := range rows {
		for name, value := range row {
			i, ok := index[name]
			if !ok {
				i = len(columns)
				index[name] = i
				columns = append(columns, ColumnInfo{Name: name})
			}
			if value == nil {
				columns[i].Nullable = true
			} else if columns[i].DataType == "" {
				columns[i].DataType = fmt.Sprintf("%T", value)
			}
		}
	}

	for i := range columns {
		if columns[i].DataType == "" {
			columns[i].DataType = "string"
		}
	}
	// a key missing from some rows reads as null there
	for i := range columns {
		for _, row := range rows {
			if _, ok := row[columns[i].Name]; !ok {
				columns[i].Nullable = true
				break
			}
		}
	}

	slices.SortFunc(columns, func(a, b ColumnInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return columns
}

// TableInfo names a table a SQL provider can serve
type TableInfo struct {
	Name     string `json:"name" yaml:"name"`
	RowCount int64  `json:"rowCount" yaml:"row_count"` // exact for SQLite, an estimate for PostgreSQL
}

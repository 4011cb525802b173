package models

import (
	"fmt"
)

// PropertyType is the coarse comparison class of a row property
type PropertyType int

const (
	TypeString PropertyType = iota
	TypeInteger
	TypeDecimal
)

func (t PropertyType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeInteger:
		return "Integer"
	case TypeDecimal:
		return "Decimal"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// IsNumeric reports whether values are compared numerically
func (t PropertyType) IsNumeric() bool {
	return t == TypeInteger || t == TypeDecimal
}

// RequestParameters describes a single page fetch
type RequestParameters struct {
	Offset            int
	Length            int
	OrderBy           string
	OrderByDescending bool
	SearchQuery       string
	Filter            *FilterDescriptor
}

// Validate checks the offset and length bounds
func (p RequestParameters) Validate() error {
	if p.Offset < 0 {
		return fmt.Errorf("%w: offset %d is negative", ErrInvalidRequest, p.Offset)
	}
	if p.Length <= 0 {
		return fmt.Errorf("%w: length %d must be positive", ErrInvalidRequest, p.Length)
	}
	return nil
}

// HasFilter reports whether the request carries at least one filter
func (p RequestParameters) HasFilter() bool {
	return p.Filter != nil && p.Filter.Len() > 0
}

// DataPageResult is one page of rows plus the count under the current filter and search
type DataPageResult[R any] struct {
	Data       []R `json:"data"`
	TotalCount int `json:"totalCount"`
}

// LoaderState is the state of a paged loader
type LoaderState int

const (
	StateIdle LoaderState = iota
	StateLoading
	StateError
)

func (s LoaderState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

package models

import (
	"errors"
	"fmt"
)

// Common errors returned by the grid packages.
var (
	// ErrUnknownProperty is matched by every UnknownPropertyError.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrUnsupportedOperator is matched by every UnsupportedOperatorError.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrValueParse is matched by every ValueParseError.
	ErrValueParse = errors.New("filter value cannot be parsed")

	// ErrInvalidRequest is returned when request parameters are out of range.
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNoSource is returned when a loader has not been initialized.
	ErrNoSource = errors.New("no data source")
)

// UnknownPropertyError is returned when a filter or sort names a property
// that is absent from the row schema.
type UnknownPropertyError struct {
	Property string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("unknown property %q", e.Property)
}

func (e *UnknownPropertyError) Is(target error) bool {
	return target == ErrUnknownProperty
}

// UnsupportedOperatorError is returned when an operator cannot be applied
// to the resolved type of a property.
type UnsupportedOperatorError struct {
	Property string
	Operator FilterOperator
	Type     PropertyType
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator %s is not supported on %s property %q", e.Operator, e.Type, e.Property)
}

func (e *UnsupportedOperatorError) Is(target error) bool {
	return target == ErrUnsupportedOperator
}

// ValueParseError is a soft error: the affected filter never matches.
type ValueParseError struct {
	Property string
	Value    string
	Type     PropertyType
	Err      error
}

func (e *ValueParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s for property %q: %v", e.Value, e.Type, e.Property, e.Err)
}

func (e *ValueParseError) Unwrap() error {
	return e.Err
}

func (e *ValueParseError) Is(target error) bool {
	return target == ErrValueParse
}

// FetchError wraps any failure reported by a data source.
type FetchError struct {
	Offset int
	Length int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch rows [%d, +%d): %v", e.Offset, e.Length, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

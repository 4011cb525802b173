package models

import (
	"fmt"
)

// Property is a named, typed accessor pair on a row type.
// Get returns nil when the value is null.
type Property[R any] struct {
	Name     string
	Declared string
	Get      func(R) any
	Set      func(*R, any) error
}

// Schema describes the properties of a row type by name
type Schema[R any] struct {
	props []Property[R]
	index map[string]int
}

// NewSchema creates a schema. Later properties with a duplicate name replace earlier ones.
func NewSchema[R any](props ...Property[R]) *Schema[R] {
	s := &Schema[R]{index: make(map[string]int, len(props))}
	for _, p := range props {
		if i, ok := s.index[p.Name]; ok {
			s.props[i] = p
			continue
		}
		s.index[p.Name] = len(s.props)
		s.props = append(s.props, p)
	}
	return s
}

// Lookup finds a property by name
func (s *Schema[R]) Lookup(name string) (Property[R], bool) {
	i, ok := s.index[name]
	if !ok {
		return Property[R]{}, false
	}
	return s.props[i], true
}

// Properties returns the properties in declaration order
func (s *Schema[R]) Properties() []Property[R] {
	return append([]Property[R](nil), s.props...)
}

// Names returns the property names in declaration order
func (s *Schema[R]) Names() []string {
	names := make([]string, len(s.props))
	for i, p := range s.props {
		names[i] = p.Name
	}
	return names
}

// Value reads a property by name
func (s *Schema[R]) Value(row R, name string) (any, error) {
	p, ok := s.Lookup(name)
	if !ok {
		return nil, &UnknownPropertyError{Property: name}
	}
	return p.Get(row), nil
}

// SetValue writes a property by name
func (s *Schema[R]) SetValue(row *R, name string, value any) error {
	p, ok := s.Lookup(name)
	if !ok {
		return &UnknownPropertyError{Property: name}
	}
	if p.Set == nil {
		return fmt.Errorf("property %q is read-only", name)
	}
	return p.Set(row, value)
}

// Field builds a property from typed accessors. set may be nil for read-only properties.
func Field[R, V any](name string, get func(R) V, set func(*R, V)) Property[R] {
	p := Property[R]{
		Name:     name,
		Declared: declaredTypeName[V](),
		Get:      func(r R) any { return get(r) },
	}
	if set != nil {
		p.Set = func(r *R, value any) error {
			v, ok := value.(V)
			if !ok {
				return fmt.Errorf("property %q expects %s, got %T", name, p.Declared, value)
			}
			set(r, v)
			return nil
		}
	}
	return p
}

// NullableField builds a property over a pointer value; a nil pointer reads as null
func NullableField[R, V any](name string, get func(R) *V, set func(*R, *V)) Property[R] {
	p := Property[R]{
		Name:     name,
		Declared: "*" + declaredTypeName[V](),
		Get: func(r R) any {
			v := get(r)
			if v == nil {
				return nil
			}
			return *v
		},
	}
	if set != nil {
		p.Set = func(r *R, value any) error {
			switch v := value.(type) {
			case nil:
				set(r, nil)
			case V:
				set(r, &v)
			case *V:
				set(r, v)
			default:
				return fmt.Errorf("property %q expects %s, got %T", name, p.Declared, value)
			}
			return nil
		}
	}
	return p
}

func declaredTypeName[V any]() string {
	var zero V
	return fmt.Sprintf("%T", zero)
}

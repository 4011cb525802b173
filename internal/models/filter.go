package models

import (
	"fmt"
	"sync"
)

// FilterOperator represents a filter comparison operator
type FilterOperator int

const (
	Equals FilterOperator = iota
	NotEquals
	Contains
	DoesNotContain
	StartsWith
	EndsWith
	GreaterThan
	GreaterThanOrEqualTo
	LessThan
	LessThanOrEqualTo
)

var operatorNames = map[FilterOperator]string{
	Equals:               "Equals",
	NotEquals:            "NotEquals",
	Contains:             "Contains",
	DoesNotContain:       "DoesNotContain",
	StartsWith:           "StartsWith",
	EndsWith:             "EndsWith",
	GreaterThan:          "GreaterThan",
	GreaterThanOrEqualTo: "GreaterThanOrEqualTo",
	LessThan:             "LessThan",
	LessThanOrEqualTo:    "LessThanOrEqualTo",
}

func (op FilterOperator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(op))
}

// Valid reports whether op is one of the known operators
func (op FilterOperator) Valid() bool {
	_, ok := operatorNames[op]
	return ok
}

// IsStringOnly reports whether the operator only applies to String properties
func (op FilterOperator) IsStringOnly() bool {
	switch op {
	case Contains, DoesNotContain, StartsWith, EndsWith:
		return true
	default:
		return false
	}
}

// IsOrdering reports whether the operator is an ordered comparison
func (op FilterOperator) IsOrdering() bool {
	switch op {
	case GreaterThan, GreaterThanOrEqualTo, LessThan, LessThanOrEqualTo:
		return true
	default:
		return false
	}
}

// ParseFilterOperator looks an operator up by name
func ParseFilterOperator(name string) (FilterOperator, error) {
	for op, n := range operatorNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown filter operator: %s", name)
}

// FilterConnector joins all filters of a descriptor
type FilterConnector int

const (
	And FilterConnector = iota
	Or
)

func (c FilterConnector) String() string {
	switch c {
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// PropertyFilter is a single property/operator/value condition
type PropertyFilter struct {
	Property string
	Operator FilterOperator
	Value    string
}

func (f PropertyFilter) String() string {
	return fmt.Sprintf("%s %s %q", f.Property, f.Operator, f.Value)
}

// FilterChange describes what happened to a descriptor
type FilterChange int

const (
	FilterAdded FilterChange = iota
	FilterRemoved
	FilterMoved
	FilterUpdated
	ConnectorChanged
	FiltersCleared
)

// FilterObserver is notified synchronously after every structural change
type FilterObserver func(change FilterChange)

// FilterDescriptor is the observable filter state of a grid.
// It is mutated in place and never replaced, so subscribers stay valid.
type FilterDescriptor struct {
	mu        sync.Mutex
	connector FilterConnector
	filters   []PropertyFilter

	nextID    int
	observers map[int]FilterObserver
	order     []int
}

// NewFilterDescriptor creates a descriptor with the given connector and filters
func NewFilterDescriptor(connector FilterConnector, filters ...PropertyFilter) *FilterDescriptor {
	return &FilterDescriptor{
		connector: connector,
		filters:   append([]PropertyFilter(nil), filters...),
	}
}

// Connector returns the current connector
func (d *FilterDescriptor) Connector() FilterConnector {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connector
}

// Filters returns a copy of the filters in insertion order
func (d *FilterDescriptor) Filters() []PropertyFilter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]PropertyFilter(nil), d.filters...)
}

// Len returns the number of filters
func (d *FilterDescriptor) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.filters)
}

// Snapshot returns a detached copy that carries no observers
func (d *FilterDescriptor) Snapshot() *FilterDescriptor {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return NewFilterDescriptor(d.connector, d.filters...)
}

// HasProperty reports whether any filter references the property
func (d *FilterDescriptor) HasProperty(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.filters {
		if f.Property == name {
			return true
		}
	}
	return false
}

// Add appends a filter
func (d *FilterDescriptor) Add(f PropertyFilter) {
	d.mu.Lock()
	d.filters = append(d.filters, f)
	d.mu.Unlock()
	d.notify(FilterAdded)
}

// Remove deletes the filter at index i
func (d *FilterDescriptor) Remove(i int) error {
	d.mu.Lock()
	if i < 0 || i >= len(d.filters) {
		d.mu.Unlock()
		return fmt.Errorf("filter index %d out of range", i)
	}
	d.filters = append(d.filters[:i], d.filters[i+1:]...)
	d.mu.Unlock()
	d.notify(FilterRemoved)
	return nil
}

// Move moves the filter at index from to index to
func (d *FilterDescriptor) Move(from, to int) error {
	d.mu.Lock()
	n := len(d.filters)
	if from < 0 || from >= n || to < 0 || to >= n {
		d.mu.Unlock()
		return fmt.Errorf("filter move %d -> %d out of range", from, to)
	}
	if from == to {
		d.mu.Unlock()
		return nil
	}
	f := d.filters[from]
	d.filters = append(d.filters[:from], d.filters[from+1:]...)
	d.filters = append(d.filters[:to], append([]PropertyFilter{f}, d.filters[to:]...)...)
	d.mu.Unlock()
	d.notify(FilterMoved)
	return nil
}

// Update replaces the filter at index i. No notification is sent if nothing changed.
func (d *FilterDescriptor) Update(i int, f PropertyFilter) error {
	d.mu.Lock()
	if i < 0 || i >= len(d.filters) {
		d.mu.Unlock()
		return fmt.Errorf("filter index %d out of range", i)
	}
	if d.filters[i] == f {
		d.mu.Unlock()
		return nil
	}
	d.filters[i] = f
	d.mu.Unlock()
	d.notify(FilterUpdated)
	return nil
}

// SetConnector changes the connector
func (d *FilterDescriptor) SetConnector(c FilterConnector) {
	d.mu.Lock()
	if d.connector == c {
		d.mu.Unlock()
		return
	}
	d.connector = c
	d.mu.Unlock()
	d.notify(ConnectorChanged)
}

// Clear removes all filters
func (d *FilterDescriptor) Clear() {
	d.mu.Lock()
	if len(d.filters) == 0 {
		d.mu.Unlock()
		return
	}
	d.filters = nil
	d.mu.Unlock()
	d.notify(FiltersCleared)
}

// Subscribe registers an observer and returns the func that unregisters it
func (d *FilterDescriptor) Subscribe(fn FilterObserver) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.observers == nil {
		d.observers = make(map[int]FilterObserver)
	}
	id := d.nextID
	d.nextID++
	d.observers[id] = fn
	d.order = append(d.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.observers, id)
			for i, o := range d.order {
				if o == id {
					d.order = append(d.order[:i], d.order[i+1:]...)
					break
				}
			}
		})
	}
}

// notify calls observers outside the lock so they may read the descriptor
func (d *FilterDescriptor) notify(change FilterChange) {
	d.mu.Lock()
	observers := make([]FilterObserver, 0, len(d.order))
	for _, id := range d.order {
		observers = append(observers, d.observers[id])
	}
	d.mu.Unlock()

	for _, fn := range observers {
		fn(change)
	}
}

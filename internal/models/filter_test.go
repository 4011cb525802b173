package models

import (
	"errors"
	"reflect"
	"testing"
)

func TestFilterDescriptorMutations(t *testing.T) {
	d := NewFilterDescriptor(And)

	var changes []FilterChange
	d.Subscribe(func(c FilterChange) { changes = append(changes, c) })

	a := PropertyFilter{Property: "a", Operator: Equals, Value: "1"}
	b := PropertyFilter{Property: "b", Operator: Contains, Value: "x"}
	c := PropertyFilter{Property: "c", Operator: LessThan, Value: "3"}

	d.Add(a)
	d.Add(b)
	d.Add(c)

	if err := d.Move(2, 0); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if got := d.Filters(); !reflect.DeepEqual(got, []PropertyFilter{c, a, b}) {
		t.Errorf("expected [c a b] after move, got %v", got)
	}

	if err := d.Remove(1); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if got := d.Filters(); !reflect.DeepEqual(got, []PropertyFilter{c, b}) {
		t.Errorf("expected [c b] after remove, got %v", got)
	}

	updated := b
	updated.Value = "y"
	if err := d.Update(1, updated); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	// unchanged update is silent
	if err := d.Update(1, updated); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	d.SetConnector(Or)
	d.SetConnector(Or)
	d.Clear()
	d.Clear()

	expected := []FilterChange{FilterAdded, FilterAdded, FilterAdded, FilterMoved, FilterRemoved, FilterUpdated, ConnectorChanged, FiltersCleared}
	if !reflect.DeepEqual(changes, expected) {
		t.Errorf("expected changes %v, got %v", expected, changes)
	}
	if d.Len() != 0 {
		t.Errorf("expected empty descriptor, got %d filters", d.Len())
	}
}

func TestFilterDescriptorOutOfRange(t *testing.T) {
	d := NewFilterDescriptor(And, PropertyFilter{Property: "a"})

	notified := false
	d.Subscribe(func(FilterChange) { notified = true })

	if err := d.Remove(1); err == nil {
		t.Error("expected error removing index 1")
	}
	if err := d.Move(0, 3); err == nil {
		t.Error("expected error moving to index 3")
	}
	if err := d.Update(-1, PropertyFilter{}); err == nil {
		t.Error("expected error updating index -1")
	}
	if notified {
		t.Error("failed mutations must not notify")
	}
}

func TestFilterDescriptorUnsubscribe(t *testing.T) {
	d := NewFilterDescriptor(And)

	var first, second int
	unsubscribe := d.Subscribe(func(FilterChange) { first++ })
	d.Subscribe(func(FilterChange) { second++ })

	d.Add(PropertyFilter{Property: "a"})
	unsubscribe()
	unsubscribe()
	d.Add(PropertyFilter{Property: "b"})

	if first != 1 || second != 2 {
		t.Errorf("expected first=1 second=2, got first=%d second=%d", first, second)
	}
}

func TestFilterDescriptorObserverCanRead(t *testing.T) {
	d := NewFilterDescriptor(And)

	var seen int
	d.Subscribe(func(FilterChange) { seen = d.Len() })
	d.Add(PropertyFilter{Property: "a"})

	if seen != 1 {
		t.Errorf("expected observer to see 1 filter, got %d", seen)
	}
}

func TestFilterDescriptorSnapshot(t *testing.T) {
	var nilDesc *FilterDescriptor
	if nilDesc.Snapshot() != nil {
		t.Error("expected nil snapshot of nil descriptor")
	}

	d := NewFilterDescriptor(Or, PropertyFilter{Property: "a", Operator: Equals, Value: "1"})
	snap := d.Snapshot()
	d.Add(PropertyFilter{Property: "b"})

	if snap.Len() != 1 || snap.Connector() != Or {
		t.Errorf("snapshot should be detached, got %d filters connector %s", snap.Len(), snap.Connector())
	}
	if !d.HasProperty("b") || snap.HasProperty("b") {
		t.Error("HasProperty mismatch between descriptor and snapshot")
	}
}

func TestFilterOperatorNames(t *testing.T) {
	for op := Equals; op <= LessThanOrEqualTo; op++ {
		parsed, err := ParseFilterOperator(op.String())
		if err != nil {
			t.Errorf("ParseFilterOperator(%q) failed: %v", op.String(), err)
			continue
		}
		if parsed != op {
			t.Errorf("expected %s, got %s", op, parsed)
		}
	}

	if _, err := ParseFilterOperator("Like"); err == nil {
		t.Error("expected error for unknown operator")
	}
	if FilterOperator(42).Valid() {
		t.Error("expected operator 42 to be invalid")
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	var err error = &UnknownPropertyError{Property: "x"}
	if !errors.Is(err, ErrUnknownProperty) {
		t.Error("UnknownPropertyError should match ErrUnknownProperty")
	}

	err = &UnsupportedOperatorError{Property: "x", Operator: Contains, Type: TypeInteger}
	if !errors.Is(err, ErrUnsupportedOperator) {
		t.Error("UnsupportedOperatorError should match ErrUnsupportedOperator")
	}

	cause := errors.New("boom")
	err = &FetchError{Offset: 25, Length: 25, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("FetchError should unwrap to its cause")
	}

	if err := (RequestParameters{Offset: 0, Length: 0}).Validate(); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

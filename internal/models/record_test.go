package models

import (
	"reflect"
	"testing"
)

func TestInferColumns(t *testing.T) {
	rows := []Record{
		{"name": "Ann", "age": float64(31), "nickname": nil},
		{"name": "Bo", "age": float64(28), "nickname": "b", "email": "bo@example.com"},
	}

	got := InferColumns(rows)
	expected := []ColumnInfo{
		{Name: "age", DataType: "float64"},
		{Name: "email", DataType: "string", Nullable: true},
		{Name: "name", DataType: "string"},
		{Name: "nickname", DataType: "string", Nullable: true},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %+v, got %+v", expected, got)
	}
}

func TestRecordSchema(t *testing.T) {
	schema := NewRecordSchema([]ColumnInfo{
		{Name: "id", DataType: "integer"},
		{Name: "note", DataType: "text", Nullable: true},
	})

	if names := schema.Names(); !reflect.DeepEqual(names, []string{"id", "note"}) {
		t.Errorf("expected [id note], got %v", names)
	}

	p, ok := schema.Lookup("note")
	if !ok {
		t.Fatal("expected note property")
	}
	if p.Declared != "*text" {
		t.Errorf("expected *text, got %s", p.Declared)
	}

	var r Record
	if err := schema.SetValue(&r, "note", "hi"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	v, err := schema.Value(r, "note")
	if err != nil || v != "hi" {
		t.Errorf("expected hi, got %v (%v)", v, err)
	}

	if _, err := schema.Value(r, "missing"); err == nil {
		t.Error("expected error for missing property")
	}
}

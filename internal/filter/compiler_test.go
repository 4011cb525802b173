package filter

import (
	"errors"
	"testing"

	"github.com/rebeliceyang/lazygrid/internal/logger"
	"github.com/rebeliceyang/lazygrid/internal/models"
)

type testRow struct {
	IntVal    int
	StringVal string
	Price     float64
	Note      *string
}

func testSchema() *models.Schema[testRow] {
	return models.NewSchema(
		models.Field("IntVal", func(r testRow) int { return r.IntVal }, func(r *testRow, v int) { r.IntVal = v }),
		models.Field("StringVal", func(r testRow) string { return r.StringVal }, nil),
		models.Field("Price", func(r testRow) float64 { return r.Price }, nil),
		models.NullableField("Note", func(r testRow) *string { return r.Note }, nil),
	)
}

func strPtr(s string) *string { return &s }

func compile(t *testing.T, connector models.FilterConnector, filters ...models.PropertyFilter) *Compiled[testRow] {
	t.Helper()
	logger.Discard()
	c, err := Compile(models.NewFilterDescriptor(connector, filters...), testSchema())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return c
}

func intVals(rows []testRow) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.IntVal
	}
	return out
}

func TestCompile_EmptyDescriptorAcceptsEverything(t *testing.T) {
	rows := []testRow{{IntVal: 1}, {StringVal: "x"}, {}}

	for _, connector := range []models.FilterConnector{models.And, models.Or} {
		c := compile(t, connector)
		for _, row := range rows {
			if !c.Match(row) {
				t.Errorf("%s: expected empty filter to accept %+v", connector, row)
			}
		}
	}

	c, err := Compile[testRow](nil, testSchema())
	if err != nil {
		t.Fatalf("Compile(nil) failed: %v", err)
	}
	if !c.Match(testRow{}) {
		t.Error("expected nil descriptor to accept every row")
	}
}

func TestCompile_IntLessThan(t *testing.T) {
	rows := []testRow{{IntVal: 40}, {IntVal: 20}, {IntVal: 19}}
	c := compile(t, models.And, models.PropertyFilter{Property: "IntVal", Operator: models.LessThan, Value: "20"})

	got := intVals(c.Apply(rows))
	if len(got) != 1 || got[0] != 19 {
		t.Errorf("expected [19], got %v", got)
	}
}

func TestCompile_IntLessThanOrEqualTo(t *testing.T) {
	rows := []testRow{{IntVal: 40}, {IntVal: 20}, {IntVal: 19}}
	c := compile(t, models.And, models.PropertyFilter{Property: "IntVal", Operator: models.LessThanOrEqualTo, Value: "20"})

	got := intVals(c.Apply(rows))
	if len(got) != 2 || got[0] != 20 || got[1] != 19 {
		t.Errorf("expected [20 19], got %v", got)
	}
}

func TestCompile_StringDoesNotContain(t *testing.T) {
	rows := []testRow{{StringVal: "barfoobar"}, {StringVal: "foobar"}, {StringVal: "unit test"}}
	c := compile(t, models.And, models.PropertyFilter{Property: "StringVal", Operator: models.DoesNotContain, Value: "foo"})

	got := c.Apply(rows)
	if len(got) != 1 || got[0].StringVal != "unit test" {
		t.Errorf("expected only 'unit test', got %+v", got)
	}
}

func TestCompile_DoesNotContainNegatesContains(t *testing.T) {
	rows := []testRow{
		{Note: strPtr("Foo fighters")},
		{Note: strPtr("bar")},
		{Note: strPtr("")},
		{Note: nil},
	}
	for _, value := range []string{"foo", "", "BAR", "zzz"} {
		contains := compile(t, models.And, models.PropertyFilter{Property: "Note", Operator: models.Contains, Value: value})
		notContains := compile(t, models.And, models.PropertyFilter{Property: "Note", Operator: models.DoesNotContain, Value: value})
		for _, row := range rows {
			if contains.Match(row) == notContains.Match(row) {
				t.Errorf("value %q row %v: Contains and DoesNotContain agree", value, row.Note)
			}
		}
	}
}

func TestCompile_LessThanVersusLessThanOrEqualTo(t *testing.T) {
	lt := compile(t, models.And, models.PropertyFilter{Property: "IntVal", Operator: models.LessThan, Value: "5"})
	lte := compile(t, models.And, models.PropertyFilter{Property: "IntVal", Operator: models.LessThanOrEqualTo, Value: "5"})

	for i := -3; i <= 10; i++ {
		row := testRow{IntVal: i}
		if i == 5 {
			if lt.Match(row) || !lte.Match(row) {
				t.Errorf("at threshold only LessThanOrEqualTo should accept")
			}
			continue
		}
		if lt.Match(row) != lte.Match(row) {
			t.Errorf("IntVal %d: LessThan and LessThanOrEqualTo disagree", i)
		}
	}
}

func TestCompile_StringOperatorsAreCaseInsensitive(t *testing.T) {
	row := testRow{StringVal: "Hello World"}
	cases := []struct {
		op    models.FilterOperator
		value string
		want  bool
	}{
		{models.Contains, "LO wo", true},
		{models.StartsWith, "hello", true},
		{models.EndsWith, "WORLD", true},
		{models.StartsWith, "world", false},
		{models.Equals, "hello world", false},
		{models.Equals, "Hello World", true},
		{models.NotEquals, "hello world", true},
	}
	for _, tc := range cases {
		c := compile(t, models.And, models.PropertyFilter{Property: "StringVal", Operator: tc.op, Value: tc.value})
		if got := c.Match(row); got != tc.want {
			t.Errorf("%s %q: expected %v, got %v", tc.op, tc.value, tc.want, got)
		}
	}
}

func TestCompile_NullSemantics(t *testing.T) {
	row := testRow{Note: nil}

	if compile(t, models.And, models.PropertyFilter{Property: "Note", Operator: models.Equals, Value: ""}).Match(row) {
		t.Error("null should not match Equals")
	}
	if !compile(t, models.And, models.PropertyFilter{Property: "Note", Operator: models.NotEquals, Value: "x"}).Match(row) {
		t.Error("null should match NotEquals")
	}
	if !compile(t, models.And, models.PropertyFilter{Property: "Note", Operator: models.StartsWith, Value: ""}).Match(row) {
		t.Error("null should behave as empty string for StartsWith")
	}
}

func TestCompile_DecimalComparison(t *testing.T) {
	rows := []testRow{{Price: 9.99}, {Price: 10}, {Price: 10.5}}
	c := compile(t, models.And, models.PropertyFilter{Property: "Price", Operator: models.GreaterThanOrEqualTo, Value: "10.0"})

	got := c.Apply(rows)
	if len(got) != 2 || got[0].Price != 10 || got[1].Price != 10.5 {
		t.Errorf("expected [10 10.5], got %+v", got)
	}
}

func TestCompile_Connectors(t *testing.T) {
	rows := []testRow{
		{IntVal: 1, StringVal: "a"},
		{IntVal: 2, StringVal: "b"},
		{IntVal: 3, StringVal: "a"},
	}
	filters := []models.PropertyFilter{
		{Property: "IntVal", Operator: models.GreaterThan, Value: "1"},
		{Property: "StringVal", Operator: models.Equals, Value: "a"},
	}

	and := intVals(compile(t, models.And, filters...).Apply(rows))
	if len(and) != 1 || and[0] != 3 {
		t.Errorf("AND: expected [3], got %v", and)
	}

	or := intVals(compile(t, models.Or, filters...).Apply(rows))
	if len(or) != 3 {
		t.Errorf("OR: expected all rows, got %v", or)
	}
}

func TestCompile_UnparsableValueNeverMatches(t *testing.T) {
	c := compile(t, models.Or,
		models.PropertyFilter{Property: "IntVal", Operator: models.NotEquals, Value: "twenty"},
		models.PropertyFilter{Property: "StringVal", Operator: models.Equals, Value: "keep"},
	)

	if len(c.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(c.Warnings))
	}
	if !errors.Is(c.Warnings[0], models.ErrValueParse) {
		t.Errorf("expected ValueParseError, got %v", c.Warnings[0])
	}

	if c.Match(testRow{IntVal: 5}) {
		t.Error("neutralized filter should never match")
	}
	if !c.Match(testRow{StringVal: "keep"}) {
		t.Error("other filters should still be evaluated")
	}
}

func TestCompile_UnknownProperty(t *testing.T) {
	desc := models.NewFilterDescriptor(models.And, models.PropertyFilter{Property: "Missing", Operator: models.Equals, Value: "1"})

	_, err := Compile(desc, testSchema())
	var unknown *models.UnknownPropertyError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownPropertyError, got %v", err)
	}
	if unknown.Property != "Missing" {
		t.Errorf("expected property 'Missing', got %q", unknown.Property)
	}
	if err := Validate(desc, testSchema()); !errors.Is(err, models.ErrUnknownProperty) {
		t.Errorf("Validate: expected ErrUnknownProperty, got %v", err)
	}
}

func TestCompile_UnsupportedOperator(t *testing.T) {
	cases := []models.PropertyFilter{
		{Property: "IntVal", Operator: models.Contains, Value: "1"},
		{Property: "Price", Operator: models.EndsWith, Value: "9"},
		{Property: "StringVal", Operator: models.GreaterThan, Value: "a"},
		{Property: "StringVal", Operator: models.FilterOperator(99), Value: "a"},
	}
	for _, f := range cases {
		_, err := Compile(models.NewFilterDescriptor(models.And, f), testSchema())
		if !errors.Is(err, models.ErrUnsupportedOperator) {
			t.Errorf("%s: expected ErrUnsupportedOperator, got %v", f, err)
		}
	}
}

func TestCompile_RecordRows(t *testing.T) {
	schema := models.NewRecordSchema([]models.ColumnInfo{
		{Name: "id", DataType: "bigint"},
		{Name: "score", DataType: "numeric(10,2)", Nullable: true},
		{Name: "name", DataType: "text"},
	})
	rows := []models.Record{
		{"id": int64(1), "score": "12.50", "name": "ann"},
		{"id": int32(2), "score": nil, "name": "bob"},
		{"id": "n/a", "score": 3.25, "name": "cid"},
	}

	logger.Discard()
	c, err := Compile(models.NewFilterDescriptor(models.And,
		models.PropertyFilter{Property: "id", Operator: models.GreaterThanOrEqualTo, Value: "1"},
		models.PropertyFilter{Property: "score", Operator: models.LessThan, Value: "20"},
	), schema)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	got := c.Apply(rows)
	if len(got) != 1 || got[0]["name"] != "ann" {
		t.Errorf("expected only ann (bob is null, cid id is not numeric), got %v", got)
	}
}

func TestCompile_UnsignedAboveInt64Range(t *testing.T) {
	type counter struct {
		Hits uint64
	}
	schema := models.NewSchema(models.Field("Hits", func(r counter) uint64 { return r.Hits }, nil))
	rows := []counter{{Hits: 1 << 63}, {Hits: 5}, {Hits: 0}}

	logger.Discard()
	c, err := Compile(models.NewFilterDescriptor(models.And,
		models.PropertyFilter{Property: "Hits", Operator: models.GreaterThan, Value: "0"},
	), schema)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	got := c.Apply(rows)
	if len(got) != 2 || got[0].Hits != 1<<63 || got[1].Hits != 5 {
		t.Errorf("expected [1<<63 5], got %v", got)
	}

	if n, ok := IntegerValue(uint64(1) << 63); ok {
		t.Errorf("expected IntegerValue to reject 1<<63, got %d", n)
	}
	if r, ok := CompareInteger(uint64(1)<<63, 9223372036854775807); !ok || r != 1 {
		t.Errorf("expected 1<<63 to compare above MaxInt64, got %d ok=%v", r, ok)
	}
	if CompareIntegers(uint64(1)<<63, int64(-1)) != 1 || CompareIntegers(nil, uint64(1)<<63) != -1 {
		t.Error("expected unsigned values above MaxInt64 to sort after every int64 and after nulls")
	}
}

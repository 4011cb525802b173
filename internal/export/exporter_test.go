package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rebeliceyang/lazygrid/internal/models"
)

type order struct {
	ID      int
	Product string
	Total   *float64
	Placed  time.Time
}

func orderSchema() *models.Schema[order] {
	return models.NewSchema(
		models.Field("ID", func(o order) int { return o.ID }, nil),
		models.Field("Product", func(o order) string { return o.Product }, nil),
		models.NullableField("Total", func(o order) *float64 { return o.Total }, nil),
		models.Field("Placed", func(o order) time.Time { return o.Placed }, nil),
	)
}

func testOrders() []order {
	total := 19.5
	return []order{
		{
			ID:      1,
			Product: "Widget, large \"deluxe\"",
			Total:   &total,
			Placed:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:      2,
			Product: "Gadget",
			Placed:  time.Date(2024, 1, 2, 13, 30, 0, 0, time.UTC),
		},
	}
}

func TestExportToCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportToCSV(&buf, orderSchema(), testOrders()); err != nil {
		t.Fatalf("ExportToCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}

	if len(records) != 3 { // header + 2 rows
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	expectedHeader := []string{"ID", "Product", "Total", "Placed"}
	for i, h := range expectedHeader {
		if records[0][i] != h {
			t.Errorf("Expected header[%d] = %q, got %q", i, h, records[0][i])
		}
	}

	first := records[1]
	if first[1] != "Widget, large \"deluxe\"" {
		t.Errorf("Special characters not preserved, got %q", first[1])
	}
	if first[2] != "19.5" {
		t.Errorf("Expected total 19.5, got %q", first[2])
	}
	if first[3] != "2024-01-01 12:00:00" {
		t.Errorf("Expected formatted timestamp, got %q", first[3])
	}

	if records[2][2] != "" {
		t.Errorf("Expected empty cell for null total, got %q", records[2][2])
	}
}

func TestExportToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportToJSON(&buf, orderSchema(), testOrders()); err != nil {
		t.Fatalf("ExportToJSON failed: %v", err)
	}

	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON should be pretty-printed with indentation")
	}

	var rows []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0]["Product"] != "Widget, large \"deluxe\"" {
		t.Errorf("Expected product to round-trip, got %v", rows[0]["Product"])
	}
	if rows[0]["Total"] != 19.5 {
		t.Errorf("Expected total 19.5, got %v", rows[0]["Total"])
	}
	if v, ok := rows[1]["Total"]; !ok || v != nil {
		t.Errorf("Expected null total, got %v", v)
	}
}

func TestExportToYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportToYAML(&buf, orderSchema(), testOrders()); err != nil {
		t.Fatalf("ExportToYAML failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "- ID: 1\n  Product:") {
		t.Errorf("Expected keys in schema order, got:\n%s", out)
	}

	var rows []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("Failed to unmarshal YAML: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[1]["Product"] != "Gadget" {
		t.Errorf("Expected Gadget, got %v", rows[1]["Product"])
	}
	if rows[1]["Total"] != nil {
		t.Errorf("Expected null total, got %v", rows[1]["Total"])
	}
}

func TestExportRecords(t *testing.T) {
	schema := models.NewRecordSchema([]models.ColumnInfo{
		{Name: "id", DataType: "integer"},
		{Name: "name", DataType: "text", Nullable: true},
	})
	rows := []models.Record{
		{"id": int64(7), "name": "Ann"},
		{"id": int64(8), "name": nil},
	}

	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, schema, rows); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	expected := "id,name\n7,Ann\n8,\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")

	if err := WriteFile(path, FormatJSON, orderSchema(), testOrders()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("Expected file permissions 0644, got %o", info.Mode().Perm())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportToJSON(&buf, orderSchema(), nil); err != nil {
		t.Fatalf("ExportToJSON failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("Expected empty array, got %q", buf.String())
	}
}

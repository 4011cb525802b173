package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/rebeliceyang/lazygrid/internal/models"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const timeLayout = "2006-01-02 15:04:05"

// ParseFormat resolves a format name, accepting "yml" for YAML
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", name)
	}
}

// Write exports rows in the given format, one column per schema property
func Write[R any](w io.Writer, format Format, schema *models.Schema[R], rows []R) error {
	switch format {
	case FormatCSV:
		return ExportToCSV(w, schema, rows)
	case FormatJSON:
		return ExportToJSON(w, schema, rows)
	case FormatYAML:
		return ExportToYAML(w, schema, rows)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteFile exports rows to a file at path
func WriteFile[R any](path string, format Format, schema *models.Schema[R], rows []R) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := Write(file, format, schema, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ExportToCSV writes a header row of property names, then one line per row.
// Nulls become empty cells.
func ExportToCSV[R any](w io.Writer, schema *models.Schema[R], rows []R) error {
	writer := csv.NewWriter(w)

	props := schema.Properties()
	header := schema.Names()
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(props))
	for _, row := range rows {
		for i, p := range props {
			record[i] = formatValue(p.Get(row))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// ExportToJSON writes an indented array with one object per row
func ExportToJSON[R any](w io.Writer, schema *models.Schema[R], rows []R) error {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]any, len(schema.Properties()))
		for _, p := range schema.Properties() {
			obj[p.Name] = p.Get(row)
		}
		out = append(out, obj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}
	return nil
}

// ExportToYAML writes a sequence of mappings keeping the schema's property order
func ExportToYAML[R any](w io.Writer, schema *models.Schema[R], rows []R) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range schema.Properties() {
			var value yaml.Node
			if err := value.Encode(p.Get(row)); err != nil {
				return fmt.Errorf("failed to encode %s: %w", p.Name, err)
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Name},
				&value,
			)
		}
		doc.Content = append(doc.Content, m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to marshal rows to YAML: %w", err)
	}
	return enc.Close()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(timeLayout)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.Format(timeLayout)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}

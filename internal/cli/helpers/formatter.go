package helpers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"
	"time"
)

// OutputFormat represents the desired output format.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
)

// RecordFormats are the formats supported by commands printing records.
var RecordFormats = []OutputFormat{FormatTable, FormatJSON, FormatCSV}

// Formatter writes query results.
type Formatter interface {
	Format(data any, writer io.Writer) error
}

// NewFormatter creates a new Formatter for the given format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatTable:
		return &TableFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// JSONFormatter formats data as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any, writer io.Writer) error {
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// TableFormatter formats a slice as an aligned table. Struct elements use
// their `header` tags as columns; map elements use the union of their keys,
// sorted.
type TableFormatter struct{}

func (f *TableFormatter) Format(data any, writer io.Writer) error {
	headers, rows, err := tabulate(data)
	if err != nil || len(rows) == 0 {
		return err
	}

	w := tabwriter.NewWriter(writer, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(w, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}

// CSVFormatter formats a slice as CSV with a header row.
type CSVFormatter struct{}

func (f *CSVFormatter) Format(data any, writer io.Writer) error {
	headers, rows, err := tabulate(data)
	if err != nil || len(rows) == 0 {
		return err
	}

	w := csv.NewWriter(writer)
	if err := w.Write(headers); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

func tabulate(data any) ([]string, [][]string, error) {
	val := reflect.ValueOf(data)
	if val.Kind() != reflect.Slice {
		return nil, nil, fmt.Errorf("data must be a slice")
	}
	if val.Len() == 0 {
		return nil, nil, nil
	}

	elemType := val.Type().Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}

	switch elemType.Kind() {
	case reflect.Struct:
		headers, fields := structHeaders(elemType)
		rows := make([][]string, val.Len())
		for i := range rows {
			elem := reflect.Indirect(val.Index(i))
			row := make([]string, len(fields))
			for j, idx := range fields {
				row[j] = formatCell(elem.Field(idx).Interface())
			}
			rows[i] = row
		}
		return headers, rows, nil

	case reflect.Map:
		if elemType.Key().Kind() != reflect.String {
			return nil, nil, fmt.Errorf("map keys must be strings")
		}
		seen := make(map[string]bool)
		var headers []string
		for i := 0; i < val.Len(); i++ {
			for _, k := range val.Index(i).MapKeys() {
				if name := k.String(); !seen[name] {
					seen[name] = true
					headers = append(headers, name)
				}
			}
		}
		slices.Sort(headers)

		rows := make([][]string, val.Len())
		for i := range rows {
			m := val.Index(i)
			row := make([]string, len(headers))
			for j, h := range headers {
				if v := m.MapIndex(reflect.ValueOf(h).Convert(elemType.Key())); v.IsValid() {
					row[j] = formatCell(v.Interface())
				}
			}
			rows[i] = row
		}
		return headers, rows, nil

	default:
		return nil, nil, fmt.Errorf("unsupported element type %s", elemType)
	}
}

func structHeaders(t reflect.Type) ([]string, []int) {
	var headers []string
	var fields []int
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("header"); tag != "" {
			headers = append(headers, tag)
			fields = append(fields, i)
		}
	}
	return headers, fields
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

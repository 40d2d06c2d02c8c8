package output

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"
)

// Tabular is implemented by results with their own table layout.
type Tabular interface {
	Table() *Table
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable creates a table with headers.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) *Table {
	t.Rows = append(t.Rows, cells)
	return t
}

// Render writes the table aligned on two-space gutters.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// TableFormatter formats data as a table. Structs print as FIELD/VALUE
// pairs named after their json tags; anything else falls back to YAML.
type TableFormatter struct{}

func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case *Table:
		return v.Render(w)
	case Tabular:
		return v.Table().Render(w)
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return (&YAMLFormatter{}).Format(w, data)
	}
	return structTable(v).Render(w)
}

func structTable(v reflect.Value) *Table {
	table := NewTable("FIELD", "VALUE")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, ok := fieldName(field)
		if !ok {
			continue
		}
		table.AddRow(name, Cell(v.Field(i).Interface()))
	}
	return table
}

func fieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return f.Name, true
}

// Cell renders a single value; empty and nil values print as "-".
func Cell(x any) string {
	switch val := x.(type) {
	case error:
		return val.Error()
	case time.Duration:
		return val.String()
	}

	v := reflect.ValueOf(x)
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return "-"
	}

	switch val := v.Interface().(type) {
	case time.Time:
		if val.IsZero() {
			return "-"
		}
		return val.Local().Format("2006-01-02 15:04")
	case fmt.Stringer:
		return val.String()
	}

	switch v.Kind() {
	case reflect.String:
		if v.Len() == 0 {
			return "-"
		}
		return v.String()
	case reflect.Bool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%g", v.Float())
	case reflect.Slice, reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("%d items", v.Len())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

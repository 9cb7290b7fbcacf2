package dataset

import (
	"fmt"
	"strings"
)

// PreviewRows bounds the row preview returned by Describe.
const PreviewRows = 5

// ColumnInfo summarizes one column.
type ColumnInfo struct {
	Name    string `json:"name" yaml:"name"`
	Kind    Kind   `json:"type" yaml:"type"`
	NonNull int    `json:"non_null_count" yaml:"non_null_count"`
	Null    int    `json:"null_count" yaml:"null_count"`
	Unique  int    `json:"unique_values" yaml:"unique_values"`
}

// Description is the column metadata plus a bounded, placeholder-filled preview.
type Description struct {
	Shape   [2]int              `json:"shape" yaml:"shape"`
	Columns []ColumnInfo        `json:"columns" yaml:"columns"`
	Preview []map[string]string `json:"preview" yaml:"preview"`
	Sheets  []string            `json:"sheets" yaml:"sheets"`
}

// Describe computes per-column counts and the first PreviewRows rows.
// Missing cells in the preview are rendered as MissingPlaceholder.
func Describe(d *Dataset, sheets []string) Description {
	desc := Description{Shape: [2]int{d.Rows(), len(d.Columns)}, Sheets: sheets}
	if desc.Sheets == nil {
		desc.Sheets = []string{}
	}
	desc.Columns = make([]ColumnInfo, 0, len(d.Columns))
	for _, c := range d.Columns {
		info := ColumnInfo{Name: c.Name, Kind: c.Kind}
		distinct := map[string]struct{}{}
		for i := range c.Values {
			if c.IsMissing(i) {
				info.Null++
				continue
			}
			info.NonNull++
			distinct[c.distinctKey(i)] = struct{}{}
		}
		info.Unique = len(distinct)
		desc.Columns = append(desc.Columns, info)
	}
	n := d.Rows()
	if n > PreviewRows {
		n = PreviewRows
	}
	desc.Preview = make([]map[string]string, n)
	for i := 0; i < n; i++ {
		row := make(map[string]string, len(d.Columns))
		for _, c := range d.Columns {
			if c.IsMissing(i) {
				row[c.Name] = MissingPlaceholder
			} else {
				row[c.Name] = c.Values[i]
			}
		}
		desc.Preview[i] = row
	}
	return desc
}

// distinctKey makes "1.0" and "1" count as one value in numeric columns.
func (c *Column) distinctKey(i int) string {
	if x, ok := c.Float(i); ok {
		return fmt.Sprintf("%g", x)
	}
	return c.Values[i]
}

// Markdown renders the description for terminal output.
func (desc Description) Markdown(name string) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if name != "" {
		fmt.Fprintf(&b, "File: %s\n", name)
	}
	fmt.Fprintf(&b, "Rows: %d\nColumns: %d\n", desc.Shape[0], desc.Shape[1])
	if len(desc.Sheets) > 0 {
		fmt.Fprintf(&b, "Sheets: %s\n", strings.Join(desc.Sheets, ", "))
	}
	b.WriteString("\n[SCHEMA]\n")
	for _, c := range desc.Columns {
		total := c.NonNull + c.Null
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Null) * 100.0 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%, unique %d)\n", safeName(c.Name), c.Kind, c.NonNull, missPct, c.Unique)
	}
	if len(desc.Preview) > 0 {
		b.WriteString("\n[HEAD]\n| ")
		for i, c := range desc.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range desc.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range desc.Preview {
			b.WriteString("| ")
			for i, c := range desc.Columns {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := row[c.Name]
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

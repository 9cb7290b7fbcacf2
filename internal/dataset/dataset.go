// Package dataset holds the in-memory tabular model shared by the loaders and the
// preprocessing stage. Column kinds are inferred once, when the Dataset is built.
package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/segmenta/internal/apperr"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// MissingPlaceholder replaces missing cells in previews.
const MissingPlaceholder = "N/A"

// Column is a named sequence of raw cell values.
type Column struct {
	Name   string
	Kind   Kind
	Values []string
	// nums holds parsed values for numeric columns; NaN marks a missing cell.
	nums []float64
}

// Dataset is an ordered set of equal-length columns.
type Dataset struct {
	Name    string
	Sheet   string
	Columns []*Column
	rows    int
	index   map[string]int
}

// New builds a Dataset from a header and row-major records, inferring column kinds.
// Short records are padded with missing cells; records wider than the header are rejected.
func New(name string, header []string, records [][]string, opt Options) (*Dataset, error) {
	if len(header) == 0 {
		return nil, apperr.New(apperr.ErrFormat, "load", "no header row")
	}
	names := normalizeHeader(header)
	ds := &Dataset{Name: name, rows: len(records), index: make(map[string]int, len(names))}
	ds.Columns = make([]*Column, len(names))
	for j, n := range names {
		ds.Columns[j] = &Column{Name: n, Values: make([]string, len(records))}
		ds.index[n] = j
	}
	for i, rec := range records {
		if len(rec) > len(names) {
			extra := rec[len(names):]
			if !allBlank(extra) {
				return nil, apperr.New(apperr.ErrFormat, "load", "row %d has %d fields, header has %d", i+1, len(rec), len(names))
			}
		}
		for j := range names {
			if j < len(rec) {
				ds.Columns[j].Values[i] = strings.TrimSpace(rec[j])
			}
		}
	}
	for _, c := range ds.Columns {
		c.infer(opt)
	}
	return ds, nil
}

// Rows returns the row count.
func (d *Dataset) Rows() int { return d.rows }

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	j, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.Columns[j], true
}

// Names returns column names in load order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Select resolves a column selection. Nil or empty selects every column; duplicate
// names are dropped keeping the first occurrence; unknown names fail.
func (d *Dataset) Select(selection []string) ([]*Column, error) {
	if len(selection) == 0 {
		out := make([]*Column, len(d.Columns))
		copy(out, d.Columns)
		return out, nil
	}
	seen := make(map[string]struct{}, len(selection))
	var out []*Column
	var unknown []string
	for _, name := range selection {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		c, ok := d.Column(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, c)
	}
	if len(unknown) > 0 {
		return nil, apperr.New(apperr.ErrColumnSelection, "select", "unknown columns: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Values) }

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == KindNumeric && c.nums != nil {
		return math.IsNaN(c.nums[i])
	}
	return IsMissingToken(c.Values[i])
}

// Float returns the parsed value of cell i for numeric columns.
func (c *Column) Float(i int) (float64, bool) {
	if c.Kind != KindNumeric || c.nums == nil || math.IsNaN(c.nums[i]) {
		return 0, false
	}
	return c.nums[i], true
}

func (c *Column) infer(opt Options) {
	nums := make([]float64, len(c.Values))
	numeric := true
	for i, v := range c.Values {
		if IsMissingToken(v) {
			nums[i] = math.NaN()
			continue
		}
		x, ok := ParseNumeric(v, opt)
		if !ok {
			numeric = false
			break
		}
		nums[i] = x
	}
	if numeric {
		c.Kind = KindNumeric
		c.nums = nums
		return
	}
	c.Kind = KindCategorical
}

// IsMissingToken reports whether a raw cell denotes a missing value.
func IsMissingToken(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "na", "nan", "n/a", "null", "none":
		return true
	}
	return false
}

func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	// next suffix to try per base name
	suffix := map[string]int{}
	for i, h := range header {
		n := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if n == "" {
			n = fmt.Sprintf("column_%d", i+1)
		}
		candidate := n
		if taken[candidate] {
			cnt := max(suffix[n], 2)
			candidate = fmt.Sprintf("%s_%d", n, cnt)
			for taken[candidate] {
				cnt++
				candidate = fmt.Sprintf("%s_%d", n, cnt)
			}
			suffix[n] = cnt + 1
		}
		taken[candidate] = true
		names[i] = candidate
	}
	return names
}

func allBlank(vals []string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

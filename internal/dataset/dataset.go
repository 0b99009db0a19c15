package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindNumeric Kind = iota
	KindCategorical
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "other"
	}
}

// DType returns the dataframe-style dtype name shown in column info listings.
func (k Kind) DType() string {
	switch k {
	case KindNumeric:
		return "float64"
	case KindCategorical:
		return "object"
	default:
		return "bool"
	}
}

// MarshalText encodes the kind by name so JSON/YAML output stays readable.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Value is a single cell. The zero Value is null.
type Value struct {
	Raw   string
	Num   float64
	Valid bool
}

func Null() Value { return Value{} }

func Text(s string) Value { return Value{Raw: s, Valid: true} }

func Number(f float64) Value {
	return Value{Raw: strconv.FormatFloat(f, 'g', -1, 64), Num: f, Valid: true}
}

func (v Value) IsNull() bool { return !v.Valid }

// Column is a named, typed sequence of values.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// NullCount returns the number of null cells in the column.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if !v.Valid {
			n++
		}
	}
	return n
}

// NonNull returns the number of non-null cells in the column.
func (c *Column) NonNull() int { return len(c.Values) - c.NullCount() }

// Floats returns the non-null numeric values in row order. It returns nil for
// non-numeric columns.
func (c *Column) Floats() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.Valid {
			out = append(out, v.Num)
		}
	}
	return out
}

// Dataset is a rectangular table of named columns.
type Dataset struct {
	Name    string
	Columns []Column
}

// New builds a dataset and checks that it is rectangular with unique column names.
func New(name string, cols []Column) (*Dataset, error) {
	ds := &Dataset{Name: name, Columns: cols}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, ok := seen[c.Name]; ok {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("duplicate column name %q", c.Name)}
		}
		seen[c.Name] = struct{}{}
	}
	return ds, nil
}

// Validate reports an *InvalidInputError for a nil or non-rectangular dataset.
func (d *Dataset) Validate() error {
	if d == nil {
		return &InvalidInputError{Reason: "dataset is nil"}
	}
	if len(d.Columns) == 0 {
		return nil
	}
	want := len(d.Columns[0].Values)
	for _, c := range d.Columns[1:] {
		if len(c.Values) != want {
			return &InvalidInputError{Reason: fmt.Sprintf("column %q has %d values, want %d", c.Name, len(c.Values), want)}
		}
	}
	return nil
}

// NumRows returns the row count. A dataset without columns has zero rows.
func (d *Dataset) NumRows() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// NumCols returns the column count.
func (d *Dataset) NumCols() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Column returns the named column, if present.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// ColumnsOf returns the columns with the given kind, in order.
func (d *Dataset) ColumnsOf(k Kind) []*Column {
	var out []*Column
	for i := range d.Columns {
		if d.Columns[i].Kind == k {
			out = append(out, &d.Columns[i])
		}
	}
	return out
}

// Row returns the raw cell text for row i; nulls render as "".
func (d *Dataset) Row(i int) []string {
	out := make([]string, len(d.Columns))
	for j := range d.Columns {
		v := d.Columns[j].Values[i]
		if v.Valid {
			out[j] = v.Raw
		}
	}
	return out
}

// RowHash is a 64-bit digest of row i. Equal rows hash equal; callers
// confirm a match with RowsEqual.
func (d *Dataset) RowHash(i int) uint64 {
	var buf [64]byte
	b := buf[:0]
	for j := range d.Columns {
		b = appendCell(b, d.Columns[j].Kind, d.Columns[j].Values[i])
	}
	return xxhash.Sum64(b)
}

// RowsEqual reports whether rows i and j hold equal cells in every column.
// Nulls compare equal to each other.
func (d *Dataset) RowsEqual(i, j int) bool {
	for _, c := range d.Columns {
		a, b := c.Values[i], c.Values[j]
		if a.Valid != b.Valid {
			return false
		}
		if a.Valid && cellText(c.Kind, a) != cellText(c.Kind, b) {
			return false
		}
	}
	return true
}

func cellText(k Kind, v Value) string {
	if k != KindNumeric {
		return v.Raw
	}
	if v.Num == 0 {
		return "0"
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// appendCell writes a length-prefixed cell, or '-' for null, so no cell
// content can be mistaken for a boundary.
func appendCell(b []byte, k Kind, v Value) []byte {
	if !v.Valid {
		return append(b, '-')
	}
	return appendField(b, cellText(k, v))
}

func appendField(b []byte, s string) []byte {
	b = strconv.AppendInt(b, int64(len(s)), 10)
	b = append(b, ':')
	return append(b, s...)
}

// Hash returns a SHA-256 content hash over column names, kinds and cells. The
// dataset Name does not participate.
func (d *Dataset) Hash() string {
	h := sha256.New()
	var b []byte
	b = strconv.AppendInt(b, int64(len(d.Columns)), 10)
	b = append(b, ';')
	_, _ = h.Write(b)
	for _, c := range d.Columns {
		b = appendField(b[:0], c.Name)
		b = appendField(b, c.Kind.String())
		b = strconv.AppendInt(b, int64(len(c.Values)), 10)
		b = append(b, ';')
		_, _ = h.Write(b)
		for _, v := range c.Values {
			b = appendCell(b[:0], c.Kind, v)
			_, _ = h.Write(b)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Head returns a copy holding the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n > d.NumRows() {
		n = d.NumRows()
	}
	return d.Rows(seq(n))
}

// Rows returns a copy holding the given rows, in the given order.
func (d *Dataset) Rows(idx []int) *Dataset {
	out := &Dataset{Name: d.Name, Columns: make([]Column, len(d.Columns))}
	for j, c := range d.Columns {
		vals := make([]Value, len(idx))
		for i, r := range idx {
			vals[i] = c.Values[r]
		}
		out.Columns[j] = Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	return out
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Name: d.Name, Columns: make([]Column, len(d.Columns))}
	for j, c := range d.Columns {
		out.Columns[j] = Column{Name: c.Name, Kind: c.Kind, Values: append([]Value(nil), c.Values...)}
	}
	return out
}

// Select returns a copy holding only the named columns, in the given order.
func (d *Dataset) Select(names []string) (*Dataset, error) {
	out := &Dataset{Name: d.Name, Columns: make([]Column, 0, len(names))}
	for _, n := range names {
		c, ok := d.Column(n)
		if !ok {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("unknown column %q", n)}
		}
		out.Columns = append(out.Columns, Column{Name: c.Name, Kind: c.Kind, Values: append([]Value(nil), c.Values...)})
	}
	return out, nil
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the value variant a column currently holds. Schema application
// and decimal resolution upgrade a column's tag; they never blind-cast.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindUint
	KindBool
	KindDecimal
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindBool:
		return "bool"
	case KindDecimal:
		return "decimal"
	case KindTimestamp:
		return "timestamp"
	}
	return "unknown"
}

// Column is one named value sequence. Only the slice matching Kind is
// populated; Nulls marks absent values independently of the variant.
type Column struct {
	Name  string
	Kind  Kind
	Scale int32 // decimal scale, meaningful for KindDecimal only

	Text  []string
	Ints  []int64
	Uints []uint64
	Bools []bool
	Decs  []decimal.Decimal
	Times []time.Time
	Nulls []bool
}

// NewTextColumn builds a text column, marking empty strings as null.
func NewTextColumn(name string, values []string) *Column {
	nulls := make([]bool, len(values))
	for i, v := range values {
		nulls[i] = v == ""
	}
	return &Column{Name: name, Kind: KindText, Text: values, Nulls: nulls}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int { return len(c.Nulls) }

// RowSet is the in-memory table for one raw file, or for the concatenation of
// all files of one pair in batch mode. Column order is preserved from the
// source; it matters for display only.
type RowSet struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// NewRowSet creates an empty row set with the given row count.
func NewRowSet(rows int) *RowSet {
	return &RowSet{index: make(map[string]int), rows: rows}
}

// Rows returns the number of rows.
func (rs *RowSet) Rows() int { return rs.rows }

// Columns returns the columns in source order.
func (rs *RowSet) Columns() []*Column { return rs.cols }

// Names returns the column names in source order.
func (rs *RowSet) Names() []string {
	names := make([]string, len(rs.cols))
	for i, c := range rs.cols {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (rs *RowSet) Column(name string) (*Column, bool) {
	i, ok := rs.index[name]
	if !ok {
		return nil, false
	}
	return rs.cols[i], true
}

// AddColumn appends a column. Length and name uniqueness are enforced.
func (rs *RowSet) AddColumn(c *Column) error {
	if c.Len() != rs.rows {
		return fmt.Errorf("column %s has %d rows, row set has %d", c.Name, c.Len(), rs.rows)
	}
	if _, exists := rs.index[c.Name]; exists {
		return fmt.Errorf("duplicate column %s", c.Name)
	}
	rs.index[c.Name] = len(rs.cols)
	rs.cols = append(rs.cols, c)
	return nil
}

// Replace swaps a column in place, keeping its position.
func (rs *RowSet) Replace(c *Column) error {
	i, ok := rs.index[c.Name]
	if !ok {
		return fmt.Errorf("unknown column %s", c.Name)
	}
	if c.Len() != rs.rows {
		return fmt.Errorf("column %s has %d rows, row set has %d", c.Name, c.Len(), rs.rows)
	}
	rs.cols[i] = c
	return nil
}

// Rename changes a column's name. Renaming to an existing name is an error.
func (rs *RowSet) Rename(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	i, ok := rs.index[oldName]
	if !ok {
		return fmt.Errorf("unknown column %s", oldName)
	}
	if _, exists := rs.index[newName]; exists {
		return fmt.Errorf("column %s already exists", newName)
	}
	delete(rs.index, oldName)
	rs.index[newName] = i
	rs.cols[i].Name = newName
	return nil
}

// Append concatenates another row set with identical column names in
// identical order. Both sides must still be all-text (appending happens
// before normalization).
func (rs *RowSet) Append(other *RowSet) error {
	if len(rs.cols) != len(other.cols) {
		return fmt.Errorf("column count mismatch: %d vs %d", len(rs.cols), len(other.cols))
	}
	for i, c := range rs.cols {
		oc := other.cols[i]
		if c.Name != oc.Name {
			return fmt.Errorf("column name mismatch at %d: %s vs %s", i, c.Name, oc.Name)
		}
		if c.Kind != KindText || oc.Kind != KindText {
			return fmt.Errorf("append requires text columns, got %s/%s for %s", c.Kind, oc.Kind, c.Name)
		}
		c.Text = append(c.Text, oc.Text...)
		c.Nulls = append(c.Nulls, oc.Nulls...)
	}
	rs.rows += other.rows
	return nil
}

// ReadCSV reads tabular data with a header row into an all-text row set.
func ReadCSV(r io.Reader) (*RowSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	values := make([][]string, len(header))
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		for i := range header {
			if i < len(record) {
				values[i] = append(values[i], record[i])
			} else {
				values[i] = append(values[i], "")
			}
		}
		rows++
	}

	rs := NewRowSet(rows)
	for i, name := range header {
		if err := rs.AddColumn(NewTextColumn(name, values[i])); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// ReadCSVFile reads a raw CSV file into an all-text row set.
func ReadCSVFile(path string) (*RowSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	rs, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rs, nil
}

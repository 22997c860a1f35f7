package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"bnvision/internal/dataprocessing"
)

// decimalPrecision is the declared precision for all fixed-point columns.
// Int64 physical storage holds 18 significant digits.
const decimalPrecision = 18

// SchemaOf derives a parquet schema from a normalized row set. Every field
// is optional so null cells can be represented; field order inside the
// schema is the library's (alphabetical), which does not affect readers.
func SchemaOf(name string, rs *dataprocessing.RowSet) (*parquet.Schema, error) {
	group := parquet.Group{}
	for _, col := range rs.Columns() {
		node, err := nodeFor(col)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		group[col.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema(name, group), nil
}

func nodeFor(col *dataprocessing.Column) (parquet.Node, error) {
	switch col.Kind {
	case dataprocessing.KindText:
		return parquet.String(), nil
	case dataprocessing.KindInt:
		return parquet.Int(64), nil
	case dataprocessing.KindUint:
		return parquet.Uint(64), nil
	case dataprocessing.KindBool:
		return parquet.Leaf(parquet.BooleanType), nil
	case dataprocessing.KindDecimal:
		return parquet.Decimal(int(col.Scale), decimalPrecision, parquet.Int64Type), nil
	case dataprocessing.KindTimestamp:
		return parquet.Timestamp(parquet.Millisecond), nil
	}
	return nil, fmt.Errorf("unsupported column kind %s", col.Kind)
}

// WriteRowSet writes a normalized row set to path atomically: the data goes
// to a temporary file in the same directory, which replaces path only after
// a successful close and sync. A failed write never leaves a partial file at
// path.
func WriteRowSet(path string, rs *dataprocessing.RowSet) error {
	schema, err := SchemaOf(filepath.Base(path), rs)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := writeRows(tmp, schema, rs); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func writeRows(w io.Writer, schema *parquet.Schema, rs *dataprocessing.RowSet) error {
	writer := parquet.NewGenericWriter[map[string]any](w, schema)

	rows := make([]map[string]any, rs.Rows())
	for i := range rows {
		row := make(map[string]any, len(rs.Columns()))
		for _, col := range rs.Columns() {
			if col.Nulls[i] {
				continue
			}
			row[col.Name] = cellValue(col, i)
		}
		rows[i] = row
	}

	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// cellValue converts one cell to the physical value the schema declares.
// Decimals become unscaled int64, timestamps epoch milliseconds.
func cellValue(col *dataprocessing.Column, i int) any {
	switch col.Kind {
	case dataprocessing.KindText:
		return col.Text[i]
	case dataprocessing.KindInt:
		return col.Ints[i]
	case dataprocessing.KindUint:
		return col.Uints[i]
	case dataprocessing.KindBool:
		return col.Bools[i]
	case dataprocessing.KindDecimal:
		return col.Decs[i].Shift(col.Scale).Round(0).IntPart()
	case dataprocessing.KindTimestamp:
		return col.Times[i].UnixMilli()
	}
	return nil
}

// ReadRows loads an entire parquet file into generic rows. Null cells come
// back as absent keys. Intended for verification and migration, not bulk
// analytics.
func ReadRows(path string) ([]map[string]any, *parquet.Schema, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	// Map rows carry no schema of their own; the reader needs the one from
	// the file footer.
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("%s is not a readable parquet file: %w", path, err)
	}
	schema := pf.Schema()

	reader := parquet.NewGenericReader[map[string]any](file, schema)
	defer reader.Close()
	var rows []map[string]any
	buf := make([]map[string]any, 64)
	for {
		for i := range buf {
			buf[i] = make(map[string]any)
		}
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		buf = make([]map[string]any, 64)
	}
	return rows, schema, nil
}

// VerifyReadable checks that path is a well-formed parquet file by parsing
// its footer, and returns its row count.
func VerifyReadable(path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return 0, fmt.Errorf("%s is not a readable parquet file: %w", path, err)
	}
	return pf.NumRows(), nil
}

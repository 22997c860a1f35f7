package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"bnvision/internal/dataprocessing"
	"bnvision/internal/exporter"
	"bnvision/internal/files"
)

// legacyRenames is the fixed rename table applied after the mechanical
// snake_case conversion. These names changed after files in the old
// convention had already been written.
var legacyRenames = map[string]string{
	"Quantity":     "Qty",
	"TransactTime": "TxnTime",
}

// Pass rewrites already-converted parquet files whose column names predate
// the current convention. Files already in the current convention are left
// byte-for-byte untouched, so running the pass repeatedly is a no-op after
// the first time.
type Pass struct {
	logger *slog.Logger
}

// NewPass creates a migration pass.
func NewPass(logger *slog.Logger) *Pass {
	return &Pass{logger: logger}
}

// Run migrates every parquet file under root and returns how many files were
// rewritten. A file that fails to migrate is logged and skipped; it never
// aborts the walk.
func (p *Pass) Run(ctx context.Context, root string) (int, error) {
	paths, err := files.FindParquetFiles(root)
	if err != nil {
		return 0, err
	}

	if len(paths) == 0 {
		p.logger.InfoContext(ctx, "No parquet files found to migrate")
		return 0, nil
	}

	p.logger.InfoContext(ctx, "Starting migration pass",
		slog.Int("files", len(paths)))

	migrated := 0
	for _, path := range paths {
		changed, err := p.migrateFile(path)
		if err != nil {
			p.logger.ErrorContext(ctx, "Migration failed",
				slog.String("file", path),
				slog.Any("error", err))
			continue
		}
		if changed {
			migrated++
			p.logger.InfoContext(ctx, "File migrated", slog.String("file", path))
		}
	}

	p.logger.InfoContext(ctx, "Migration pass finished",
		slog.Int("files", len(paths)),
		slog.Int("migrated", migrated))
	return migrated, nil
}

// migrateFile rewrites one file if any of its column names map to a new
// name. The rewrite reuses the old schema's field nodes, so column types and
// logical annotations survive the rename.
func (p *Pass) migrateFile(path string) (bool, error) {
	rows, schema, err := exporter.ReadRows(path)
	if err != nil {
		return false, err
	}

	mapping := make(map[string]string)
	changed := false
	for _, field := range schema.Fields() {
		newName := migratedName(field.Name())
		mapping[field.Name()] = newName
		if newName != field.Name() {
			changed = true
		}
	}
	if !changed {
		return false, nil
	}

	group := parquet.Group{}
	for _, field := range schema.Fields() {
		group[mapping[field.Name()]] = field
	}
	newSchema := parquet.NewSchema(schema.Name(), group)

	renamed := make([]map[string]any, len(rows))
	for i, row := range rows {
		out := make(map[string]any, len(row))
		for name, value := range row {
			out[mapping[name]] = value
		}
		renamed[i] = out
	}

	return true, rewrite(path, newSchema, renamed)
}

// rewrite replaces path atomically with the renamed rows.
func rewrite(path string, schema *parquet.Schema, rows []map[string]any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := parquet.NewGenericWriter[map[string]any](tmp, schema)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to finalize parquet file: %w", err)
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

// migratedName maps a legacy column name to the current convention.
func migratedName(name string) string {
	converted := dataprocessing.SnakeToPascal(name)
	if renamed, ok := legacyRenames[converted]; ok {
		return renamed
	}
	return converted
}

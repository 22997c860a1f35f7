// Package migrate upgrades already-converted parquet files to the current
// column-naming convention.
//
// The pass walks the destination tree for parquet files, maps each column
// name through the mechanical snake_case conversion and a small fixed rename
// table, and rewrites only the files where a name actually changed. Files
// already in the current convention keep their content and modification time,
// which makes repeated runs no-ops.
package migrate

// Package exporter writes normalized row sets to typed columnar parquet
// files.
//
// Decimals are stored as unscaled int64 with their resolved scale declared
// in the schema, timestamps as epoch milliseconds. Writes are atomic: output
// lands in a same-directory temporary file that is renamed into place only
// after a successful close, so readers never observe a partial file.
package exporter

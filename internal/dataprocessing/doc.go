// Package dataprocessing converts raw all-text CSV row sets into their
// canonical typed form.
//
// The pipeline for one row set runs schema coercion, column-name
// normalization, decimal precision resolution, and data-type-specific
// reshaping, in that order. Each stage degrades rather than aborts: a schema
// mismatch leaves the file untyped, a failed decimal cast leaves the column
// as text. The bookDepth pivot is the only stage that changes the shape of
// the table.
package dataprocessing

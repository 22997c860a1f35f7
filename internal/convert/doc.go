// Package convert orchestrates the CSV-to-parquet conversion run.
//
// A run discovers (stem, data type) pairs in the dated destination layout,
// fetches the precision metadata snapshot once, and converts pairs on a
// bounded worker pool. Per-file mode writes one parquet beside each raw CSV;
// batch mode concatenates a pair's files in date order into one range-named
// output at the destination root. Source files are only deleted after their
// output verifies readable.
package convert

// Package files provides file system operations over the dated destination
// layout.
//
// Discovery walks {root}/{source}/{YYYY}/{MM}/{DD}/{dataType}/ for canonical
// raw CSV files, filters them by date range, and groups them into conversion
// pairs. Manager provides the basic file operations (existence checks,
// directory creation, move, delete) the conversion pipeline needs, resolved
// against the destination root.
package files

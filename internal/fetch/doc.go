// Package fetch implements the archive fetcher: given a (symbol, data type,
// date) job it derives the vendor archive and checksum URLs, downloads both
// into the job's destination directory, verifies the archive digest, extracts
// the single contained entry and renames it to its canonical name.
//
// The rename is the last step, so a failure at any earlier point can never
// corrupt an existing canonical file. Failed verifications leave the archive
// and checksum pair on disk for inspection.
package fetch

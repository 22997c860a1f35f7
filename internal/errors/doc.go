// Package errors defines the pipeline error taxonomy.
//
// Every failure a worker can hit is classified with a Code so orchestrators
// can aggregate per-unit outcomes without string matching. Per-unit codes
// (network failure, checksum mismatch, corrupt archive, ...) are caught at
// the job/file boundary and counted; only configuration errors abort a run.
package errors

// Package download implements the download orchestrator: it expands a
// (symbol set × data type set × date range) request into independent jobs and
// dispatches them to a bounded worker pool. Progress is observable through
// per-job completion logs; aggregate success and the list of failed jobs are
// returned once the whole set has drained.
package download

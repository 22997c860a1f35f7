// Package metadata fetches per-symbol numeric-precision metadata from the
// vendor's exchange-info endpoint. The result is fetched once per run and
// shared read-only across workers; an unavailable endpoint degrades the run
// to default decimal scales rather than failing it.
package metadata

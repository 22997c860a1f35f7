// Package infrastructure provides the cross-cutting runtime pieces shared by
// all binaries: the structured JSON logger (console/file/both), run trace IDs
// carried through context, and the optional OpenTelemetry trace exporter.
package infrastructure

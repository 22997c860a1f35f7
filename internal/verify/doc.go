// Package verify implements the integrity gate for downloaded archives: a
// streaming SHA-256 digest compared against the vendor-supplied .CHECKSUM
// sidecar. No archive is extracted before it passes this check.
package verify

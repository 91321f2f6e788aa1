// Package diag defines the diagnostic model shared by the registration,
// completion and call-resolution phases.
//
// Diagnostic is the central record: a Severity, a stable numeric Code, a
// message, the primary source.Span, and optional notes pointing at related
// declarations. Phases emit through a Reporter so they stay decoupled from
// storage; BagReporter aggregates into a Bag, which accumulates every
// diagnostic for a compilation unit instead of aborting on the first error.
//
// The package performs no formatting or IO beyond the deterministic
// single-line rendering in format.go, which the CLI and golden tests share.
package diag

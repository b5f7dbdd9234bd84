// Package preflight provides readiness checks for the files and tools a
// release build depends on.
//
// The CLI "build check" command runs RunAll and renders each Result as a
// status line. Builds themselves do not run preflight; a missing archiver or
// resource surfaces as a build error instead.
package preflight

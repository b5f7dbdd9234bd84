// Package archive drives the external archiving utility that bundles a
// release.
//
// The utility (zip by default) is configured as a shell-words string and is
// invoked directly, without a shell, from the project directory so archive
// entries stay project-relative. Its standard output is streamed into debug
// logs and an optional terminal spinner; its standard error is kept for
// failure reports. A non-zero exit, a missing binary, or a run that leaves no
// archive behind is reported as ErrArchiverFailed.
package archive

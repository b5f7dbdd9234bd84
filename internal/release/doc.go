// Package release turns a validated build request into a release archive.
//
// A build validates its two positional arguments, stamps the target's schema
// revision and the release version into the extension manifest, and hands
// the project files to the configured archiving utility. Builds for the same
// project are serialized with a file lock, and each one that reaches the
// packaging step is recorded in the history ledger when one is configured.
package release

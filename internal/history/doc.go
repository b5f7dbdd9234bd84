// Package history keeps a SQLite ledger of the releases beebuild produced.
//
// Each build that reaches the packaging step records its build id, target,
// version, manifest schema revision, archive location, archive status, size
// and SHA-256. The builder consults the newest record per target to warn about
// version downgrades and rebuilds; the history command renders the ledger.
//
// Schema changes bump schemaVersion in schema.go; an old ledger must be
// deleted to adopt the new schema.
package history

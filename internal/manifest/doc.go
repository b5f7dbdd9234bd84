// Package manifest reads and rewrites the extension's manifest.json.
//
// A Document is only partially typed: the two fields the release builder owns
// (manifest_version and version) are accessed explicitly, while every other
// member is carried as raw JSON in its original position. Rewriting a manifest
// therefore changes indentation only; unrelated keys keep their order, number
// formatting and string escapes.
package manifest

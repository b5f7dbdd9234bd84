// Package config loads, normalizes, and validates beebuild configuration.
//
// It supplies repository defaults matching the extension's layout
// (manifest.json, SpellingBeeHelp.js, img/, releases/), reads an optional
// TOML file, and honours BEEBUILD_* environment fallbacks. Every relative path
// is resolved against paths.project_dir so the builder can be pointed at any
// checkout, including temporary directories in tests.
package config

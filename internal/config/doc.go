// Package config loads shortsync settings from TOML.
//
// Load reads the file given by --config, otherwise
// ~/.config/shortsync/config.toml, then ./shortsync.toml, and falls back to
// Default when none exists. Values are normalized (trimmed, lower-cased enums, expanded ~
// paths, SHORTSYNC_OUTPUT_DIR and SHORTSYNC_SYNTH_URL overrides) before
// Validate runs, so callers only ever see a usable Config.
package config

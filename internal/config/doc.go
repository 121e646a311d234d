// SPDX-License-Identifier: MPL-2.0

// Package config loads cppx settings with Viper.
//
// The user file is config.cue in the platform config directory
// ($XDG_CONFIG_HOME/cppx on Linux, ~/Library/Application Support/cppx on
// macOS, %APPDATA%\cppx on Windows). A .cppx.toml in the project directory
// overrides it, and CPPX_* environment variables override both
// (CPPX_COMPILER_COMMAND, CPPX_WATCH_DEBOUNCE, ...). Both file formats are
// validated against the embedded config_schema.cue.
package config

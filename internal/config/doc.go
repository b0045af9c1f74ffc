// Package config loads prokit's runtime configuration and provides the
// logging seam used by the other packages.
//
// Settings come from, in increasing precedence: built-in defaults, a YAML
// file (prokit.yaml in the working directory or ~/.config/prokit, or the
// file named by --config), a .env file in the working directory, and
// PROKIT_* environment variables. Nested keys use an underscore in the
// environment, so poll.interval is PROKIT_POLL_INTERVAL.
//
// Packages log through the Logger interface. NewLogrusLogger adapts a
// logrus logger; NopLogger discards everything.
package config

// Package config resolves meetmcp settings from the environment.
//
// Values come from, in order of precedence: command-line flags (applied by
// the cmd package), the primary environment variable, a legacy fallback
// variable, and finally a default. An optional .env file is loaded first
// without overriding variables that are already set. Default file locations
// follow the XDG base directory specification.
package config

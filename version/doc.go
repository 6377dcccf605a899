// Package version reports the build version of the etl binary.
//
// Version, commit and build time are set at compile time via -ldflags and
// fall back to the VCS stamp Go embeds in the binary.
package version

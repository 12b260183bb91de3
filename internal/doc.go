// Package internal contains helper utilities that are intentionally private to
// sentinel, including secure random generation and device fingerprint helpers.
//
// # What this package must NOT do
//
//   - Export types that appear in the public sentinel API.
//   - Be imported by any package outside the sentinel module.
package internal

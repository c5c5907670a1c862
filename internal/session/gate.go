// Package session implements the PIN gate shared by every protected request.
package session

import "crypto/subtle"

// Authorize reports whether supplied matches the configured PIN.
// An empty configured PIN disables the gate.
func Authorize(supplied, configured string) bool {
	if configured == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(configured)) == 1
}

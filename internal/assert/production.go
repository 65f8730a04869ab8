//go:build !brkdebug

package assert

// Enabled is true when built with -tags brkdebug.
const Enabled = false

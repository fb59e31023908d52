// Package testpilot holds module-wide metadata for the testpilot
// test-execution orchestrator.
package testpilot

// Version is the testpilot release version.
const Version = "0.2.0"

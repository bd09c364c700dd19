// Package runner wraps one restore run for the command line.
//
// It picks the state sink for the mode, recovers panics from the
// orchestrator and its collaborators, and turns the result into a process
// exit code. It never terminates the process itself.
package runner

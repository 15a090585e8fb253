// Package cli constructs the git-file-rename command-line interface. It wires
// the Cobra root command, the layered configuration loader, zap diagnostics,
// and the batch orchestrator, then renders the run summary.
package cli

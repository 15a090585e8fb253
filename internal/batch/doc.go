// Package batch drives a rename or fix run across every repository in the configured list:
// it materializes each clone, prepares branches, runs the rename engine, and publishes results.
package batch

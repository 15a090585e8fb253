// Package ui renders human-facing console output: styled progress lines,
// git command lifecycle messages, and the end-of-run summary table.
package ui

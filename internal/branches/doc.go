// Package branches prepares the base and working branches of a clone.
//
// Service checks out and refreshes the configured base branch, then switches
// to the working branch that receives the renamed copies, creating it when
// allowed.
package branches

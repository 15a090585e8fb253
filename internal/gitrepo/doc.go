// Package gitrepo wraps the git operations needed to materialize, update, and publish repositories.
//
// RepositoryManager runs clone, branch, fetch, pull, status, commit, and push
// through a shared executor and applies a bounded retry policy to the
// network-sensitive clone and push calls. RepositoryLocator turns repository
// list entries into clone URLs and local directory names.
package gitrepo

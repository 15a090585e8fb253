package shared

import (
	"context"
	"io/fs"
	"time"

	"github.com/temirov/gitrename/internal/execshell"
)

const (
	// OriginRemoteNameConstant identifies the remote that clones are created from and pushed to.
	OriginRemoteNameConstant = "origin"
	// GitMetadataDirectoryNameConstant names the version-control metadata directory excluded from every walk.
	GitMetadataDirectoryNameConstant = ".git"
)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FileSystem exposes the filesystem operations required by the rename engine and the orchestrator.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	MkdirAll(path string, permissions fs.FileMode) error
	WalkDir(root string, walkFunction fs.WalkDirFunc) error
	// CopyFile copies a regular file or symbolic link, preserving mode and modification time.
	CopyFile(sourcePath string, destinationPath string) error
	// CopyTree recursively copies a directory, preserving modes, modification times, and symbolic links.
	CopyTree(sourcePath string, destinationPath string) error
}

// GitExecutor exposes the subset of shell execution used by repository services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// GitRepositoryManager exposes repository-level git operations.
type GitRepositoryManager interface {
	Clone(executionContext context.Context, remoteURL string, destinationPath string) error
	CurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	BranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error)
	Checkout(executionContext context.Context, repositoryPath string, branchName string) error
	CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error
	Fetch(executionContext context.Context, repositoryPath string, remoteName string, refSpec string) error
	Pull(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
	CountCommitsAhead(executionContext context.Context, repositoryPath string, upstreamReference string) (int, error)
	StatusPorcelain(executionContext context.Context, repositoryPath string) (string, error)
	AddAll(executionContext context.Context, repositoryPath string) error
	Commit(executionContext context.Context, repositoryPath string, message string) error
	Push(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
}

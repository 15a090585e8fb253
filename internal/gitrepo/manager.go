package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/gitrename/internal/execshell"
	"github.com/temirov/gitrename/internal/repos/shared"
	"github.com/temirov/gitrename/internal/retry"
)

const (
	gitExecutorMissingMessageConstant           = "git executor not configured"
	gitCloneSubcommandConstant                  = "clone"
	gitBranchSubcommandConstant                 = "branch"
	gitShowCurrentFlagConstant                  = "--show-current"
	gitShowRefSubcommandConstant                = "show-ref"
	gitVerifyFlagConstant                       = "--verify"
	gitLocalBranchReferenceTemplateConstant     = "refs/heads/%s"
	gitCheckoutSubcommandConstant               = "checkout"
	gitCreateBranchFlagConstant                 = "-b"
	gitFetchSubcommandConstant                  = "fetch"
	gitPullSubcommandConstant                   = "pull"
	gitRevListSubcommandConstant                = "rev-list"
	gitCountFlagConstant                        = "--count"
	gitAheadRangeTemplateConstant               = "%s..HEAD"
	gitStatusSubcommandConstant                 = "status"
	gitPorcelainFlagConstant                    = "--porcelain"
	gitAddSubcommandConstant                    = "add"
	gitAllFlagConstant                          = "-A"
	gitCommitSubcommandConstant                 = "commit"
	gitMessageFlagConstant                      = "-m"
	gitPushSubcommandConstant                   = "push"
	gitTerminalPromptEnvironmentNameConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentDisableConstant = "0"
	cloneFailureTemplateConstant                = "clone %s: %w"
	pushFailureTemplateConstant                 = "push %s to %s: %w"
	currentBranchFailureTemplateConstant        = "determine current branch: %w"
	branchLookupFailureTemplateConstant         = "look up branch %q: %w"
	checkoutFailureTemplateConstant             = "checkout %q: %w"
	createBranchFailureTemplateConstant         = "create branch %q: %w"
	fetchFailureTemplateConstant                = "fetch %s %s: %w"
	pullFailureTemplateConstant                 = "pull %s %s: %w"
	countCommitsFailureTemplateConstant         = "count commits ahead of %s: %w"
	countCommitsParseTemplateConstant           = "parse commit count %q: %w"
	statusFailureTemplateConstant               = "read worktree status: %w"
	addFailureTemplateConstant                  = "stage changes: %w"
	commitFailureTemplateConstant               = "commit changes: %w"
)

// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// RepositoryManager runs git operations against local clones.
type RepositoryManager struct {
	executor      shared.GitExecutor
	networkPolicy retry.Policy
}

// NewRepositoryManager constructs a manager. The network policy governs clone and push.
func NewRepositoryManager(executor shared.GitExecutor, networkPolicy retry.Policy) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if validationError := networkPolicy.Validate(); validationError != nil {
		return nil, validationError
	}
	return &RepositoryManager{executor: executor, networkPolicy: networkPolicy}, nil
}

// Clone clones the remote into the destination directory, retrying transient failures.
func (manager *RepositoryManager) Clone(executionContext context.Context, remoteURL string, destinationPath string) error {
	cloneError := manager.networkPolicy.Execute(executionContext, func(attemptContext context.Context, _ int) error {
		_, executionError := manager.executeGit(attemptContext, "", gitCloneSubcommandConstant, remoteURL, destinationPath)
		return executionError
	})
	if cloneError != nil {
		return fmt.Errorf(cloneFailureTemplateConstant, execshell.RedactURL(remoteURL), cloneError)
	}
	return nil
}

// CurrentBranch reports the checked out branch, or an empty string on a detached HEAD.
func (manager *RepositoryManager) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	result, executionError := manager.executeGit(executionContext, repositoryPath, gitBranchSubcommandConstant, gitShowCurrentFlagConstant)
	if executionError != nil {
		return "", fmt.Errorf(currentBranchFailureTemplateConstant, executionError)
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

// BranchExists reports whether a local branch exists. A failed lookup counts as absent.
func (manager *RepositoryManager) BranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error) {
	reference := fmt.Sprintf(gitLocalBranchReferenceTemplateConstant, branchName)
	_, executionError := manager.executeGit(executionContext, repositoryPath, gitShowRefSubcommandConstant, gitVerifyFlagConstant, reference)
	if executionError == nil {
		return true, nil
	}
	if _, exited := execshell.ExitCode(executionError); exited {
		return false, nil
	}
	return false, fmt.Errorf(branchLookupFailureTemplateConstant, branchName, executionError)
}

// Checkout switches to an existing branch.
func (manager *RepositoryManager) Checkout(executionContext context.Context, repositoryPath string, branchName string) error {
	if _, executionError := manager.executeGit(executionContext, repositoryPath, gitCheckoutSubcommandConstant, branchName); executionError != nil {
		return fmt.Errorf(checkoutFailureTemplateConstant, branchName, executionError)
	}
	return nil
}

// CreateBranch creates a branch from HEAD and switches to it.
func (manager *RepositoryManager) CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	if _, executionError := manager.executeGit(executionContext, repositoryPath, gitCheckoutSubcommandConstant, gitCreateBranchFlagConstant, branchName); executionError != nil {
		return fmt.Errorf(createBranchFailureTemplateConstant, branchName, executionError)
	}
	return nil
}

// Fetch fetches a ref spec from the remote.
func (manager *RepositoryManager) Fetch(executionContext context.Context, repositoryPath string, remoteName string, refSpec string) error {
	if _, executionError := manager.executeGit(executionContext, repositoryPath, gitFetchSubcommandConstant, remoteName, refSpec); executionError != nil {
		return fmt.Errorf(fetchFailureTemplateConstant, remoteName, refSpec, executionError)
	}
	return nil
}

// Pull merges the remote branch into the current branch.
func (manager *RepositoryManager) Pull(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	if _, executionError := manager.executeGit(executionContext, repositoryPath, gitPullSubcommandConstant, remoteName, branchName); executionError != nil {
		return fmt.Errorf(pullFailureTemplateConstant, remoteName, branchName, executionError)
	}
	return nil
}

// CountCommitsAhead counts commits reachable from HEAD but not from the upstream reference.
func (manager *RepositoryManager) CountCommitsAhead(executionContext context.Context, repositoryPath string, upstreamReference string) (int, error) {
	revisionRange := fmt.Sprintf(gitAheadRangeTemplateConstant, upstreamReference)
	result, executionError := manager.executeGit(executionContext, repositoryPath, gitRevListSubcommandConstant, gitCountFlagConstant, revisionRange)
	if executionError != nil {
		return 0, fmt.Errorf(countCommitsFailureTemplateConstant, upstreamReference, executionError)
	}
	trimmedOutput := strings.TrimSpace(result.StandardOutput)
	if len(trimmedOutput) == 0 {
		return 0, nil
	}
	count, parseError := strconv.Atoi(trimmedOutput)
	if parseError != nil {
		return 0, fmt.Errorf(countCommitsParseTemplateConstant, trimmedOutput, parseError)
	}
	return count, nil
}

// StatusPorcelain returns the machine-readable worktree status.
func (manager *RepositoryManager) StatusPorcelain(executionContext context.Context, repositoryPath string) (string, error) {
	result, executionError := manager.executeGit(executionContext, repositoryPath, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if executionError != nil {
		return "", fmt.Errorf(statusFailureTemplateConstant, executionError)
	}
	return result.StandardOutput, nil
}

// AddAll stages every change in the worktree.
func (manager *RepositoryManager) AddAll(executionContext context.Context, repositoryPath string) error {
	if _, executionError := manager.executeGit(executionContext, repositoryPath, gitAddSubcommandConstant, gitAllFlagConstant); executionError != nil {
		return fmt.Errorf(addFailureTemplateConstant, executionError)
	}
	return nil
}

// Commit records staged changes with the message.
func (manager *RepositoryManager) Commit(executionContext context.Context, repositoryPath string, message string) error {
	if _, executionError := manager.executeGit(executionContext, repositoryPath, gitCommitSubcommandConstant, gitMessageFlagConstant, message); executionError != nil {
		return fmt.Errorf(commitFailureTemplateConstant, executionError)
	}
	return nil
}

// Push publishes the branch to the remote, retrying transient failures.
func (manager *RepositoryManager) Push(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	pushError := manager.networkPolicy.Execute(executionContext, func(attemptContext context.Context, _ int) error {
		_, executionError := manager.executeGit(attemptContext, repositoryPath, gitPushSubcommandConstant, remoteName, branchName)
		return executionError
	})
	if pushError != nil {
		return fmt.Errorf(pushFailureTemplateConstant, branchName, remoteName, pushError)
	}
	return nil
}

func (manager *RepositoryManager) executeGit(executionContext context.Context, workingDirectory string, arguments ...string) (execshell.ExecutionResult, error) {
	return manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: workingDirectory,
		EnvironmentVariables: map[string]string{
			gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentDisableConstant,
		},
	})
}

package branches

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/gitrename/internal/repos/shared"
)

const (
	repositoryManagerMissingMessageConstant = "repository manager not configured"
	reporterMissingMessageConstant          = "reporter not configured"
	repositoryPathRequiredMessageConstant   = "repository path must be provided"
	workingBranchMissingMessageConstant     = "working branch does not exist and automatic creation is disabled"
	remoteTrackingReferenceTemplateConstant = "%s/%s"
	localFetchRefSpecTemplateConstant       = "%s:%s"
	baseBranchFailureTemplateConstant       = "base branch %q: %w"
	workingBranchFailureTemplateConstant    = "working branch %q: %w"
	checkingOutBaseMessageConstant          = "Checking out base branch: %s"
	checkedOutBaseMessageConstant           = "Checked out base branch: %s"
	fetchingMissingBaseMessageConstant      = "Branch not found locally, trying to fetch from remote..."
	fetchedBaseMessageConstant              = "Fetched and checked out base branch: %s"
	alreadyOnBaseMessageConstant            = "Already on base branch: %s"
	pullingMessageConstant                  = "Pulling latest changes from %s/%s..."
	pulledMessageConstant                   = "Successfully pulled latest changes"
	skippingPullMessageConstant             = "Local branch has %d commit(s) ahead of remote - skipping pull"
	checkingOutWorkingMessageConstant       = "Checking out existing branch: %s"
	creatingWorkingMessageConstant          = "Creating new branch: %s"
	workingBranchMissingWarningConstant     = "Branch %s does not exist and automatic branch creation is disabled"
	bestEffortFailureWarningConstant        = "Could not update %s from %s: %v"
)

// ErrRepositoryManagerNotConfigured indicates the repository manager dependency was missing.
var ErrRepositoryManagerNotConfigured = errors.New(repositoryManagerMissingMessageConstant)

// ErrReporterNotConfigured indicates the reporter dependency was missing.
var ErrReporterNotConfigured = errors.New(reporterMissingMessageConstant)

// ErrRepositoryPathRequired indicates the repository path was empty.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ErrWorkingBranchMissing indicates the working branch is absent and may not be created.
var ErrWorkingBranchMissing = errors.New(workingBranchMissingMessageConstant)

// Dependencies enumerates external collaborators required for branch preparation.
type Dependencies struct {
	RepositoryManager shared.GitRepositoryManager
	Reporter          shared.Reporter
}

// Service prepares the base and working branches of a clone before files are processed.
type Service struct {
	repositoryManager shared.GitRepositoryManager
	reporter          shared.Reporter
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.RepositoryManager == nil {
		return nil, ErrRepositoryManagerNotConfigured
	}
	if dependencies.Reporter == nil {
		return nil, ErrReporterNotConfigured
	}
	return &Service{repositoryManager: dependencies.RepositoryManager, reporter: dependencies.Reporter}, nil
}

// SyncBaseBranch checks out the base branch and pulls it when it has no unpublished commits.
// An empty branch name leaves the clone untouched.
func (service *Service) SyncBaseBranch(executionContext context.Context, repositoryPath string, branchName shared.BranchName) error {
	if branchName.IsEmpty() {
		return nil
	}
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return ErrRepositoryPathRequired
	}
	branch := branchName.String()

	if syncError := service.syncBaseBranch(executionContext, trimmedRepositoryPath, branch); syncError != nil {
		return fmt.Errorf(baseBranchFailureTemplateConstant, branch, syncError)
	}
	return nil
}

func (service *Service) syncBaseBranch(executionContext context.Context, repositoryPath string, branch string) error {
	currentBranch, currentBranchError := service.repositoryManager.CurrentBranch(executionContext, repositoryPath)
	if currentBranchError != nil {
		return currentBranchError
	}

	if currentBranch == branch {
		service.reporter.Infof(alreadyOnBaseMessageConstant, branch)
	} else {
		service.reporter.Infof(checkingOutBaseMessageConstant, branch)
		if checkoutError := service.repositoryManager.Checkout(executionContext, repositoryPath, branch); checkoutError == nil {
			service.reporter.Successf(checkedOutBaseMessageConstant, branch)
		} else {
			service.reporter.Infof(fetchingMissingBaseMessageConstant)
			localRefSpec := fmt.Sprintf(localFetchRefSpecTemplateConstant, branch, branch)
			if fetchError := service.repositoryManager.Fetch(executionContext, repositoryPath, shared.OriginRemoteNameConstant, localRefSpec); fetchError != nil {
				return fetchError
			}
			if retryCheckoutError := service.repositoryManager.Checkout(executionContext, repositoryPath, branch); retryCheckoutError != nil {
				return retryCheckoutError
			}
			service.reporter.Successf(fetchedBaseMessageConstant, branch)
		}
	}

	if fetchError := service.repositoryManager.Fetch(executionContext, repositoryPath, shared.OriginRemoteNameConstant, branch); fetchError != nil {
		return fetchError
	}

	commitsAhead := service.commitsAhead(executionContext, repositoryPath, branch)
	if commitsAhead > 0 {
		service.reporter.Infof(skippingPullMessageConstant, commitsAhead)
		return nil
	}

	service.reporter.Infof(pullingMessageConstant, shared.OriginRemoteNameConstant, branch)
	if pullError := service.repositoryManager.Pull(executionContext, repositoryPath, shared.OriginRemoteNameConstant, branch); pullError != nil {
		return pullError
	}
	service.reporter.Successf(pulledMessageConstant)
	return nil
}

// EnsureWorkingBranch checks out the working branch, creating it from HEAD when allowed.
// Updating an existing branch from the remote is best effort. An empty branch name is a no-op.
func (service *Service) EnsureWorkingBranch(executionContext context.Context, repositoryPath string, branchName shared.BranchName, autoCreate bool) error {
	if branchName.IsEmpty() {
		return nil
	}
	trimmedRepositoryPath := strings.TrimSpace(repositoryPath)
	if len(trimmedRepositoryPath) == 0 {
		return ErrRepositoryPathRequired
	}
	branch := branchName.String()

	exists, lookupError := service.repositoryManager.BranchExists(executionContext, trimmedRepositoryPath, branch)
	if lookupError != nil {
		return fmt.Errorf(workingBranchFailureTemplateConstant, branch, lookupError)
	}

	if !exists {
		if !autoCreate {
			service.reporter.Warningf(workingBranchMissingWarningConstant, branch)
			return fmt.Errorf(workingBranchFailureTemplateConstant, branch, ErrWorkingBranchMissing)
		}
		service.reporter.Infof(creatingWorkingMessageConstant, branch)
		if createError := service.repositoryManager.CreateBranch(executionContext, trimmedRepositoryPath, branch); createError != nil {
			return fmt.Errorf(workingBranchFailureTemplateConstant, branch, createError)
		}
		return nil
	}

	service.reporter.Infof(checkingOutWorkingMessageConstant, branch)
	if checkoutError := service.repositoryManager.Checkout(executionContext, trimmedRepositoryPath, branch); checkoutError != nil {
		return fmt.Errorf(workingBranchFailureTemplateConstant, branch, checkoutError)
	}

	remoteReference := fmt.Sprintf(remoteTrackingReferenceTemplateConstant, shared.OriginRemoteNameConstant, branch)
	if fetchError := service.repositoryManager.Fetch(executionContext, trimmedRepositoryPath, shared.OriginRemoteNameConstant, branch); fetchError != nil {
		service.reporter.Warningf(bestEffortFailureWarningConstant, branch, remoteReference, fetchError)
	}

	commitsAhead := service.commitsAhead(executionContext, trimmedRepositoryPath, branch)
	if commitsAhead > 0 {
		service.reporter.Infof(skippingPullMessageConstant, commitsAhead)
		return nil
	}

	service.reporter.Infof(pullingMessageConstant, shared.OriginRemoteNameConstant, branch)
	if pullError := service.repositoryManager.Pull(executionContext, trimmedRepositoryPath, shared.OriginRemoteNameConstant, branch); pullError != nil {
		service.reporter.Warningf(bestEffortFailureWarningConstant, branch, remoteReference, pullError)
		return nil
	}
	service.reporter.Successf(pulledMessageConstant)
	return nil
}

// commitsAhead treats an unknown upstream as zero commits ahead.
func (service *Service) commitsAhead(executionContext context.Context, repositoryPath string, branch string) int {
	remoteReference := fmt.Sprintf(remoteTrackingReferenceTemplateConstant, shared.OriginRemoteNameConstant, branch)
	count, countError := service.repositoryManager.CountCommitsAhead(executionContext, repositoryPath, remoteReference)
	if countError != nil {
		return 0
	}
	return count
}

package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gitrename/internal/execshell"
	"github.com/temirov/gitrename/internal/gitrepo"
	"github.com/temirov/gitrename/internal/repos/rename"
	"github.com/temirov/gitrename/internal/repos/shared"
	"github.com/temirov/gitrename/internal/retry"
	"github.com/temirov/gitrename/internal/runlog"
)

const (
	orchestratorDependencyMissingMessage = "batch orchestrator dependencies not configured"
	workDirectoryFailureTemplate         = "create work directory %s: %w"
	workDirectoryPermissionsConstant     = 0o755
	startingHeaderMessage                = "Git File Rename - Starting"
	copyModeDescription                  = "MODE: Copy and rename files/directories"
	fixModeDescription                   = "MODE: Fix existing files (content replacement only)"
	repositoryListMessage                = "Repository list: %s"
	workDirectoryMessage                 = "Working directory: %s"
	logFileMessage                       = "Log file: %s"
	replacementCountMessage              = "Replacements: %d"
	caseSensitiveMessage                 = "Case sensitive: %t"
	baseBranchMessage                    = "Base branch: %s"
	workingBranchMessage                 = "Working branch: %s"
	currentBranchLabel                   = "current"
	replacementMappingsMessage           = "Replacement mappings:"
	replacementMappingMessage            = "  %s"
	processingHeaderMessage              = "Processing repository: %s"
	processingFixHeaderMessage           = "Processing repository (FIX MODE): %s"
	unresolvedRepositoryMessage          = "Cannot resolve repository %s: %v"
	cloningMessage                       = "Cloning repository: %s"
	clonedMessage                        = "Successfully cloned to: %s"
	cloneFailedMessage                   = "Failed to clone repository after %d attempt(s): %s"
	baseBranchFailedMessage              = "Failed to checkout base branch: %s"
	workingBranchFailedMessage           = "Failed to prepare working branch: %s"
	processingFailedMessage              = "Processing stopped for %s: %v"
	itemsCopiedMessage                   = "Items copied in %s: %d"
	itemsFixedMessage                    = "Items fixed in %s: %d"
	pushSkippedMessage                   = "Skipping push for %s: git operations failed earlier"
	pushHeaderMessage                    = "Git Push Operations for %s"
	noChangesMessage                     = "No changes to commit"
	gitOperationsMessage                 = "Git operations in: %s"
	addingMessage                        = "  Adding changes..."
	committingMessage                    = "  Committing with message: '%s'"
	pushingMessage                       = "  Pushing to branch: %s"
	pushedMessage                        = "Successfully pushed changes"
	pushFailedMessage                    = "Failed to push changes after %d attempt(s)"
	gitOperationFailedMessage            = "Git operation failed: %v"
	runStartedLogLine                    = "=== Git File Rename Started (run %s) ==="
	runModeLogLine                       = "Mode: %s"
	copyModeLogLabel                     = "Copy and rename"
	fixModeLogLabel                      = "Fix content only"
	runCompletedLogLine                  = "=== Run Completed ==="
	totalItemsLogLine                    = "Total items: %d"
	successfulRepositoriesLogLine        = "Successful repos: %d/%d"
	existingCloneDetails                 = "Using existing clone"
	newCloneDetails                      = "New clone"
	cloneFailedDetails                   = "Clone failed after %d attempts"
	unresolvedDetails                    = "Cannot resolve clone URL: %v"
	invalidNameDetails                   = "Invalid repository name: %v"
	branchDetails                        = "Branch: %s"
	repositoryLogField                   = "repository"
	repositoryFailureLogMessage          = "repository processing failed"
)

// ErrOrchestratorNotConfigured indicates missing collaborators.
var ErrOrchestratorNotConfigured = errors.New(orchestratorDependencyMissingMessage)

// BranchPreparer synchronizes the base branch and prepares the working branch of a clone.
type BranchPreparer interface {
	SyncBaseBranch(executionContext context.Context, repositoryPath string, branchName shared.BranchName) error
	EnsureWorkingBranch(executionContext context.Context, repositoryPath string, branchName shared.BranchName, autoCreate bool) error
}

// TreeProcessor runs the copy or fix engine over one repository tree.
type TreeProcessor interface {
	Execute(options rename.Options) (rename.Result, error)
}

// RunRecorder appends the human-readable run log.
type RunRecorder interface {
	RunID() string
	Recordf(format string, args ...any)
	RecordRepository(repositoryName string, status runlog.RepositoryStatus, details string)
}

// Dependencies enumerates the collaborators of an Orchestrator.
type Dependencies struct {
	RepositoryManager shared.GitRepositoryManager
	Branches          BranchPreparer
	Processor         TreeProcessor
	FileSystem        shared.FileSystem
	Reporter          shared.Reporter
	RunLog            RunRecorder
	Clock             shared.Clock
	Logger            *zap.Logger
}

// Options is a fully resolved run.
type Options struct {
	RepositoryListPath string
	LogFilePath        string
	Repositories       []string
	Locator            gitrepo.RepositoryLocator
	WorkDirectory      string
	BaseBranch         shared.BranchName
	WorkingBranch      shared.BranchName
	AutoCreateBranch   bool
	Replacements       []shared.ReplacementPair
	CaseSensitive      bool
	Mode               shared.Mode
	MutationPolicy     shared.MutationPolicy
	Push               bool
	CommitMessage      string
}

// NewOptions resolves a validated configuration, the repository list, and the run flags into Options.
func NewOptions(configuration Configuration, repositories []string, dryRun bool, push bool) (Options, error) {
	if validationError := configuration.Validate(); validationError != nil {
		return Options{}, validationError
	}
	locator, locatorError := configuration.Locator()
	if locatorError != nil {
		return Options{}, ConfigurationError{Field: authMethodFieldConstant, Cause: locatorError}
	}
	baseBranch, _ := shared.ParseBranchNameOptional(configuration.BaseBranch)
	workingBranch, _ := shared.ParseBranchNameOptional(configuration.WorkingBranch)

	return Options{
		RepositoryListPath: configuration.RepositoryList,
		LogFilePath:        configuration.LogFile,
		Repositories:       repositories,
		Locator:            locator,
		WorkDirectory:      configuration.WorkDirectory,
		BaseBranch:         baseBranch,
		WorkingBranch:      workingBranch,
		AutoCreateBranch:   configuration.AutoCreateBranch,
		Replacements:       configuration.Replacements,
		CaseSensitive:      configuration.CaseSensitive,
		Mode:               shared.ModeFromFixFlag(configuration.FixMode),
		MutationPolicy:     shared.MutationPolicyFromDryRun(dryRun),
		Push:               push,
		CommitMessage:      configuration.CommitMessage,
	}, nil
}

// Orchestrator processes repositories one at a time in list order.
type Orchestrator struct {
	repositoryManager shared.GitRepositoryManager
	branches          BranchPreparer
	processor         TreeProcessor
	fileSystem        shared.FileSystem
	reporter          shared.Reporter
	runLog            RunRecorder
	clock             shared.Clock
	logger            *zap.Logger
}

// NewOrchestrator constructs an Orchestrator from the provided dependencies.
func NewOrchestrator(dependencies Dependencies) (*Orchestrator, error) {
	if dependencies.RepositoryManager == nil || dependencies.Branches == nil || dependencies.Processor == nil ||
		dependencies.FileSystem == nil || dependencies.Reporter == nil || dependencies.RunLog == nil {
		return nil, ErrOrchestratorNotConfigured
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		repositoryManager: dependencies.RepositoryManager,
		branches:          dependencies.Branches,
		processor:         dependencies.Processor,
		fileSystem:        dependencies.FileSystem,
		reporter:          dependencies.Reporter,
		runLog:            dependencies.RunLog,
		clock:             clock,
		logger:            logger,
	}, nil
}

// Run processes every repository and returns the aggregated summary.
// Only a failure to create the work directory aborts the run; repository failures are recorded and skipped.
func (orchestrator *Orchestrator) Run(executionContext context.Context, options Options) (Summary, error) {
	summary := Summary{
		RunID:        orchestrator.runLog.RunID(),
		StartedAt:    orchestrator.clock.Now(),
		Mode:         options.Mode,
		DryRun:       options.MutationPolicy.IsPreview(),
		Replacements: options.Replacements,
	}

	orchestrator.printRunHeader(options)
	orchestrator.runLog.Recordf(runStartedLogLine, summary.RunID)
	orchestrator.runLog.Recordf(runModeLogLine, modeLogLabel(options.Mode))

	if directoryError := orchestrator.fileSystem.MkdirAll(options.WorkDirectory, workDirectoryPermissionsConstant); directoryError != nil {
		return summary, fmt.Errorf(workDirectoryFailureTemplate, options.WorkDirectory, directoryError)
	}

	for _, identifier := range options.Repositories {
		orchestrator.reporter.Printf("")
		repositoryResult := orchestrator.processRepository(executionContext, options, identifier)
		summary.Repositories = append(summary.Repositories, repositoryResult)
	}

	summary.FinishedAt = orchestrator.clock.Now()
	orchestrator.runLog.Recordf(runCompletedLogLine)
	orchestrator.runLog.Recordf(totalItemsLogLine, summary.TotalItems())
	orchestrator.runLog.Recordf(successfulRepositoriesLogLine, summary.SuccessfulRepositories(), len(summary.Repositories))
	return summary, nil
}

func (orchestrator *Orchestrator) printRunHeader(options Options) {
	orchestrator.reporter.Headerf(startingHeaderMessage)
	if options.Mode == shared.ModeFix {
		orchestrator.reporter.Printf(fixModeDescription)
	} else {
		orchestrator.reporter.Printf(copyModeDescription)
	}
	orchestrator.reporter.Printf(repositoryListMessage, options.RepositoryListPath)
	orchestrator.reporter.Printf(workDirectoryMessage, options.WorkDirectory)
	orchestrator.reporter.Printf(logFileMessage, options.LogFilePath)
	orchestrator.reporter.Printf("")
	orchestrator.reporter.Infof(replacementCountMessage, len(options.Replacements))
	orchestrator.reporter.Infof(caseSensitiveMessage, options.CaseSensitive)
	orchestrator.reporter.Infof(baseBranchMessage, branchLabel(options.BaseBranch))
	orchestrator.reporter.Infof(workingBranchMessage, branchLabel(options.WorkingBranch))
	orchestrator.reporter.Printf("")
	orchestrator.reporter.Printf(replacementMappingsMessage)
	for _, pair := range options.Replacements {
		orchestrator.reporter.Printf(replacementMappingMessage, pair)
	}
}

func (orchestrator *Orchestrator) processRepository(executionContext context.Context, options Options, identifier string) RepositoryResult {
	repositoryName, nameError := gitrepo.RepositoryName(identifier)
	if nameError != nil {
		result := RepositoryResult{Identifier: identifier, Name: identifier, CloneStatus: runlog.StatusFailed, Error: nameError}
		orchestrator.reporter.Headerf(processingHeaderMessage, identifier)
		orchestrator.reporter.Errorf(unresolvedRepositoryMessage, identifier, nameError)
		orchestrator.runLog.RecordRepository(identifier, runlog.StatusFailed, fmt.Sprintf(invalidNameDetails, nameError))
		return result
	}
	repositoryPath := filepath.Join(options.WorkDirectory, repositoryName)
	result := RepositoryResult{Identifier: identifier, Name: repositoryName, Path: repositoryPath}

	if options.Mode == shared.ModeFix {
		orchestrator.reporter.Headerf(processingFixHeaderMessage, repositoryName)
	} else {
		orchestrator.reporter.Headerf(processingHeaderMessage, repositoryName)
	}

	if !orchestrator.ensureClone(executionContext, options, &result) {
		return result
	}

	gitHealthy := orchestrator.prepareBranches(executionContext, options, &result)

	processingResult, processingError := orchestrator.processor.Execute(rename.Options{
		RepositoryPath: repositoryPath,
		Replacements:   options.Replacements,
		CaseSensitive:  options.CaseSensitive,
		Mode:           options.Mode,
		MutationPolicy: options.MutationPolicy,
	})
	result.ItemsProcessed = processingResult.ItemsProcessed
	result.ItemsFailed = processingResult.ItemsFailed
	if processingError != nil {
		result.Error = processingError
		orchestrator.reporter.Errorf(processingFailedMessage, repositoryName, processingError)
		orchestrator.logger.Warn(repositoryFailureLogMessage, zap.String(repositoryLogField, repositoryName), zap.Error(processingError))
	}

	orchestrator.reporter.Printf("")
	if options.Mode == shared.ModeFix {
		orchestrator.reporter.Printf(itemsFixedMessage, repositoryName, result.ItemsProcessed)
	} else {
		orchestrator.reporter.Printf(itemsCopiedMessage, repositoryName, result.ItemsProcessed)
	}

	if !options.Push || options.MutationPolicy.IsPreview() || result.ItemsProcessed == 0 {
		return result
	}
	if !gitHealthy {
		orchestrator.reporter.Warningf(pushSkippedMessage, repositoryName)
		return result
	}

	orchestrator.reporter.Printf("")
	orchestrator.reporter.Headerf(pushHeaderMessage, repositoryName)
	orchestrator.publish(executionContext, options, &result)
	return result
}

// ensureClone reuses an existing working copy or clones a new one, recording the clone status.
func (orchestrator *Orchestrator) ensureClone(executionContext context.Context, options Options, result *RepositoryResult) bool {
	if _, statError := orchestrator.fileSystem.Stat(result.Path); statError == nil {
		result.CloneStatus = runlog.StatusExists
		orchestrator.runLog.RecordRepository(result.Name, runlog.StatusExists, existingCloneDetails)
		return true
	}

	remoteURL, resolveError := options.Locator.ResolveURL(result.Identifier)
	if resolveError != nil {
		result.CloneStatus = runlog.StatusFailed
		result.Error = resolveError
		orchestrator.reporter.Errorf(unresolvedRepositoryMessage, result.Identifier, resolveError)
		orchestrator.runLog.RecordRepository(result.Name, runlog.StatusFailed, fmt.Sprintf(unresolvedDetails, resolveError))
		return false
	}

	orchestrator.reporter.Infof(cloningMessage, result.Name)
	if cloneError := orchestrator.repositoryManager.Clone(executionContext, remoteURL, result.Path); cloneError != nil {
		attempts := attemptCount(cloneError)
		result.CloneStatus = runlog.StatusFailed
		result.Error = cloneError
		orchestrator.reporter.Errorf(cloneFailedMessage, attempts, execshell.RedactURL(remoteURL))
		orchestrator.runLog.RecordRepository(result.Name, runlog.StatusFailed, fmt.Sprintf(cloneFailedDetails, attempts))
		orchestrator.logger.Warn(repositoryFailureLogMessage, zap.String(repositoryLogField, result.Name), zap.Error(cloneError))
		return false
	}

	result.CloneStatus = runlog.StatusCloned
	orchestrator.reporter.Successf(clonedMessage, result.Path)
	orchestrator.runLog.RecordRepository(result.Name, runlog.StatusCloned, newCloneDetails)
	return true
}

// prepareBranches runs the branch steps in order and stops at the first git state failure.
func (orchestrator *Orchestrator) prepareBranches(executionContext context.Context, options Options, result *RepositoryResult) bool {
	if !options.BaseBranch.IsEmpty() {
		if syncError := orchestrator.branches.SyncBaseBranch(executionContext, result.Path, options.BaseBranch); syncError != nil {
			orchestrator.reporter.Errorf(baseBranchFailedMessage, options.BaseBranch)
			orchestrator.recordGitFailure(result, syncError)
			return false
		}
	}
	if !options.WorkingBranch.IsEmpty() {
		if ensureError := orchestrator.branches.EnsureWorkingBranch(executionContext, result.Path, options.WorkingBranch, options.AutoCreateBranch); ensureError != nil {
			orchestrator.reporter.Errorf(workingBranchFailedMessage, options.WorkingBranch)
			orchestrator.recordGitFailure(result, ensureError)
			return false
		}
	}
	return true
}

// publish stages, commits, and pushes the working tree, recording the push status.
func (orchestrator *Orchestrator) publish(executionContext context.Context, options Options, result *RepositoryResult) {
	status, statusError := orchestrator.repositoryManager.StatusPorcelain(executionContext, result.Path)
	if statusError != nil {
		orchestrator.reportGitOperationFailure(result, statusError)
		return
	}
	if len(strings.TrimSpace(status)) == 0 {
		orchestrator.reporter.Infof(noChangesMessage)
		return
	}

	orchestrator.reporter.Infof(gitOperationsMessage, result.Name)
	orchestrator.reporter.Printf(addingMessage)
	if addError := orchestrator.repositoryManager.AddAll(executionContext, result.Path); addError != nil {
		orchestrator.reportGitOperationFailure(result, addError)
		return
	}

	orchestrator.reporter.Printf(committingMessage, options.CommitMessage)
	if commitError := orchestrator.repositoryManager.Commit(executionContext, result.Path, options.CommitMessage); commitError != nil {
		orchestrator.reportGitOperationFailure(result, commitError)
		return
	}

	branchName, branchError := orchestrator.repositoryManager.CurrentBranch(executionContext, result.Path)
	if branchError != nil {
		orchestrator.reportGitOperationFailure(result, branchError)
		return
	}

	orchestrator.reporter.Printf(pushingMessage, branchName)
	if pushError := orchestrator.repositoryManager.Push(executionContext, result.Path, shared.OriginRemoteNameConstant, branchName); pushError != nil {
		result.PushStatus = runlog.StatusPushFailed
		orchestrator.reporter.Errorf(pushFailedMessage, attemptCount(pushError))
		orchestrator.runLog.RecordRepository(result.Name, runlog.StatusPushFailed, fmt.Sprintf(branchDetails, branchName))
		orchestrator.logger.Warn(repositoryFailureLogMessage, zap.String(repositoryLogField, result.Name), zap.Error(pushError))
		return
	}

	result.PushStatus = runlog.StatusPushed
	orchestrator.reporter.Successf(pushedMessage)
	orchestrator.runLog.RecordRepository(result.Name, runlog.StatusPushed, fmt.Sprintf(branchDetails, branchName))
}

func (orchestrator *Orchestrator) reportGitOperationFailure(result *RepositoryResult, failure error) {
	orchestrator.reporter.Errorf(gitOperationFailedMessage, failure)
	orchestrator.recordGitFailure(result, failure)
}

func (orchestrator *Orchestrator) recordGitFailure(result *RepositoryResult, failure error) {
	result.GitFailed = true
	orchestrator.runLog.RecordRepository(result.Name, runlog.StatusGitFailed, failure.Error())
	orchestrator.logger.Warn(repositoryFailureLogMessage, zap.String(repositoryLogField, result.Name), zap.Error(failure))
}

func attemptCount(failure error) int {
	var exhausted retry.ExhaustedError
	if errors.As(failure, &exhausted) {
		return exhausted.Attempts
	}
	return 1
}

func branchLabel(branchName shared.BranchName) string {
	if branchName.IsEmpty() {
		return currentBranchLabel
	}
	return branchName.String()
}

func modeLogLabel(mode shared.Mode) string {
	if mode == shared.ModeFix {
		return fixModeLogLabel
	}
	return copyModeLogLabel
}

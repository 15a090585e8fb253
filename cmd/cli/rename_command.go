package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitrename/internal/batch"
	"github.com/temirov/gitrename/internal/branches"
	"github.com/temirov/gitrename/internal/execshell"
	"github.com/temirov/gitrename/internal/gitrepo"
	"github.com/temirov/gitrename/internal/report"
	"github.com/temirov/gitrename/internal/repos/discovery"
	"github.com/temirov/gitrename/internal/repos/filesystem"
	"github.com/temirov/gitrename/internal/repos/rename"
	"github.com/temirov/gitrename/internal/repos/shared"
	"github.com/temirov/gitrename/internal/runlog"
	"github.com/temirov/gitrename/internal/ui"
)

const (
	repositoriesFailedMessageConstant  = "one or more repositories failed"
	retryWarningTemplateConstant       = "Attempt %d of %d failed (%v), retrying in %s..."
	summaryHeaderConstant              = "Summary"
	totalCopiedTemplateConstant        = "Total items copied: %d"
	totalFixedTemplateConstant         = "Total items fixed: %d"
	successfulRepositoriesTemplate     = "Successful repositories: %d/%d"
	logFileTemplateConstant            = "Log file: %s"
	reportWrittenTemplateConstant      = "Report written to: %s"
	dryRunBannerConstant               = "DRY RUN MODE - No changes were made"
	runCompletedLogMessageConstant     = "batch run completed"
	runIdentifierLogFieldConstant      = "run_id"
	repositoriesLogFieldConstant       = "repositories"
	successfulLogFieldConstant         = "successful"
	itemsLogFieldConstant              = "items"
	durationLogFieldConstant           = "duration"
	reportWriteErrorTemplateConstant   = "unable to write report: %w"
	runLogOpenErrorTemplateConstant    = "unable to open run log: %w"
	pipelineAssemblyErrorTemplate      = "unable to assemble pipeline: %w"
	repositoryListEmptyWarningConstant = "Repository list %s contains no repositories"
)

// ErrRepositoriesFailed reports a completed run in which at least one repository did not succeed.
var ErrRepositoriesFailed = errors.New(repositoriesFailedMessageConstant)

func (application *Application) runRename(command *cobra.Command) error {
	renameConfiguration := application.configuration.Rename
	if validationError := renameConfiguration.Validate(); validationError != nil {
		return validationError
	}

	fileSystem := filesystem.OSFileSystem{}
	repositories, listError := batch.ReadRepositoryList(fileSystem, renameConfiguration.RepositoryList)
	if listError != nil {
		return listError
	}

	options, optionsError := batch.NewOptions(renameConfiguration, repositories, application.runFlags.dryRun, application.runFlags.push)
	if optionsError != nil {
		return optionsError
	}

	output := command.OutOrStdout()
	reporter := ui.NewConsoleReporter(output)
	if len(repositories) == 0 {
		reporter.Warningf(repositoryListEmptyWarningConstant, renameConfiguration.RepositoryList)
	}

	runLog, runLogError := runlog.Open(runlog.Options{
		FilePath:         renameConfiguration.LogFile,
		MaxSizeMegabytes: renameConfiguration.LogMaxSizeMegabytes,
		Clock:            application.dependencies.Clock,
		Logger:           application.logger,
	})
	if runLogError != nil {
		return fmt.Errorf(runLogOpenErrorTemplateConstant, runLogError)
	}
	defer func() {
		_ = runLog.Close()
	}()

	orchestrator, assemblyError := application.assembleOrchestrator(renameConfiguration, fileSystem, reporter, runLog)
	if assemblyError != nil {
		return fmt.Errorf(pipelineAssemblyErrorTemplate, assemblyError)
	}

	summary, runError := orchestrator.Run(command.Context(), options)
	if runError != nil {
		return runError
	}

	application.logger.Info(
		runCompletedLogMessageConstant,
		zap.String(runIdentifierLogFieldConstant, summary.RunID),
		zap.Int(repositoriesLogFieldConstant, len(summary.Repositories)),
		zap.Int(successfulLogFieldConstant, summary.SuccessfulRepositories()),
		zap.Int(itemsLogFieldConstant, summary.TotalItems()),
		zap.Duration(durationLogFieldConstant, summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)),
	)

	renderSummary(command, reporter, summary, renameConfiguration.LogFile)

	if len(renameConfiguration.ReportFile) > 0 {
		if reportError := report.Write(renameConfiguration.ReportFile, summary.Report()); reportError != nil {
			return fmt.Errorf(reportWriteErrorTemplateConstant, reportError)
		}
		reporter.Infof(reportWrittenTemplateConstant, renameConfiguration.ReportFile)
	}

	if !summary.AllSucceeded() {
		return ErrRepositoriesFailed
	}
	return nil
}

// assembleOrchestrator wires git execution, branch preparation, and the rename engine.
func (application *Application) assembleOrchestrator(renameConfiguration batch.Configuration, fileSystem shared.FileSystem, reporter shared.Reporter, runLog *runlog.Log) (*batch.Orchestrator, error) {
	shellExecutor, executorError := execshell.NewShellExecutorWithObserver(
		application.logger,
		application.dependencies.CommandRunner,
		ui.NewConsoleCommandEventLogger(application.logger),
	)
	if executorError != nil {
		return nil, executorError
	}

	networkPolicy := renameConfiguration.RetryPolicy()
	networkPolicy.Sleeper = application.dependencies.Sleeper
	networkPolicy.Observer = func(attempt int, maxAttempts int, failure error) {
		reporter.Warningf(retryWarningTemplateConstant, attempt, maxAttempts, failure, networkPolicy.Delay)
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(shellExecutor, networkPolicy)
	if managerError != nil {
		return nil, managerError
	}

	branchService, branchError := branches.NewService(branches.Dependencies{RepositoryManager: repositoryManager, Reporter: reporter})
	if branchError != nil {
		return nil, branchError
	}

	matcher, matcherError := discovery.NewPatternMatcher(fileSystem, renameConfiguration.Exclude)
	if matcherError != nil {
		return nil, matcherError
	}

	processor, processorError := rename.NewExecutor(rename.Dependencies{
		FileSystem: fileSystem,
		Matcher:    matcher,
		Reporter:   reporter,
		Logger:     application.logger,
	})
	if processorError != nil {
		return nil, processorError
	}

	return batch.NewOrchestrator(batch.Dependencies{
		RepositoryManager: repositoryManager,
		Branches:          branchService,
		Processor:         processor,
		FileSystem:        fileSystem,
		Reporter:          reporter,
		RunLog:            runLog,
		Clock:             application.dependencies.Clock,
		Logger:            application.logger,
	})
}

func renderSummary(command *cobra.Command, reporter shared.Reporter, summary batch.Summary, logFilePath string) {
	reporter.Printf("")
	reporter.Headerf(summaryHeaderConstant)
	if summary.Mode == shared.ModeFix {
		reporter.Infof(totalFixedTemplateConstant, summary.TotalItems())
	} else {
		reporter.Infof(totalCopiedTemplateConstant, summary.TotalItems())
	}
	reporter.Infof(successfulRepositoriesTemplate, summary.SuccessfulRepositories(), len(summary.Repositories))
	reporter.Infof(logFileTemplateConstant, logFilePath)

	if len(summary.Repositories) > 0 {
		reporter.Printf("")
		ui.RenderRepositoryTable(command.OutOrStdout(), repositoryRows(summary))
	}

	if summary.DryRun {
		reporter.Printf("")
		reporter.Warningf(dryRunBannerConstant)
	}
}

func repositoryRows(summary batch.Summary) []ui.RepositoryRow {
	rows := make([]ui.RepositoryRow, 0, len(summary.Repositories))
	for _, repository := range summary.Repositories {
		row := ui.RepositoryRow{
			Repository: repository.Name,
			Status:     repositoryStatus(repository),
			Items:      repository.ItemsProcessed,
			Failed:     repository.ItemsFailed,
		}
		if repository.Error != nil {
			row.Details = repository.Error.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

// repositoryStatus picks the most significant recorded status for the table.
func repositoryStatus(repository batch.RepositoryResult) string {
	switch {
	case !repository.Cloned():
		return string(runlog.StatusFailed)
	case repository.GitFailed:
		return string(runlog.StatusGitFailed)
	case len(repository.PushStatus) > 0:
		return string(repository.PushStatus)
	default:
		return string(repository.CloneStatus)
	}
}

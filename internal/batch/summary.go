package batch

import (
	"time"

	"github.com/temirov/gitrename/internal/report"
	"github.com/temirov/gitrename/internal/repos/shared"
	"github.com/temirov/gitrename/internal/runlog"
)

// RepositoryResult records what happened to one repository.
type RepositoryResult struct {
	Identifier     string
	Name           string
	Path           string
	CloneStatus    runlog.RepositoryStatus
	GitFailed      bool
	PushStatus     runlog.RepositoryStatus
	ItemsProcessed int
	ItemsFailed    int
	Error          error
}

// Cloned reports whether a working copy was available.
func (result RepositoryResult) Cloned() bool {
	return result.CloneStatus == runlog.StatusCloned || result.CloneStatus == runlog.StatusExists
}

// Succeeded reports whether the repository counts toward the success tally.
// Clone failures, git state failures, search failures, and failed pushes all exclude it.
func (result RepositoryResult) Succeeded() bool {
	return result.Cloned() && !result.GitFailed && result.PushStatus != runlog.StatusPushFailed && result.Error == nil
}

// Summary aggregates a whole run.
type Summary struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Mode         shared.Mode
	DryRun       bool
	Replacements []shared.ReplacementPair
	Repositories []RepositoryResult
}

// TotalItems sums the items created or fixed across repositories that had a working copy.
func (summary Summary) TotalItems() int {
	total := 0
	for _, repository := range summary.Repositories {
		if repository.Cloned() {
			total += repository.ItemsProcessed
		}
	}
	return total
}

// SuccessfulRepositories counts repositories that completed without a repository-level failure.
func (summary Summary) SuccessfulRepositories() int {
	successful := 0
	for _, repository := range summary.Repositories {
		if repository.Succeeded() {
			successful++
		}
	}
	return successful
}

// AllSucceeded reports whether the process should exit with status 0.
func (summary Summary) AllSucceeded() bool {
	return summary.SuccessfulRepositories() == len(summary.Repositories)
}

// Report converts the summary into the machine-readable report document.
func (summary Summary) Report() report.Document {
	document := report.Document{
		RunID:                  summary.RunID,
		StartedAt:              summary.StartedAt,
		FinishedAt:             summary.FinishedAt,
		Mode:                   summary.Mode.String(),
		DryRun:                 summary.DryRun,
		TotalRepositories:      len(summary.Repositories),
		SuccessfulRepositories: summary.SuccessfulRepositories(),
		TotalItems:             summary.TotalItems(),
	}
	for _, pair := range summary.Replacements {
		document.Replacements = append(document.Replacements, pair.String())
	}
	for _, repository := range summary.Repositories {
		entry := report.Repository{
			Name:           repository.Name,
			Path:           repository.Path,
			CloneStatus:    string(repository.CloneStatus),
			GitFailed:      repository.GitFailed,
			ItemsProcessed: repository.ItemsProcessed,
			ItemsFailed:    repository.ItemsFailed,
			PushStatus:     string(repository.PushStatus),
		}
		if repository.Error != nil {
			entry.Error = repository.Error.Error()
		}
		document.Repositories = append(document.Repositories, entry)
	}
	return document
}

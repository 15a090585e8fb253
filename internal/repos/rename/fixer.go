package rename

import (
	"errors"

	"github.com/temirov/gitrename/internal/repos/discovery"
	"github.com/temirov/gitrename/internal/repos/shared"
)

const (
	fixerDependencyMissingMessage = "fix engine dependencies not configured"
	dryRunFixDirectoryMessage     = "    [DRY RUN] Would replace %s in %d file(s)"
	dryRunFixFileMessage          = "    [DRY RUN] Would replace %s in file"
	fixedDirectoryMessage         = "    Fixed content in %d file(s) in directory"
	fixedFileMessage              = "      → Replaced content in: %s"
	noChangesInDirectoryMessage   = "    No changes needed in directory"
	noChangesMessage              = "    No changes needed"
	fixFailedMessage              = "    Could not fix %s: %v"
)

// ErrFixerNotConfigured indicates the fix engine was constructed without its collaborators.
var ErrFixerNotConfigured = errors.New(fixerDependencyMissingMessage)

// FixOutcome describes the result of one in-place repair.
type FixOutcome struct {
	Fixed        bool
	ChangedFiles []FileOutcome
}

// Fixer rewrites stale old values inside entries that already carry the new name.
// It never creates, renames, or deletes entries.
type Fixer struct {
	substitutor *ContentSubstitutor
	reporter    shared.Reporter
}

// NewFixer constructs a fix engine.
func NewFixer(substitutor *ContentSubstitutor, reporter shared.Reporter) (*Fixer, error) {
	if substitutor == nil || reporter == nil {
		return nil, ErrFixerNotConfigured
	}
	return &Fixer{substitutor: substitutor, reporter: reporter}, nil
}

// FixInPlace substitutes content directly in the entry. Under a preview policy it only inspects,
// and files the ledger already counted are treated as fixed, so the reported outcome matches
// what applying would change.
func (fixer *Fixer) FixInPlace(entry discovery.Entry, substitution Substitution, policy shared.MutationPolicy, ledger *PreviewLedger) (FixOutcome, error) {
	if entry.IsDirectory {
		return fixer.fixDirectory(entry, substitution, policy, ledger)
	}

	fileOutcome, fileError := fixer.substitutor.SubstituteFile(entry.Path, substitution, policy)
	if fileError != nil {
		if errors.Is(fileError, ErrNotRegularFile) {
			fixer.reporter.Printf(noChangesMessage)
			return FixOutcome{}, nil
		}
		fixer.reporter.Errorf(fixFailedMessage, entry.Name, fileError)
		return FixOutcome{}, fileError
	}
	changedFiles := []FileOutcome{fileOutcome}
	if policy.IsPreview() && fileOutcome.Changed {
		changedFiles = ledger.RecordChanges(changedFiles)
	}
	if !fileOutcome.Changed || len(changedFiles) == 0 {
		fixer.reporter.Printf(noChangesMessage)
		return FixOutcome{}, nil
	}

	if policy.IsPreview() {
		fixer.reporter.Printf(dryRunFixFileMessage, substitution.Pair())
	} else {
		fixer.reporter.Successf(fixedFileMessage, entry.Name)
	}
	return FixOutcome{Fixed: true, ChangedFiles: changedFiles}, nil
}

func (fixer *Fixer) fixDirectory(entry discovery.Entry, substitution Substitution, policy shared.MutationPolicy, ledger *PreviewLedger) (FixOutcome, error) {
	directoryOutcome, directoryError := fixer.substitutor.SubstituteDirectory(entry.Path, substitution, policy)
	if directoryError != nil {
		fixer.reporter.Errorf(fixFailedMessage, entry.Name+"/", directoryError)
		return FixOutcome{}, directoryError
	}
	for _, failure := range directoryOutcome.Failures {
		fixer.reporter.Warningf(fixFailedMessage, entry.Name+"/", failure)
	}

	if policy.IsPreview() {
		directoryOutcome.ChangedFiles = ledger.RecordChanges(directoryOutcome.ChangedFiles)
	}
	changedCount := directoryOutcome.ChangedCount()
	if changedCount == 0 {
		fixer.reporter.Printf(noChangesInDirectoryMessage)
		return FixOutcome{}, nil
	}

	if policy.IsPreview() {
		fixer.reporter.Printf(dryRunFixDirectoryMessage, substitution.Pair(), changedCount)
	} else {
		fixer.reporter.Successf(fixedDirectoryMessage, changedCount)
	}
	return FixOutcome{Fixed: true, ChangedFiles: directoryOutcome.ChangedFiles}, nil
}

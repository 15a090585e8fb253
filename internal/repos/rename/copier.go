package rename

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/temirov/gitrename/internal/repos/discovery"
	"github.com/temirov/gitrename/internal/repos/shared"
)

const (
	copierDependencyMissingMessage   = "copy engine dependencies not configured"
	targetExistsMessageConstant      = "    Target already exists: %s"
	dryRunCopyDirectoryMessage       = "    [DRY RUN] Would copy directory to: %s/"
	dryRunReplaceAllFilesMessage     = "    [DRY RUN] Would replace %s in all files"
	dryRunCopyFileMessage            = "    [DRY RUN] Would copy file to: %s"
	dryRunReplaceFileContentsMessage = "    [DRY RUN] Would replace %s in file contents"
	createdDirectoryMessage          = "    Created directory: %s/"
	createdFileMessage               = "    Created file: %s"
	replacedContentMessage           = "      → Replaced content in: %s"
	replacedDirectoryContentMessage  = "      → Replaced content in %d file(s)"
	copyFailedMessage                = "    Failed to create %s: %v"
	contentFailureMessage            = "    Content replacement incomplete in %s: %v"
	targetInspectionTemplate         = "inspect %s: %w"
)

// ErrCopierNotConfigured indicates the copy engine was constructed without its collaborators.
var ErrCopierNotConfigured = errors.New(copierDependencyMissingMessage)

// CopyOutcome describes the result of one copy-and-propagate attempt.
type CopyOutcome struct {
	Created    bool
	TargetPath string
	// Previews hold unified diffs of content changes when previews are enabled.
	Previews []FileOutcome
}

// Copier creates renamed sibling copies and propagates the substitution into the copy.
type Copier struct {
	fileSystem  shared.FileSystem
	substitutor *ContentSubstitutor
	reporter    shared.Reporter
}

// NewCopier constructs a copy engine.
func NewCopier(fileSystem shared.FileSystem, substitutor *ContentSubstitutor, reporter shared.Reporter) (*Copier, error) {
	if fileSystem == nil || substitutor == nil || reporter == nil {
		return nil, ErrCopierNotConfigured
	}
	return &Copier{fileSystem: fileSystem, substitutor: substitutor, reporter: reporter}, nil
}

// CopyAndPropagate copies the entry to a sibling named by the substitution and rewrites the copy's content.
// Entries whose name would not change, or whose target already exists, are left alone.
// The original entry is never modified. A returned error means the item failed and nothing was counted.
// Under a preview policy, targets claimed in the ledger count as existing.
func (copier *Copier) CopyAndPropagate(entry discovery.Entry, substitution Substitution, policy shared.MutationPolicy, ledger *PreviewLedger) (CopyOutcome, error) {
	newName, renamed := substitution.Transform(entry.Name)
	if !renamed {
		return CopyOutcome{}, nil
	}
	targetPath := filepath.Join(filepath.Dir(entry.Path), newName)
	outcome := CopyOutcome{TargetPath: targetPath}

	if policy.IsPreview() && ledger.TargetClaimed(targetPath) {
		copier.reporter.Warningf(targetExistsMessageConstant, newName)
		return outcome, nil
	}
	_, targetError := copier.fileSystem.Lstat(targetPath)
	if targetError == nil {
		copier.reporter.Warningf(targetExistsMessageConstant, newName)
		return outcome, nil
	}
	if !errors.Is(targetError, fs.ErrNotExist) {
		copier.reporter.Errorf(copyFailedMessage, newName, targetError)
		return outcome, fmt.Errorf(targetInspectionTemplate, targetPath, targetError)
	}

	if policy.IsPreview() {
		ledger.ClaimTarget(targetPath)
		outcome.Created = true
		outcome.Previews = copier.previewSource(entry, substitution)
		if entry.IsDirectory {
			copier.reporter.Printf(dryRunCopyDirectoryMessage, newName)
			copier.reporter.Printf(dryRunReplaceAllFilesMessage, substitution.Pair())
		} else {
			copier.reporter.Printf(dryRunCopyFileMessage, newName)
			copier.reporter.Printf(dryRunReplaceFileContentsMessage, substitution.Pair())
		}
		return outcome, nil
	}

	if entry.IsDirectory {
		if copyError := copier.fileSystem.CopyTree(entry.Path, targetPath); copyError != nil {
			copier.reporter.Errorf(copyFailedMessage, newName+"/", copyError)
			return CopyOutcome{TargetPath: targetPath}, copyError
		}
		outcome.Created = true
		copier.reporter.Successf(createdDirectoryMessage, newName)

		directoryOutcome, contentError := copier.substitutor.SubstituteDirectory(targetPath, substitution, policy)
		if contentError != nil {
			copier.reporter.Warningf(contentFailureMessage, newName, contentError)
		}
		for _, failure := range directoryOutcome.Failures {
			copier.reporter.Warningf(contentFailureMessage, newName, failure)
		}
		if directoryOutcome.ChangedCount() > 0 {
			copier.reporter.Printf(replacedDirectoryContentMessage, directoryOutcome.ChangedCount())
		}
		outcome.Previews = directoryOutcome.ChangedFiles
		return outcome, nil
	}

	if copyError := copier.fileSystem.CopyFile(entry.Path, targetPath); copyError != nil {
		copier.reporter.Errorf(copyFailedMessage, newName, copyError)
		return CopyOutcome{TargetPath: targetPath}, copyError
	}
	outcome.Created = true
	copier.reporter.Successf(createdFileMessage, newName)

	fileOutcome, contentError := copier.substitutor.SubstituteFile(targetPath, substitution, policy)
	if contentError != nil {
		if !errors.Is(contentError, ErrNotRegularFile) {
			copier.reporter.Warningf(contentFailureMessage, newName, contentError)
		}
		return outcome, nil
	}
	if fileOutcome.Changed {
		copier.reporter.Printf(replacedContentMessage, newName)
		outcome.Previews = []FileOutcome{fileOutcome}
	}
	return outcome, nil
}

// previewSource inspects the source read-only, since a fresh copy would hold identical content.
func (copier *Copier) previewSource(entry discovery.Entry, substitution Substitution) []FileOutcome {
	if entry.IsDirectory {
		directoryOutcome, _ := copier.substitutor.SubstituteDirectory(entry.Path, substitution, shared.MutationPreview)
		return directoryOutcome.ChangedFiles
	}
	fileOutcome, fileError := copier.substitutor.SubstituteFile(entry.Path, substitution, shared.MutationPreview)
	if fileError != nil || !fileOutcome.Changed {
		return nil
	}
	return []FileOutcome{fileOutcome}
}

package rename

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/gitrename/internal/repos/discovery"
	"github.com/temirov/gitrename/internal/repos/shared"
)

const (
	executorDependencyMissingMessage = "rename executor dependencies not configured"
	replacementsRequiredMessage      = "at least one replacement pair is required"
	searchingCopyMessage             = "Searching for files/directories containing '%s' in name..."
	searchingFixMessage              = "Searching for files/directories containing '%s' in name (to fix content)..."
	noMatchesMessage                 = "  No files or directories found with '%s' in name"
	foundCopyMessage                 = "  Found %d item(s)"
	foundFixMessage                  = "  Found %d item(s) to check for content replacement"
	processingDirectoryMessage       = "  Processing directory: %s/"
	processingFileMessage            = "  Processing file: %s"
	checkingDirectoryMessage         = "  Checking directory: %s/"
	checkingFileMessage              = "  Checking file: %s"
	oldWithinNewWarningMessage       = "'%s' contains '%s': entries fixed now will be selected again by the next fix run"
	searchFailedTemplate             = "search %q: %w"
	previewLogMessage                = "content change preview"
	pathLogField                     = "path"
	diffLogField                     = "diff"
	pairLogField                     = "replacement"
)

// ErrExecutorNotConfigured indicates the executor was constructed without its collaborators.
var ErrExecutorNotConfigured = errors.New(executorDependencyMissingMessage)

// ErrReplacementsRequired indicates an empty replacement list.
var ErrReplacementsRequired = errors.New(replacementsRequiredMessage)

// EntryMatcher finds entries whose names contain a pattern.
type EntryMatcher interface {
	FindEntries(root string, pattern string, caseSensitive bool) ([]discovery.Entry, error)
}

// Dependencies supplies collaborators required to process a repository tree.
type Dependencies struct {
	FileSystem shared.FileSystem
	Matcher    EntryMatcher
	Reporter   shared.Reporter
	Logger     *zap.Logger
}

// Options configures one pass over a repository tree.
type Options struct {
	RepositoryPath string
	Replacements   []shared.ReplacementPair
	CaseSensitive  bool
	Mode           shared.Mode
	MutationPolicy shared.MutationPolicy
}

// PairResult summarizes the work done for one replacement pair.
type PairResult struct {
	Pair      shared.ReplacementPair
	Matched   int
	Processed int
	Failed    int
}

// Result summarizes a pass over a repository tree.
type Result struct {
	Pairs          []PairResult
	ItemsProcessed int
	ItemsFailed    int
}

// Executor drives the copy or fix engine over every replacement pair in order.
type Executor struct {
	matcher  EntryMatcher
	reporter shared.Reporter
	logger   *zap.Logger
	copier   *Copier
	fixer    *Fixer
}

// NewExecutor constructs an Executor from the provided dependencies.
func NewExecutor(dependencies Dependencies) (*Executor, error) {
	if dependencies.FileSystem == nil || dependencies.Matcher == nil || dependencies.Reporter == nil {
		return nil, ErrExecutorNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	substitutor, substitutorError := NewContentSubstitutor(dependencies.FileSystem, logger.Core().Enabled(zap.DebugLevel))
	if substitutorError != nil {
		return nil, substitutorError
	}
	copier, copierError := NewCopier(dependencies.FileSystem, substitutor, dependencies.Reporter)
	if copierError != nil {
		return nil, copierError
	}
	fixer, fixerError := NewFixer(substitutor, dependencies.Reporter)
	if fixerError != nil {
		return nil, fixerError
	}

	return &Executor{
		matcher:  dependencies.Matcher,
		reporter: dependencies.Reporter,
		logger:   logger,
		copier:   copier,
		fixer:    fixer,
	}, nil
}

// Execute processes the replacement pairs in configured order. All work for one pair completes
// before the next pair is searched, so later pairs observe entries produced by earlier ones.
// Per-item failures are counted; only a search failure aborts the pass.
func (executor *Executor) Execute(options Options) (Result, error) {
	if len(options.Replacements) == 0 {
		return Result{}, ErrReplacementsRequired
	}

	result := Result{}
	for _, pair := range options.Replacements {
		pairResult, pairError := executor.executePair(options, pair)
		result.Pairs = append(result.Pairs, pairResult)
		result.ItemsProcessed += pairResult.Processed
		result.ItemsFailed += pairResult.Failed
		if pairError != nil {
			return result, pairError
		}
	}
	return result, nil
}

func (executor *Executor) executePair(options Options, pair shared.ReplacementPair) (PairResult, error) {
	pairResult := PairResult{Pair: pair}
	ledger := NewPreviewLedger()
	substitution := NewSubstitution(pair, options.CaseSensitive)
	pattern := options.Mode.MatchPattern(pair)

	executor.reporter.Printf("")
	if options.Mode == shared.ModeFix {
		executor.reporter.Infof(searchingFixMessage, pattern)
		if pair.OldContainedInNew(options.CaseSensitive) {
			executor.reporter.Warningf(oldWithinNewWarningMessage, pair.New, pair.Old)
		}
	} else {
		executor.reporter.Infof(searchingCopyMessage, pattern)
	}

	entries, findError := executor.matcher.FindEntries(options.RepositoryPath, pattern, options.CaseSensitive)
	if findError != nil {
		return pairResult, fmt.Errorf(searchFailedTemplate, pattern, findError)
	}
	pairResult.Matched = len(entries)
	if len(entries) == 0 {
		executor.reporter.Printf(noMatchesMessage, pattern)
		return pairResult, nil
	}

	if options.Mode == shared.ModeFix {
		executor.reporter.Printf(foundFixMessage, len(entries))
	} else {
		executor.reporter.Printf(foundCopyMessage, len(entries))
	}

	for _, entry := range entries {
		processed, previews, itemError := executor.processEntry(options, entry, substitution, ledger)
		executor.logPreviews(pair, previews)
		if itemError != nil {
			pairResult.Failed++
			continue
		}
		if processed {
			pairResult.Processed++
		}
	}
	return pairResult, nil
}

func (executor *Executor) processEntry(options Options, entry discovery.Entry, substitution Substitution, ledger *PreviewLedger) (bool, []FileOutcome, error) {
	if options.Mode == shared.ModeFix {
		if entry.IsDirectory {
			executor.reporter.Printf(checkingDirectoryMessage, entry.RelativePath)
		} else {
			executor.reporter.Printf(checkingFileMessage, entry.RelativePath)
		}
		fixOutcome, fixError := executor.fixer.FixInPlace(entry, substitution, options.MutationPolicy, ledger)
		return fixOutcome.Fixed, fixOutcome.ChangedFiles, fixError
	}

	if entry.IsDirectory {
		executor.reporter.Printf(processingDirectoryMessage, entry.RelativePath)
	} else {
		executor.reporter.Printf(processingFileMessage, entry.RelativePath)
	}
	copyOutcome, copyError := executor.copier.CopyAndPropagate(entry, substitution, options.MutationPolicy, ledger)
	return copyOutcome.Created, copyOutcome.Previews, copyError
}

func (executor *Executor) logPreviews(pair shared.ReplacementPair, previews []FileOutcome) {
	for _, preview := range previews {
		if len(preview.Preview) == 0 {
			continue
		}
		executor.logger.Debug(previewLogMessage,
			zap.String(pairLogField, pair.String()),
			zap.String(pathLogField, preview.Path),
			zap.String(diffLogField, preview.Preview),
		)
	}
}

package rename_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gitrename/internal/repos/discovery"
	"github.com/temirov/gitrename/internal/repos/rename"
	"github.com/temirov/gitrename/internal/repos/shared"
)

type failingMatcher struct {
	failure error
}

func (matcher failingMatcher) FindEntries(string, string, bool) ([]discovery.Entry, error) {
	return nil, matcher.failure
}

func newExecutor(t *testing.T, reporter shared.Reporter, logger *zap.Logger) *rename.Executor {
	t.Helper()
	matcher, matcherError := discovery.NewPatternMatcher(osFileSystem(), nil)
	require.NoError(t, matcherError)
	executor, executorError := rename.NewExecutor(rename.Dependencies{
		FileSystem: osFileSystem(),
		Matcher:    matcher,
		Reporter:   reporter,
		Logger:     logger,
	})
	require.NoError(t, executorError)
	return executor
}

func mustPair(t *testing.T, raw string) shared.ReplacementPair {
	t.Helper()
	pair, parseError := shared.ParseReplacementPair(raw)
	require.NoError(t, parseError)
	return pair
}

func TestNewExecutorRequiresDependencies(t *testing.T) {
	_, executorError := rename.NewExecutor(rename.Dependencies{FileSystem: osFileSystem()})
	require.ErrorIs(t, executorError, rename.ErrExecutorNotConfigured)
}

func TestExecutorRejectsEmptyReplacementList(t *testing.T) {
	_, executeError := newExecutor(t, discardReporter(), nil).Execute(rename.Options{RepositoryPath: t.TempDir()})
	require.ErrorIs(t, executeError, rename.ErrReplacementsRequired)
}

func TestExecutorAppliesPairsInOrder(t *testing.T) {
	rootDirectory := t.TempDir()
	writeTree(t, rootDirectory, map[string]string{"dev-service.yaml": "env: dev"})

	result, executeError := newExecutor(t, discardReporter(), nil).Execute(rename.Options{
		RepositoryPath: rootDirectory,
		Replacements:   []shared.ReplacementPair{mustPair(t, "dev|prod"), mustPair(t, "prod|stage")},
		CaseSensitive:  true,
		Mode:           shared.ModeCopy,
		MutationPolicy: shared.MutationApply,
	})
	require.NoError(t, executeError)
	require.Len(t, result.Pairs, 2)
	require.Equal(t, 1, result.Pairs[0].Processed)
	require.Equal(t, 1, result.Pairs[1].Processed)
	require.Equal(t, 2, result.ItemsProcessed)

	require.Equal(t, "env: dev", readFile(t, filepath.Join(rootDirectory, "dev-service.yaml")))
	require.Equal(t, "env: prod", readFile(t, filepath.Join(rootDirectory, "prod-service.yaml")))
	require.Equal(t, "env: stage", readFile(t, filepath.Join(rootDirectory, "stage-service.yaml")))
}

func TestExecutorDryRunMatchesRealRun(t *testing.T) {
	mixedTree := map[string]string{
		"dev-service.yaml":  "url: dev.internal",
		"dev/readme.md":     "dev mode",
		"Dev-Notes.txt":     "DEV notes",
		"dev.yaml":          "dev",
		"prod.yaml":         "existing",
		".git/dev-hook":     "dev",
		"docs/dev-guide.md": "dev guide",
	}

	testCases := []struct {
		name          string
		files         map[string]string
		caseSensitive bool
		mode          shared.Mode
		pair          string
		expectedCount int
	}{
		{name: "copy_case_sensitive", files: mixedTree, caseSensitive: true, mode: shared.ModeCopy, pair: "dev|prod", expectedCount: 3},
		{name: "copy_case_insensitive", files: mixedTree, caseSensitive: false, mode: shared.ModeCopy, pair: "dev|prod", expectedCount: 4},
		{name: "fix", files: mixedTree, caseSensitive: true, mode: shared.ModeFix, pair: "dev|dev-guide", expectedCount: 1},
		{
			name:          "fix_nested_match_counted_once",
			files:         map[string]string{"prod/prod.yaml": "dev endpoint"},
			caseSensitive: true,
			mode:          shared.ModeFix,
			pair:          "dev|prod",
			expectedCount: 1,
		},
		{
			name:          "copy_case_insensitive_shared_target",
			files:         map[string]string{"Dev.txt": "Dev", "dev.txt": "dev"},
			caseSensitive: false,
			mode:          shared.ModeCopy,
			pair:          "dev|prod",
			expectedCount: 1,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			previewDirectory := t.TempDir()
			applyDirectory := t.TempDir()
			writeTree(t, previewDirectory, testCase.files)
			writeTree(t, applyDirectory, testCase.files)
			before := snapshotTree(t, previewDirectory)

			options := rename.Options{
				Replacements:  []shared.ReplacementPair{mustPair(t, testCase.pair)},
				CaseSensitive: testCase.caseSensitive,
				Mode:          testCase.mode,
			}

			options.RepositoryPath = previewDirectory
			options.MutationPolicy = shared.MutationPreview
			previewResult, previewError := newExecutor(t, discardReporter(), nil).Execute(options)
			require.NoError(t, previewError)
			require.Equal(t, before, snapshotTree(t, previewDirectory))

			options.RepositoryPath = applyDirectory
			options.MutationPolicy = shared.MutationApply
			applyResult, applyError := newExecutor(t, discardReporter(), nil).Execute(options)
			require.NoError(t, applyError)

			require.Equal(t, testCase.expectedCount, applyResult.ItemsProcessed)
			require.Equal(t, applyResult.ItemsProcessed, previewResult.ItemsProcessed)
			require.Equal(t, applyResult.ItemsFailed, previewResult.ItemsFailed)
		})
	}
}

func TestExecutorCopyModeOutcomes(t *testing.T) {
	rootDirectory := t.TempDir()
	writeTree(t, rootDirectory, map[string]string{
		"dev-service.yaml": "url: dev.internal",
		"dev/readme.md":    "dev mode",
		"dev.yaml":         "dev",
		"prod.yaml":        "existing",
		".git/dev-hook":    "dev",
	})

	result, executeError := newExecutor(t, discardReporter(), nil).Execute(rename.Options{
		RepositoryPath: rootDirectory,
		Replacements:   []shared.ReplacementPair{mustPair(t, "dev|prod")},
		CaseSensitive:  true,
		Mode:           shared.ModeCopy,
		MutationPolicy: shared.MutationApply,
	})
	require.NoError(t, executeError)
	require.Equal(t, 3, result.Pairs[0].Matched)
	require.Equal(t, 2, result.ItemsProcessed)
	require.Zero(t, result.ItemsFailed)

	require.Equal(t, "url: prod.internal", readFile(t, filepath.Join(rootDirectory, "prod-service.yaml")))
	require.Equal(t, "prod mode", readFile(t, filepath.Join(rootDirectory, "prod", "readme.md")))
	require.Equal(t, "existing", readFile(t, filepath.Join(rootDirectory, "prod.yaml")))
	require.NoFileExists(t, filepath.Join(rootDirectory, ".git", "prod-hook"))
}

func TestExecutorFixModeRepairsInPlace(t *testing.T) {
	rootDirectory := t.TempDir()
	writeTree(t, rootDirectory, map[string]string{
		"prod-service.yaml": "dev endpoint",
		"dev-service.yaml":  "dev endpoint",
	})

	result, executeError := newExecutor(t, discardReporter(), nil).Execute(rename.Options{
		RepositoryPath: rootDirectory,
		Replacements:   []shared.ReplacementPair{mustPair(t, "dev|prod")},
		CaseSensitive:  true,
		Mode:           shared.ModeFix,
		MutationPolicy: shared.MutationApply,
	})
	require.NoError(t, executeError)
	require.Equal(t, 1, result.Pairs[0].Matched)
	require.Equal(t, 1, result.ItemsProcessed)

	require.Equal(t, "prod endpoint", readFile(t, filepath.Join(rootDirectory, "prod-service.yaml")))
	require.Equal(t, "dev endpoint", readFile(t, filepath.Join(rootDirectory, "dev-service.yaml")))
	require.Len(t, snapshotTree(t, rootDirectory), 3)
}

func TestExecutorWarnsWhenOldIsWithinNewInFixMode(t *testing.T) {
	rootDirectory := t.TempDir()
	writeTree(t, rootDirectory, map[string]string{"dev-guide.md": "dev"})

	var output bytes.Buffer
	_, executeError := newExecutor(t, shared.NewWriterReporter(&output), nil).Execute(rename.Options{
		RepositoryPath: rootDirectory,
		Replacements:   []shared.ReplacementPair{mustPair(t, "dev|dev-guide")},
		CaseSensitive:  true,
		Mode:           shared.ModeFix,
		MutationPolicy: shared.MutationPreview,
	})
	require.NoError(t, executeError)
	require.Contains(t, output.String(), "'dev-guide' contains 'dev'")
}

func TestExecutorLogsContentPreviewsAtDebugLevel(t *testing.T) {
	rootDirectory := t.TempDir()
	writeTree(t, rootDirectory, map[string]string{"dev-service.yaml": "url: dev.internal\n"})

	core, recorded := observer.New(zapcore.DebugLevel)
	_, executeError := newExecutor(t, discardReporter(), zap.New(core)).Execute(rename.Options{
		RepositoryPath: rootDirectory,
		Replacements:   []shared.ReplacementPair{mustPair(t, "dev|prod")},
		CaseSensitive:  true,
		Mode:           shared.ModeCopy,
		MutationPolicy: shared.MutationApply,
	})
	require.NoError(t, executeError)

	entries := recorded.FilterMessage("content change preview").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, filepath.Join(rootDirectory, "prod-service.yaml"), fields["path"])
	require.Contains(t, fields["diff"], "+url: prod.internal")
}

func TestExecutorAbortsOnSearchFailure(t *testing.T) {
	searchFailure := errors.New("walk failed")
	executor, executorError := rename.NewExecutor(rename.Dependencies{
		FileSystem: osFileSystem(),
		Matcher:    failingMatcher{failure: searchFailure},
		Reporter:   discardReporter(),
	})
	require.NoError(t, executorError)

	result, executeError := executor.Execute(rename.Options{
		RepositoryPath: t.TempDir(),
		Replacements:   []shared.ReplacementPair{mustPair(t, "dev|prod"), mustPair(t, "qa|stage")},
		Mode:           shared.ModeCopy,
	})
	require.ErrorIs(t, executeError, searchFailure)
	require.Len(t, result.Pairs, 1)
}

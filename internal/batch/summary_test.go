package batch_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitrename/internal/batch"
	"github.com/temirov/gitrename/internal/repos/shared"
	"github.com/temirov/gitrename/internal/runlog"
)

func TestRepositoryResultSucceeded(testInstance *testing.T) {
	testCases := []struct {
		name     string
		result   batch.RepositoryResult
		expected bool
	}{
		{name: "fresh clone", result: batch.RepositoryResult{CloneStatus: runlog.StatusCloned}, expected: true},
		{name: "existing clone pushed", result: batch.RepositoryResult{CloneStatus: runlog.StatusExists, PushStatus: runlog.StatusPushed}, expected: true},
		{name: "clone failed", result: batch.RepositoryResult{CloneStatus: runlog.StatusFailed}, expected: false},
		{name: "git state failed", result: batch.RepositoryResult{CloneStatus: runlog.StatusCloned, GitFailed: true}, expected: false},
		{name: "push failed", result: batch.RepositoryResult{CloneStatus: runlog.StatusCloned, PushStatus: runlog.StatusPushFailed}, expected: false},
		{name: "search failed", result: batch.RepositoryResult{CloneStatus: runlog.StatusCloned, Error: errors.New("walk failed")}, expected: false},
		{name: "item failures only", result: batch.RepositoryResult{CloneStatus: runlog.StatusCloned, ItemsFailed: 2}, expected: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, testCase.result.Succeeded())
		})
	}
}

func TestSummaryTotalsAndReport(testInstance *testing.T) {
	summary := batch.Summary{
		RunID:        "run-1",
		Mode:         shared.ModeCopy,
		DryRun:       true,
		Replacements: []shared.ReplacementPair{{Old: "dev", New: "prod"}},
		Repositories: []batch.RepositoryResult{
			{Name: "service-a", CloneStatus: runlog.StatusCloned, ItemsProcessed: 3},
			{Name: "service-b", CloneStatus: runlog.StatusExists, ItemsProcessed: 2, GitFailed: true},
			{Name: "service-c", CloneStatus: runlog.StatusFailed, Error: errors.New("clone failed")},
		},
	}

	require.Equal(testInstance, 5, summary.TotalItems())
	require.Equal(testInstance, 1, summary.SuccessfulRepositories())
	require.False(testInstance, summary.AllSucceeded())

	document := summary.Report()
	require.Equal(testInstance, "run-1", document.RunID)
	require.Equal(testInstance, "rename", document.Mode)
	require.True(testInstance, document.DryRun)
	require.Equal(testInstance, []string{"'dev' → 'prod'"}, document.Replacements)
	require.Equal(testInstance, 3, document.TotalRepositories)
	require.Equal(testInstance, 1, document.SuccessfulRepositories)
	require.Equal(testInstance, 5, document.TotalItems)
	require.Len(testInstance, document.Repositories, 3)
	require.Equal(testInstance, "FAILED", document.Repositories[2].CloneStatus)
	require.Equal(testInstance, "clone failed", document.Repositories[2].Error)
	require.True(testInstance, document.Repositories[1].GitFailed)
}

func TestSummaryWithNoRepositoriesSucceeds(testInstance *testing.T) {
	require.True(testInstance, batch.Summary{}.AllSucceeded())
}

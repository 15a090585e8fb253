package branches_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitrename/internal/branches"
	"github.com/temirov/gitrename/internal/repos/shared"
)

const testRepositoryPathConstant = "/tmp/repos/service"

type stubRepositoryManager struct {
	currentBranch   string
	branchExists    bool
	commitsAhead    int
	countError      error
	failures        map[string]error
	checkoutFailure int
	calls           []string
}

func (manager *stubRepositoryManager) record(call string) error {
	manager.calls = append(manager.calls, call)
	return manager.failures[call]
}

func (manager *stubRepositoryManager) Clone(context.Context, string, string) error {
	return manager.record("clone")
}

func (manager *stubRepositoryManager) CurrentBranch(context.Context, string) (string, error) {
	return manager.currentBranch, manager.record("current")
}

func (manager *stubRepositoryManager) BranchExists(_ context.Context, _ string, branchName string) (bool, error) {
	return manager.branchExists, manager.record("exists " + branchName)
}

func (manager *stubRepositoryManager) Checkout(_ context.Context, _ string, branchName string) error {
	manager.calls = append(manager.calls, "checkout "+branchName)
	if manager.checkoutFailure > 0 {
		manager.checkoutFailure--
		return errors.New("pathspec did not match")
	}
	return nil
}

func (manager *stubRepositoryManager) CreateBranch(_ context.Context, _ string, branchName string) error {
	return manager.record("create " + branchName)
}

func (manager *stubRepositoryManager) Fetch(_ context.Context, _ string, remoteName string, refSpec string) error {
	return manager.record(fmt.Sprintf("fetch %s %s", remoteName, refSpec))
}

func (manager *stubRepositoryManager) Pull(_ context.Context, _ string, remoteName string, branchName string) error {
	return manager.record(fmt.Sprintf("pull %s %s", remoteName, branchName))
}

func (manager *stubRepositoryManager) CountCommitsAhead(_ context.Context, _ string, upstreamReference string) (int, error) {
	manager.calls = append(manager.calls, "count "+upstreamReference)
	return manager.commitsAhead, manager.countError
}

func (manager *stubRepositoryManager) StatusPorcelain(context.Context, string) (string, error) {
	return "", manager.record("status")
}

func (manager *stubRepositoryManager) AddAll(context.Context, string) error {
	return manager.record("add")
}

func (manager *stubRepositoryManager) Commit(context.Context, string, string) error {
	return manager.record("commit")
}

func (manager *stubRepositoryManager) Push(context.Context, string, string, string) error {
	return manager.record("push")
}

type recordingReporter struct {
	warnings []string
}

func (*recordingReporter) Headerf(string, ...any) {}
func (*recordingReporter) Printf(string, ...any) {}
func (*recordingReporter) Infof(string, ...any) {}
func (*recordingReporter) Successf(string, ...any) {}
func (*recordingReporter) Errorf(string, ...any) {}

func (reporter *recordingReporter) Warningf(format string, args ...any) {
	reporter.warnings = append(reporter.warnings, fmt.Sprintf(format, args...))
}

func newService(testInstance *testing.T, manager *stubRepositoryManager, reporter *recordingReporter) *branches.Service {
	testInstance.Helper()
	service, creationError := branches.NewService(branches.Dependencies{RepositoryManager: manager, Reporter: reporter})
	require.NoError(testInstance, creationError)
	return service
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	_, creationError := branches.NewService(branches.Dependencies{Reporter: &recordingReporter{}})
	require.ErrorIs(testInstance, creationError, branches.ErrRepositoryManagerNotConfigured)

	_, creationError = branches.NewService(branches.Dependencies{RepositoryManager: &stubRepositoryManager{}})
	require.ErrorIs(testInstance, creationError, branches.ErrReporterNotConfigured)
}

func TestSyncBaseBranch(testInstance *testing.T) {
	testCases := []struct {
		name          string
		manager       *stubRepositoryManager
		expectError   bool
		expectedCalls []string
	}{
		{
			name:          "already_on_branch_pulls",
			manager:       &stubRepositoryManager{currentBranch: "main"},
			expectedCalls: []string{"current", "fetch origin main", "count origin/main", "pull origin main"},
		},
		{
			name:          "switches_branch",
			manager:       &stubRepositoryManager{currentBranch: "feature"},
			expectedCalls: []string{"current", "checkout main", "fetch origin main", "count origin/main", "pull origin main"},
		},
		{
			name:          "fetches_missing_local_branch",
			manager:       &stubRepositoryManager{currentBranch: "feature", checkoutFailure: 1},
			expectedCalls: []string{"current", "checkout main", "fetch origin main:main", "checkout main", "fetch origin main", "count origin/main", "pull origin main"},
		},
		{
			name:          "skips_pull_when_ahead",
			manager:       &stubRepositoryManager{currentBranch: "main", commitsAhead: 2},
			expectedCalls: []string{"current", "fetch origin main", "count origin/main"},
		},
		{
			name:          "unknown_upstream_counts_as_zero",
			manager:       &stubRepositoryManager{currentBranch: "main", countError: errors.New("bad revision")},
			expectedCalls: []string{"current", "fetch origin main", "count origin/main", "pull origin main"},
		},
		{
			name:          "fetch_failure_aborts",
			manager:       &stubRepositoryManager{currentBranch: "main", failures: map[string]error{"fetch origin main": errors.New("network")}},
			expectError:   true,
			expectedCalls: []string{"current", "fetch origin main"},
		},
		{
			name:          "pull_failure_aborts",
			manager:       &stubRepositoryManager{currentBranch: "main", failures: map[string]error{"pull origin main": errors.New("conflict")}},
			expectError:   true,
			expectedCalls: []string{"current", "fetch origin main", "count origin/main", "pull origin main"},
		},
		{
			name:          "second_checkout_failure_aborts",
			manager:       &stubRepositoryManager{currentBranch: "feature", checkoutFailure: 2},
			expectError:   true,
			expectedCalls: []string{"current", "checkout main", "fetch origin main:main", "checkout main"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service := newService(testInstance, testCase.manager, &recordingReporter{})

			syncError := service.SyncBaseBranch(context.Background(), testRepositoryPathConstant, shared.BranchName("main"))
			if testCase.expectError {
				require.Error(testInstance, syncError)
			} else {
				require.NoError(testInstance, syncError)
			}
			require.Equal(testInstance, testCase.expectedCalls, testCase.manager.calls)
		})
	}
}

func TestSyncBaseBranchSkipsEmptyBranch(testInstance *testing.T) {
	manager := &stubRepositoryManager{}
	service := newService(testInstance, manager, &recordingReporter{})

	require.NoError(testInstance, service.SyncBaseBranch(context.Background(), testRepositoryPathConstant, ""))
	require.Empty(testInstance, manager.calls)
}

func TestEnsureWorkingBranch(testInstance *testing.T) {
	testCases := []struct {
		name             string
		manager          *stubRepositoryManager
		autoCreate       bool
		expectError      error
		expectAnyError   bool
		expectedCalls    []string
		expectedWarnings int
	}{
		{
			name:          "creates_missing_branch",
			manager:       &stubRepositoryManager{},
			autoCreate:    true,
			expectedCalls: []string{"exists rename", "create rename"},
		},
		{
			name:             "missing_branch_without_auto_create",
			manager:          &stubRepositoryManager{},
			expectError:      branches.ErrWorkingBranchMissing,
			expectedCalls:    []string{"exists rename"},
			expectedWarnings: 1,
		},
		{
			name:          "existing_branch_is_refreshed",
			manager:       &stubRepositoryManager{branchExists: true},
			expectedCalls: []string{"exists rename", "checkout rename", "fetch origin rename", "count origin/rename", "pull origin rename"},
		},
		{
			name: "refresh_failures_are_best_effort",
			manager: &stubRepositoryManager{branchExists: true, failures: map[string]error{
				"fetch origin rename": errors.New("no such ref"),
				"pull origin rename":  errors.New("no such ref"),
			}},
			expectedCalls:    []string{"exists rename", "checkout rename", "fetch origin rename", "count origin/rename", "pull origin rename"},
			expectedWarnings: 2,
		},
		{
			name:           "checkout_failure_aborts",
			manager:        &stubRepositoryManager{branchExists: true, checkoutFailure: 1},
			expectAnyError: true,
			expectedCalls:  []string{"exists rename", "checkout rename"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			reporter := &recordingReporter{}
			service := newService(testInstance, testCase.manager, reporter)

			ensureError := service.EnsureWorkingBranch(context.Background(), testRepositoryPathConstant, shared.BranchName("rename"), testCase.autoCreate)
			switch {
			case testCase.expectError != nil:
				require.ErrorIs(testInstance, ensureError, testCase.expectError)
			case testCase.expectAnyError:
				require.Error(testInstance, ensureError)
			default:
				require.NoError(testInstance, ensureError)
			}
			require.Equal(testInstance, testCase.expectedCalls, testCase.manager.calls)
			require.Len(testInstance, reporter.warnings, testCase.expectedWarnings)
		})
	}
}

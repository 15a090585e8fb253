package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitrename/internal/batch"
	"github.com/temirov/gitrename/internal/execshell"
	"github.com/temirov/gitrename/internal/repos/shared"
)

const (
	testBaseURLConstant         = "https://git.example.com/org"
	testSeedFileNameConstant    = "dev-settings.yaml"
	testRenamedFileNameConstant = "prod-settings.yaml"
	testSeedContentConstant     = "env: dev\nurl: dev.internal\n"
	testRenamedContentConstant  = "env: prod\nurl: prod.internal\n"
)

type scriptedRunner struct {
	commands      []string
	cloneFailures map[string]int
	seedFiles     map[string]string
	status        string
}

func (runner *scriptedRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	arguments := command.Details.Arguments
	runner.commands = append(runner.commands, strings.Join(arguments, " "))

	switch arguments[0] {
	case "clone":
		if exitCode, failing := runner.cloneFailures[arguments[1]]; failing {
			return execshell.ExecutionResult{ExitCode: exitCode, StandardError: "fatal: repository not found"}, nil
		}
		for relativePath, content := range runner.seedFiles {
			seedPath := filepath.Join(arguments[2], relativePath)
			if directoryError := os.MkdirAll(filepath.Dir(seedPath), 0o755); directoryError != nil {
				return execshell.ExecutionResult{}, directoryError
			}
			if writeError := os.WriteFile(seedPath, []byte(content), 0o644); writeError != nil {
				return execshell.ExecutionResult{}, writeError
			}
		}
	case "status":
		return execshell.ExecutionResult{StandardOutput: runner.status}, nil
	case "branch":
		return execshell.ExecutionResult{StandardOutput: "main\n"}, nil
	}
	return execshell.ExecutionResult{}, nil
}

func (runner *scriptedRunner) ran(prefix string) bool {
	for _, command := range runner.commands {
		if strings.HasPrefix(command, prefix) {
			return true
		}
	}
	return false
}

type instantSleeper struct{}

func (instantSleeper) Sleep(context.Context, time.Duration) error {
	return nil
}

type runFixture struct {
	directory string
	runner    *scriptedRunner
	output    *bytes.Buffer
}

func newRunFixture(testInstance *testing.T, repositories ...string) *runFixture {
	testInstance.Helper()
	directory := testInstance.TempDir()
	testInstance.Setenv("HOME", directory)
	testInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(directory, "xdg"))
	repositoryList := strings.Join(repositories, "\n") + "\n"
	require.NoError(testInstance, os.WriteFile(filepath.Join(directory, "repos.txt"), []byte(repositoryList), 0o644))

	return &runFixture{
		directory: directory,
		runner: &scriptedRunner{
			seedFiles: map[string]string{filepath.Join("config", testSeedFileNameConstant): testSeedContentConstant},
			status:    " M config/prod-settings.yaml\n",
		},
		output: &bytes.Buffer{},
	}
}

func (fixture *runFixture) writeConfiguration(testInstance *testing.T, replacements string) string {
	testInstance.Helper()
	content := fmt.Sprintf(`rename:
  repository_list: %s
  work_dir: %s
  log_file: %s
  git:
    base_url: %s
  retry:
    max_attempts: 2
    delay: 1s
  replacements:
%s`,
		filepath.Join(fixture.directory, "repos.txt"),
		fixture.workDirectory(),
		fixture.logFile(),
		testBaseURLConstant,
		replacements,
	)
	configurationPath := filepath.Join(fixture.directory, "config.yaml")
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(content), 0o644))
	return configurationPath
}

func (fixture *runFixture) workDirectory() string {
	return filepath.Join(fixture.directory, "work")
}

func (fixture *runFixture) logFile() string {
	return filepath.Join(fixture.directory, "logs", "run.log")
}

func (fixture *runFixture) execute(arguments ...string) error {
	application := NewApplicationWithDependencies(ApplicationDependencies{
		CommandRunner: fixture.runner,
		Sleeper:       instantSleeper{},
	})
	application.rootCommand.SetOut(fixture.output)
	application.rootCommand.SetErr(fixture.output)
	application.rootCommand.SetArgs(append([]string{"--log-level", "error"}, arguments...))
	return application.Execute()
}

func TestRunCopiesRenamedFilesAndPushes(testInstance *testing.T) {
	fixture := newRunFixture(testInstance, "service-a")
	configurationPath := fixture.writeConfiguration(testInstance, "    - dev|prod\n")

	runError := fixture.execute("--config", configurationPath, "--push", "--message", "Rename dev to prod")
	require.NoError(testInstance, runError)

	repositoryPath := filepath.Join(fixture.workDirectory(), "service-a")
	renamedContent, readError := os.ReadFile(filepath.Join(repositoryPath, "config", testRenamedFileNameConstant))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, testRenamedContentConstant, string(renamedContent))

	originalContent, originalReadError := os.ReadFile(filepath.Join(repositoryPath, "config", testSeedFileNameConstant))
	require.NoError(testInstance, originalReadError)
	require.Equal(testInstance, testSeedContentConstant, string(originalContent))

	require.True(testInstance, fixture.runner.ran("clone "+testBaseURLConstant+"/service-a.git"))
	require.True(testInstance, fixture.runner.ran("add -A"))
	require.True(testInstance, fixture.runner.ran("commit -m Rename dev to prod"))
	require.True(testInstance, fixture.runner.ran("push origin main"))

	output := fixture.output.String()
	require.Contains(testInstance, output, "Total items copied: 1")
	require.Contains(testInstance, output, "Successful repositories: 1/1")
	require.Contains(testInstance, output, "PUSHED")

	logContent, logReadError := os.ReadFile(fixture.logFile())
	require.NoError(testInstance, logReadError)
	require.Contains(testInstance, string(logContent), "Repository: service-a | Status: CLONED | Details: New clone")
	require.Contains(testInstance, string(logContent), "Repository: service-a | Status: PUSHED | Details: Branch: main")
}

func TestRunDryRunLeavesTreeAndRemoteUntouched(testInstance *testing.T) {
	fixture := newRunFixture(testInstance, "service-a")
	configurationPath := fixture.writeConfiguration(testInstance, "    - dev|prod\n")
	reportPath := filepath.Join(fixture.directory, "report.json")

	runError := fixture.execute("--config", configurationPath, "--dry-run", "--push", "--report", reportPath)
	require.NoError(testInstance, runError)

	_, statError := os.Stat(filepath.Join(fixture.workDirectory(), "service-a", "config", testRenamedFileNameConstant))
	require.True(testInstance, errors.Is(statError, os.ErrNotExist))
	require.False(testInstance, fixture.runner.ran("push"))
	require.False(testInstance, fixture.runner.ran("commit"))

	output := fixture.output.String()
	require.Contains(testInstance, output, "[DRY RUN] Would copy file to: prod-settings.yaml")
	require.Contains(testInstance, output, "Total items copied: 1")
	require.Contains(testInstance, output, "DRY RUN MODE - No changes were made")

	reportContent, reportReadError := os.ReadFile(reportPath)
	require.NoError(testInstance, reportReadError)
	require.Contains(testInstance, string(reportContent), `"dry_run": true`)
	require.Contains(testInstance, string(reportContent), `"total_items": 1`)
}

func TestRunFixModeFromLegacyConfiguration(testInstance *testing.T) {
	fixture := newRunFixture(testInstance, "service-a")
	repositoryPath := filepath.Join(fixture.workDirectory(), "service-a")
	require.NoError(testInstance, os.MkdirAll(repositoryPath, 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, testRenamedFileNameConstant), []byte(testSeedContentConstant), 0o644))

	legacyContent := fmt.Sprintf(`#!/bin/bash
REPO_LIST_FILE="%s"
WORK_DIR="%s"
LOG_FILE="%s"
GIT_BASE_URL="%s"
FIX_MODE="true"
declare -a REPLACEMENTS=(
    "dev|prod"
)
`, filepath.Join(fixture.directory, "repos.txt"), fixture.workDirectory(), fixture.logFile(), testBaseURLConstant)
	legacyPath := filepath.Join(fixture.directory, "config.sh")
	require.NoError(testInstance, os.WriteFile(legacyPath, []byte(legacyContent), 0o644))

	runError := fixture.execute("--config", legacyPath)
	require.NoError(testInstance, runError)

	fixedContent, readError := os.ReadFile(filepath.Join(repositoryPath, testRenamedFileNameConstant))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, testRenamedContentConstant, string(fixedContent))
	require.Empty(testInstance, fixture.runner.commands)
	require.Contains(testInstance, fixture.output.String(), "Total items fixed: 1")
}

func TestRunFixContentAliasSelectsFixMode(testInstance *testing.T) {
	fixture := newRunFixture(testInstance, "service-a")
	configurationPath := fixture.writeConfiguration(testInstance, "    - dev|prod\n")

	runError := fixture.execute("--config", configurationPath, "--fix-content")
	require.NoError(testInstance, runError)

	require.Contains(testInstance, fixture.output.String(), "Processing repository (FIX MODE): service-a")
	_, statError := os.Stat(filepath.Join(fixture.workDirectory(), "service-a", "config", testRenamedFileNameConstant))
	require.True(testInstance, errors.Is(statError, os.ErrNotExist))
}

func TestRunReportsFailedRepositories(testInstance *testing.T) {
	fixture := newRunFixture(testInstance, "missing", "service-a")
	fixture.runner.cloneFailures = map[string]int{testBaseURLConstant + "/missing.git": 128}
	configurationPath := fixture.writeConfiguration(testInstance, "    - dev|prod\n")

	runError := fixture.execute("--config", configurationPath)
	require.ErrorIs(testInstance, runError, ErrRepositoriesFailed)

	cloneAttempts := 0
	for _, command := range fixture.runner.commands {
		if strings.HasPrefix(command, "clone "+testBaseURLConstant+"/missing.git") {
			cloneAttempts++
		}
	}
	require.Equal(testInstance, 2, cloneAttempts)

	output := fixture.output.String()
	require.Contains(testInstance, output, "Attempt 1 of 2 failed")
	require.Contains(testInstance, output, "Successful repositories: 1/2")
	require.Contains(testInstance, output, "Total items copied: 1")
}

func TestRunRejectsInvalidConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name          string
		replacements  string
		expectedError error
	}{
		{
			name:          "no replacements",
			replacements:  "    []\n",
			expectedError: batch.ErrReplacementsRequired,
		},
		{
			name:          "empty new side",
			replacements:  "    - \"dev|\"\n",
			expectedError: shared.ErrReplacementNewRequired,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newRunFixture(testInstance, "service-a")
			configurationPath := fixture.writeConfiguration(testInstance, testCase.replacements)

			runError := fixture.execute("--config", configurationPath)
			require.ErrorIs(testInstance, runError, testCase.expectedError)

			var configurationError batch.ConfigurationError
			require.True(testInstance, errors.As(runError, &configurationError))
			require.Empty(testInstance, fixture.runner.commands)
		})
	}
}

func TestRunRejectsMissingRepositoryList(testInstance *testing.T) {
	fixture := newRunFixture(testInstance, "service-a")
	configurationPath := fixture.writeConfiguration(testInstance, "    - dev|prod\n")
	require.NoError(testInstance, os.Remove(filepath.Join(fixture.directory, "repos.txt")))

	runError := fixture.execute("--config", configurationPath)
	require.ErrorIs(testInstance, runError, batch.ErrRepositoryListNotFound)
}

func TestUnsupportedLogLevelFailsInitialization(testInstance *testing.T) {
	fixture := newRunFixture(testInstance, "service-a")
	configurationPath := fixture.writeConfiguration(testInstance, "    - dev|prod\n")

	runError := fixture.execute("--config", configurationPath, "--log-level", "verbose")
	require.ErrorContains(testInstance, runError, "unable to create logger")
}

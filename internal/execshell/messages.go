package execshell

import (
	"fmt"
	"net/url"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	commandArgumentsJoinSeparatorConstant   = " "
	unknownFailureMessageConstant           = "unknown error"
	currentDirectoryLabelConstant           = "current directory"
	unknownValueLabelConstant               = "unknown"
	redactedCredentialsConstant             = "redacted"
	flagPrefixConstant                      = "-"
)

const (
	gitCloneSubcommandConstant    = "clone"
	gitCheckoutSubcommandConstant = "checkout"
	gitFetchSubcommandConstant    = "fetch"
	gitPullSubcommandConstant     = "pull"
	gitPushSubcommandConstant     = "push"
	gitStatusSubcommandConstant   = "status"
	gitAddSubcommandConstant      = "add"
	gitCommitSubcommandConstant   = "commit"
	gitRevListSubcommandConstant  = "rev-list"
	gitShowRefSubcommandConstant  = "show-ref"
	gitBranchSubcommandConstant   = "branch"
	gitCreateBranchFlagConstant   = "-b"
	gitMessageFlagConstant        = "-m"
)

// gitMessageTemplates holds the start, success, failure, and execution failure templates for a subcommand.
// Every template receives the subject first and the working directory second.
type gitMessageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

var gitSubcommandTemplates = map[string]gitMessageTemplates{
	gitCloneSubcommandConstant: {
		start:            "Cloning %s into %s",
		success:          "Cloned %s into %s",
		failure:          "Failed to clone %s into %s (exit code %d%s)",
		executionFailure: "Unable to clone %s into %s: %s",
	},
	gitCheckoutSubcommandConstant: {
		start:            "Switching to %s in %s",
		success:          "Switched to %s in %s",
		failure:          "Failed to switch to %s in %s (exit code %d%s)",
		executionFailure: "Unable to switch to %s in %s: %s",
	},
	gitFetchSubcommandConstant: {
		start:            "Fetching %s in %s",
		success:          "Fetched %s in %s",
		failure:          "Failed to fetch %s in %s (exit code %d%s)",
		executionFailure: "Unable to fetch %s in %s: %s",
	},
	gitPullSubcommandConstant: {
		start:            "Pulling %s in %s",
		success:          "Pulled %s in %s",
		failure:          "Failed to pull %s in %s (exit code %d%s)",
		executionFailure: "Unable to pull %s in %s: %s",
	},
	gitPushSubcommandConstant: {
		start:            "Pushing %s from %s",
		success:          "Pushed %s from %s",
		failure:          "Failed to push %s from %s (exit code %d%s)",
		executionFailure: "Unable to push %s from %s: %s",
	},
	gitStatusSubcommandConstant: {
		start:            "Reviewing %s status in %s",
		success:          "Collected %s status for %s",
		failure:          "Failed to review %s status in %s (exit code %d%s)",
		executionFailure: "Unable to review %s status in %s: %s",
	},
	gitAddSubcommandConstant: {
		start:            "Staging %s in %s",
		success:          "Staged %s in %s",
		failure:          "Failed to stage %s in %s (exit code %d%s)",
		executionFailure: "Unable to stage %s in %s: %s",
	},
	gitCommitSubcommandConstant: {
		start:            "Creating commit %q in %s",
		success:          "Created commit %q in %s",
		failure:          "Failed to create commit %q in %s (exit code %d%s)",
		executionFailure: "Unable to create commit %q in %s: %s",
	},
	gitRevListSubcommandConstant: {
		start:            "Counting commits in %s for %s",
		success:          "Counted commits in %s for %s",
		failure:          "Failed to count commits in %s for %s (exit code %d%s)",
		executionFailure: "Unable to count commits in %s for %s: %s",
	},
	gitShowRefSubcommandConstant: {
		start:            "Looking up %s in %s",
		success:          "Found %s in %s",
		failure:          "Could not find %s in %s (exit code %d%s)",
		executionFailure: "Unable to look up %s in %s: %s",
	},
	gitBranchSubcommandConstant: {
		start:            "Reading %s in %s",
		success:          "Read %s in %s",
		failure:          "Failed to read %s in %s (exit code %d%s)",
		executionFailure: "Unable to read %s in %s: %s",
	},
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	templates, known := gitSubcommandTemplates[subcommand]
	if !known {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subject, location := formatter.describeGitSubject(subcommand, command)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, subject, location)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, subject, location)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, subject, location, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(templates.executionFailure, subject, location, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitSubject(subcommand string, command ShellCommand) (string, string) {
	arguments := command.Details.Arguments[1:]
	workingDirectory := formatter.describeWorkingDirectory(command)
	positional := positionalArguments(arguments)

	switch subcommand {
	case gitCloneSubcommandConstant:
		source := unknownValueLabelConstant
		destination := workingDirectory
		if len(positional) > 0 {
			source = RedactURL(positional[0])
		}
		if len(positional) > 1 {
			destination = positional[1]
		}
		return source, destination
	case gitCheckoutSubcommandConstant:
		if branchName := findFlagValue(arguments, gitCreateBranchFlagConstant); len(branchName) > 0 {
			return "new branch " + branchName, workingDirectory
		}
		return ensureValue(strings.Join(positional, commandArgumentsJoinSeparatorConstant)), workingDirectory
	case gitCommitSubcommandConstant:
		return findFlagValue(arguments, gitMessageFlagConstant), workingDirectory
	case gitRevListSubcommandConstant:
		return workingDirectory, ensureValue(strings.Join(positional, commandArgumentsJoinSeparatorConstant))
	case gitStatusSubcommandConstant:
		return "working tree", workingDirectory
	case gitBranchSubcommandConstant:
		return "current branch", workingDirectory
	case gitAddSubcommandConstant:
		if len(positional) == 0 {
			return "all changes", workingDirectory
		}
		return strings.Join(positional, commandArgumentsJoinSeparatorConstant), workingDirectory
	default:
		return ensureValue(strings.Join(positional, commandArgumentsJoinSeparatorConstant)), workingDirectory
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	label := formatCommandLabel(command) + formatter.formatWorkingDirectorySuffix(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, label)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, label)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, label, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, label, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return ""
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return currentDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

// RedactURL masks any user information embedded in a remote URL.
func RedactURL(rawURL string) string {
	parsedURL, parseError := url.Parse(rawURL)
	if parseError != nil || parsedURL.User == nil {
		return rawURL
	}
	parsedURL.User = url.User(redactedCredentialsConstant)
	return parsedURL.String()
}

func formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, redactArguments(command.Details.Arguments)...)
	}
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
}

func redactArguments(arguments []string) []string {
	redacted := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		redacted = append(redacted, RedactURL(argument))
	}
	return redacted
}

func positionalArguments(arguments []string) []string {
	var positional []string
	skipNext := false
	for _, argument := range arguments {
		if skipNext {
			skipNext = false
			continue
		}
		if argument == gitMessageFlagConstant || argument == gitCreateBranchFlagConstant {
			skipNext = true
			continue
		}
		if strings.HasPrefix(argument, flagPrefixConstant) {
			continue
		}
		positional = append(positional, argument)
	}
	return positional
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments)-1; index++ {
		if arguments[index] == flag {
			return arguments[index+1]
		}
	}
	return ""
}

func ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return unknownValueLabelConstant
	}
	return trimmed
}

package batch

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/temirov/gitrename/internal/gitrepo"
	"github.com/temirov/gitrename/internal/repos/shared"
	"github.com/temirov/gitrename/internal/retry"
)

const (
	defaultRepositoryListConstant      = "repos.txt"
	defaultAuthMethodConstant          = "none"
	defaultWorkDirectoryConstant       = "./repos_temp"
	defaultCommitMessageConstant       = "Update string replacements across repository"
	defaultLogFileConstant             = "./batch_update_log.txt"
	defaultLogMaxSizeMegabytesConstant = 10
	configurationErrorTemplateConstant = "invalid configuration: %s: %v"
	replacementFieldTemplateConstant   = "replacements[%d]"
	repositoryListFieldConstant        = "repository_list"
	replacementsFieldConstant          = "replacements"
	authMethodFieldConstant            = "git.auth_method"
	tokenFieldConstant                 = "git.token"
	retryAttemptsFieldConstant         = "retry.max_attempts"
	retryDelayFieldConstant            = "retry.delay"
	baseBranchFieldConstant            = "base_branch"
	workingBranchFieldConstant         = "working_branch"
	workDirectoryFieldConstant         = "work_dir"
	repositoryListRequiredMessage      = "repository list path is required"
	replacementsRequiredMessage        = "at least one replacement pair is required"
	workDirectoryRequiredMessage       = "work directory is required"
	negativeDelayMessage               = "retry delay must not be negative"
	replacementSeparatorConstant       = "|"
	replacementFormatTemplateConstant  = "%q: %w"
)

// ErrRepositoryListRequired indicates no repository list path was configured.
var ErrRepositoryListRequired = errors.New(repositoryListRequiredMessage)

// ErrReplacementsRequired indicates an empty replacement list.
var ErrReplacementsRequired = errors.New(replacementsRequiredMessage)

// ErrWorkDirectoryRequired indicates no work directory was configured.
var ErrWorkDirectoryRequired = errors.New(workDirectoryRequiredMessage)

// ErrNegativeRetryDelay indicates a retry delay below zero.
var ErrNegativeRetryDelay = errors.New(negativeDelayMessage)

// ConfigurationError reports a setting that prevents the run from starting.
type ConfigurationError struct {
	Field string
	Cause error
}

// Error describes the offending setting.
func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Field, configurationError.Cause)
}

// Unwrap exposes the underlying validation failure.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Cause
}

// GitConfiguration describes how short repository names become clone URLs.
type GitConfiguration struct {
	BaseURL    string `mapstructure:"base_url"`
	AuthMethod string `mapstructure:"auth_method"`
	Username   string `mapstructure:"username"`
	Token      string `mapstructure:"token"`
}

// RetryConfiguration bounds clone and push attempts.
type RetryConfiguration struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
}

// Configuration is the persisted settings for a batch run.
type Configuration struct {
	RepositoryList      string                   `mapstructure:"repository_list"`
	Git                 GitConfiguration         `mapstructure:"git"`
	BaseBranch          string                   `mapstructure:"base_branch"`
	WorkingBranch       string                   `mapstructure:"working_branch"`
	AutoCreateBranch    bool                     `mapstructure:"auto_create_branch"`
	CaseSensitive       bool                     `mapstructure:"case_sensitive"`
	WorkDirectory       string                   `mapstructure:"work_dir"`
	CommitMessage       string                   `mapstructure:"commit_message"`
	LogFile             string                   `mapstructure:"log_file"`
	LogMaxSizeMegabytes int                      `mapstructure:"log_max_size_mb"`
	FixMode             bool                     `mapstructure:"fix_mode"`
	Exclude             []string                 `mapstructure:"exclude"`
	ReportFile          string                   `mapstructure:"report_file"`
	Retry               RetryConfiguration       `mapstructure:"retry"`
	Replacements        []shared.ReplacementPair `mapstructure:"replacements"`
}

// DefaultConfigurationValues returns viper defaults rooted at the provided key prefix.
// Every key is listed so environment overrides resolve even without a configuration file.
func DefaultConfigurationValues(prefix string) map[string]any {
	key := func(name string) string {
		if len(prefix) == 0 {
			return name
		}
		return prefix + "." + name
	}
	return map[string]any{
		key("repository_list"):    defaultRepositoryListConstant,
		key("git.base_url"):       "",
		key("git.auth_method"):    defaultAuthMethodConstant,
		key("git.username"):       "",
		key("git.token"):          "",
		key("base_branch"):        "",
		key("working_branch"):     "",
		key("auto_create_branch"): true,
		key("case_sensitive"):     true,
		key("work_dir"):           defaultWorkDirectoryConstant,
		key("commit_message"):     defaultCommitMessageConstant,
		key("log_file"):           defaultLogFileConstant,
		key("log_max_size_mb"):    defaultLogMaxSizeMegabytesConstant,
		key("fix_mode"):           false,
		key("exclude"):            []string{},
		key("report_file"):        "",
		key("retry.max_attempts"): retry.DefaultMaxAttempts,
		key("retry.delay"):        retry.DefaultDelay.String(),
		key("replacements"):       []string{},
	}
}

// ReplacementPairDecodeHook decodes the "old|new" string notation into a ReplacementPair.
// Map entries with old/new keys decode natively. Emptiness is checked by Validate.
func ReplacementPairDecodeHook() mapstructure.DecodeHookFunc {
	pairType := reflect.TypeOf(shared.ReplacementPair{})
	return func(sourceType reflect.Type, targetType reflect.Type, data any) (any, error) {
		if targetType != pairType || sourceType.Kind() != reflect.String {
			return data, nil
		}
		raw, _ := data.(string)
		oldValue, newValue, found := strings.Cut(raw, replacementSeparatorConstant)
		if !found {
			return nil, fmt.Errorf(replacementFormatTemplateConstant, raw, shared.ErrReplacementFormat)
		}
		return shared.ReplacementPair{Old: strings.TrimSpace(oldValue), New: strings.TrimSpace(newValue)}, nil
	}
}

// DecodeHook composes every hook the configuration needs.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		ReplacementPairDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Validate reports the first setting that prevents a run, as a ConfigurationError.
func (configuration Configuration) Validate() error {
	if len(strings.TrimSpace(configuration.RepositoryList)) == 0 {
		return ConfigurationError{Field: repositoryListFieldConstant, Cause: ErrRepositoryListRequired}
	}
	if len(strings.TrimSpace(configuration.WorkDirectory)) == 0 {
		return ConfigurationError{Field: workDirectoryFieldConstant, Cause: ErrWorkDirectoryRequired}
	}
	if len(configuration.Replacements) == 0 {
		return ConfigurationError{Field: replacementsFieldConstant, Cause: ErrReplacementsRequired}
	}
	for index, pair := range configuration.Replacements {
		if _, pairError := shared.NewReplacementPair(pair.Old, pair.New); pairError != nil {
			return ConfigurationError{Field: fmt.Sprintf(replacementFieldTemplateConstant, index), Cause: pairError}
		}
	}
	if _, branchError := shared.ParseBranchNameOptional(configuration.BaseBranch); branchError != nil {
		return ConfigurationError{Field: baseBranchFieldConstant, Cause: branchError}
	}
	if _, branchError := shared.ParseBranchNameOptional(configuration.WorkingBranch); branchError != nil {
		return ConfigurationError{Field: workingBranchFieldConstant, Cause: branchError}
	}
	if _, locatorError := configuration.Locator(); locatorError != nil {
		field := authMethodFieldConstant
		if errors.Is(locatorError, gitrepo.ErrTokenRequired) {
			field = tokenFieldConstant
		}
		return ConfigurationError{Field: field, Cause: locatorError}
	}
	if configuration.Retry.MaxAttempts < 1 {
		return ConfigurationError{Field: retryAttemptsFieldConstant, Cause: retry.ErrInvalidAttempts}
	}
	if configuration.Retry.Delay < 0 {
		return ConfigurationError{Field: retryDelayFieldConstant, Cause: ErrNegativeRetryDelay}
	}
	return nil
}

// Locator builds the repository locator from the git settings.
func (configuration Configuration) Locator() (gitrepo.RepositoryLocator, error) {
	authMethod, authError := gitrepo.ParseAuthMethod(configuration.Git.AuthMethod)
	if authError != nil {
		return gitrepo.RepositoryLocator{}, authError
	}
	locator := gitrepo.RepositoryLocator{
		BaseURL:    strings.TrimSpace(configuration.Git.BaseURL),
		AuthMethod: authMethod,
		Username:   strings.TrimSpace(configuration.Git.Username),
		Token:      strings.TrimSpace(configuration.Git.Token),
	}
	if validationError := locator.Validate(); validationError != nil {
		return gitrepo.RepositoryLocator{}, validationError
	}
	return locator, nil
}

// RetryPolicy converts the retry settings into a policy for clone and push.
func (configuration Configuration) RetryPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: configuration.Retry.MaxAttempts, Delay: configuration.Retry.Delay}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/gitrename/internal/batch"
	"github.com/temirov/gitrename/internal/execshell"
	"github.com/temirov/gitrename/internal/legacyconfig"
	"github.com/temirov/gitrename/internal/repos/shared"
	"github.com/temirov/gitrename/internal/retry"
	"github.com/temirov/gitrename/internal/utils"
	"github.com/temirov/gitrename/internal/utils/flags"
	pathutils "github.com/temirov/gitrename/internal/utils/path"
)

const (
	applicationNameConstant                 = "git-file-rename"
	applicationShortDescriptionConstant     = "Copy or fix renamed files across a batch of git repositories"
	applicationLongDescriptionConstant      = "git-file-rename clones every repository in a list, creates renamed copies of files and directories whose names contain a configured substring (or fixes content inside already renamed entries), and optionally commits and pushes the result."
	configFileFlagNameConstant              = "config"
	configFileFlagShorthandConstant         = "c"
	configFileFlagUsageConstant             = "Path to a configuration file (YAML, TOML, JSON, or a legacy config.sh)."
	dryRunFlagNameConstant                  = "dry-run"
	dryRunFlagShorthandConstant             = "d"
	dryRunFlagUsageConstant                 = "Report intended changes without touching files or remotes."
	pushFlagNameConstant                    = "push"
	pushFlagShorthandConstant               = "p"
	pushFlagUsageConstant                   = "Commit and push changes in every repository that produced items."
	fixFlagNameConstant                     = "fix"
	fixFlagShorthandConstant                = "f"
	fixFlagAliasConstant                    = "fix-content"
	fixFlagUsageConstant                    = "Fix content inside entries already named with the new value instead of creating copies."
	messageFlagNameConstant                 = "message"
	messageFlagShorthandConstant            = "m"
	messageFlagUsageConstant                = "Commit message used when pushing."
	caseSensitiveFlagNameConstant           = "case-sensitive"
	caseSensitiveFlagUsageConstant          = "Match and replace substrings case-sensitively."
	reportFlagNameConstant                  = "report"
	reportFlagUsageConstant                 = "Write a machine-readable run report (.yaml, .yml, .toml, or .json)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "diagnostic log level"
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "diagnostic log format"
	commonConfigurationKeyConstant          = "common"
	renameConfigurationKeyConstant          = "rename"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "GITRENAME"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	legacyConfigurationExtensionConstant    = ".sh"
	userConfigurationDirectoryNameConstant  = "gitrename"
	defaultConfigurationSearchPathConstant  = "."
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationImportedFieldConstant      = "imported"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
)

// Version is stamped at build time.
var Version = "dev"

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Rename batch.Configuration            `mapstructure:"rename"`
}

// ApplicationCommonConfiguration stores logging configuration.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationDependencies replaces the process-level collaborators of a run.
// Zero values select the operating system implementations.
type ApplicationDependencies struct {
	CommandRunner execshell.CommandRunner
	Sleeper       retry.Sleeper
	Clock         shared.Clock
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	homeExpander          *pathutils.HomeExpander
	dependencies          ApplicationDependencies
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	runFlags              runFlagValues
}

type runFlagValues struct {
	dryRun        bool
	push          bool
	fixMode       bool
	caseSensitive bool
	commitMessage string
	reportFile    string
}

// NewApplication assembles a CLI application backed by the operating system.
func NewApplication() *Application {
	return NewApplicationWithDependencies(ApplicationDependencies{})
}

// NewApplicationWithDependencies assembles a CLI application with the provided collaborators.
func NewApplicationWithDependencies(dependencies ApplicationDependencies) *Application {
	if dependencies.CommandRunner == nil {
		dependencies.CommandRunner = execshell.NewOSCommandRunner()
	}
	if dependencies.Sleeper == nil {
		dependencies.Sleeper = retry.TimerSleeper{}
	}
	if dependencies.Clock == nil {
		dependencies.Clock = shared.SystemClock{}
	}

	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	configurationLoader.SetDecodeHook(batch.DecodeHook())
	configurationLoader.RegisterImporter(legacyConfigurationExtensionConstant, func(configurationFilePath string) (map[string]any, error) {
		return legacyconfig.LoadFile(configurationFilePath, os.LookupEnv)
	})

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(os.Stderr),
		logger:              zap.NewNop(),
		homeExpander:        pathutils.NewHomeExpander(),
		dependencies:        dependencies,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRename(command)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetGlobalNormalizationFunc(flags.AliasNormalizer(map[string]string{fixFlagAliasConstant: fixFlagNameConstant}))
	flagSet := cobraCommand.Flags()
	flagSet.StringVarP(&application.configurationFilePath, configFileFlagNameConstant, configFileFlagShorthandConstant, "", configFileFlagUsageConstant)
	flagSet.BoolVarP(&application.runFlags.dryRun, dryRunFlagNameConstant, dryRunFlagShorthandConstant, false, dryRunFlagUsageConstant)
	flagSet.BoolVarP(&application.runFlags.push, pushFlagNameConstant, pushFlagShorthandConstant, false, pushFlagUsageConstant)
	flagSet.BoolVarP(&application.runFlags.fixMode, fixFlagNameConstant, fixFlagShorthandConstant, false, fixFlagUsageConstant)
	flagSet.StringVarP(&application.runFlags.commitMessage, messageFlagNameConstant, messageFlagShorthandConstant, "", messageFlagUsageConstant)
	flagSet.BoolVar(&application.runFlags.caseSensitive, caseSensitiveFlagNameConstant, true, caseSensitiveFlagUsageConstant)
	flagSet.StringVar(&application.runFlags.reportFile, reportFlagNameConstant, "", reportFlagUsageConstant)
	flagSet.StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "",
		flags.FormatChoiceUsage(string(utils.LogLevelInfo), utils.SupportedLogLevels(), logLevelFlagUsageConstant))
	flagSet.StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "",
		flags.FormatChoiceUsage(string(utils.LogFormatConsole), utils.SupportedLogFormats(), logFormatFlagUsageConstant))

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the root command and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := utils.SyncLogger(application.logger); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}
	for configurationKey, configurationValue := range batch.DefaultConfigurationValues(renameConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	if flagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if flagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	application.applyRunFlagOverrides(command)

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.Bool(configurationImportedFieldConstant, application.configurationMetadata.Imported),
	)

	return nil
}

// applyRunFlagOverrides lets explicitly set flags win over every configuration layer.
func (application *Application) applyRunFlagOverrides(command *cobra.Command) {
	renameConfiguration := &application.configuration.Rename
	if flagChanged(command, fixFlagNameConstant) {
		renameConfiguration.FixMode = application.runFlags.fixMode
	}
	if flagChanged(command, messageFlagNameConstant) {
		renameConfiguration.CommitMessage = application.runFlags.commitMessage
	}
	if flagChanged(command, caseSensitiveFlagNameConstant) {
		renameConfiguration.CaseSensitive = application.runFlags.caseSensitive
	}
	if flagChanged(command, reportFlagNameConstant) {
		renameConfiguration.ReportFile = application.runFlags.reportFile
	}
	application.homeExpander.ExpandAll(
		&renameConfiguration.RepositoryList,
		&renameConfiguration.WorkDirectory,
		&renameConfiguration.LogFile,
		&renameConfiguration.ReportFile,
	)
}

func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}

func flagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}
	for _, flagSet := range []*pflag.FlagSet{command.Flags(), command.PersistentFlags()} {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}


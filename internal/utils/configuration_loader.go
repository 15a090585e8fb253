package utils

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationImportErrorTemplateConstant        = "failed to import configuration %s: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
)

// ConfigurationImporter converts a configuration file that Viper cannot read natively into nested settings.
type ConfigurationImporter func(configurationFilePath string) (map[string]any, error)

// ConfigurationLoader wraps Viper to load structured configuration files and environment overrides.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	environmentKeyReplacer    *strings.Replacer
	embeddedConfiguration     []byte
	embeddedConfigurationType string
	importers                 map[string]ConfigurationImporter
	decodeHook                mapstructure.DecodeHookFunc
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
	Imported       bool
}

// NewConfigurationLoader creates a loader that searches known paths and respects an environment prefix.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	duplicatedSearchPaths := make([]string, len(searchPaths))
	copy(duplicatedSearchPaths, searchPaths)

	return &ConfigurationLoader{
		configurationName:      configurationName,
		configurationType:      configurationType,
		environmentPrefix:      environmentPrefix,
		searchPaths:            duplicatedSearchPaths,
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
		importers:              map[string]ConfigurationImporter{},
	}
}

// SetEmbeddedConfiguration stores embedded configuration data merged before user-provided configuration files.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	if loader == nil {
		return
	}

	loader.embeddedConfiguration = nil
	loader.embeddedConfigurationType = strings.TrimSpace(configurationType)

	if len(configurationData) == 0 {
		return
	}

	duplicatedData := make([]byte, len(configurationData))
	copy(duplicatedData, configurationData)
	loader.embeddedConfiguration = duplicatedData
}

// RegisterImporter routes explicitly provided configuration files with the extension through the importer.
func (loader *ConfigurationLoader) RegisterImporter(extension string, importer ConfigurationImporter) {
	if loader == nil || importer == nil {
		return
	}
	loader.importers[strings.ToLower(extension)] = importer
}

// SetDecodeHook installs the hook applied while unmarshalling into the target configuration.
func (loader *ConfigurationLoader) SetDecodeHook(decodeHook mapstructure.DecodeHookFunc) {
	if loader == nil {
		return
	}
	loader.decodeHook = decodeHook
}

// LoadConfiguration populates targetConfiguration using configuration files, defaults, and environment variables.
// Precedence from lowest to highest: defaults, embedded configuration, configuration file, environment.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)

	if len(loader.embeddedConfiguration) > 0 {
		configurationType := loader.configurationType
		if len(loader.embeddedConfigurationType) > 0 {
			configurationType = loader.embeddedConfigurationType
		}

		viperInstance.SetConfigType(configurationType)
		mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration))
		if mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
		}

		viperInstance.SetConfigType(loader.configurationType)
	}

	for _, searchPath := range loader.searchPaths {
		viperInstance.AddConfigPath(searchPath)
	}

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	if loader.environmentKeyReplacer != nil {
		viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	}
	viperInstance.AutomaticEnv()

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	loadedConfiguration := LoadedConfiguration{}
	if importer, imported := loader.importerFor(configurationFilePath); imported {
		importedSettings, importError := importer(configurationFilePath)
		if importError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationImportErrorTemplateConstant, configurationFilePath, importError)
		}
		if mergeError := viperInstance.MergeConfigMap(importedSettings); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationImportErrorTemplateConstant, configurationFilePath, mergeError)
		}
		loadedConfiguration.ConfigFileUsed = configurationFilePath
		loadedConfiguration.Imported = true
	} else {
		if len(configurationFilePath) > 0 {
			viperInstance.SetConfigFile(configurationFilePath)
		}

		readError := viperInstance.MergeInConfig()
		if readError != nil {
			var notFoundError viper.ConfigFileNotFoundError
			if !errors.As(readError, &notFoundError) {
				return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
			}
		}
		loadedConfiguration.ConfigFileUsed = viperInstance.ConfigFileUsed()
	}

	var decoderOptions []viper.DecoderConfigOption
	if loader.decodeHook != nil {
		decoderOptions = append(decoderOptions, viper.DecodeHook(loader.decodeHook))
	}
	unmarshalError := viperInstance.Unmarshal(targetConfiguration, decoderOptions...)
	if unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return loadedConfiguration, nil
}

func (loader *ConfigurationLoader) importerFor(configurationFilePath string) (ConfigurationImporter, bool) {
	if len(configurationFilePath) == 0 {
		return nil, false
	}
	importer, found := loader.importers[strings.ToLower(filepath.Ext(configurationFilePath))]
	return importer, found
}

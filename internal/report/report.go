// Package report writes a machine-readable summary of a batch run.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	yamlExtensionConstant      = ".yaml"
	ymlExtensionConstant       = ".yml"
	tomlExtensionConstant      = ".toml"
	jsonExtensionConstant      = ".json"
	jsonIndentConstant         = "  "
	unsupportedFormatTemplate  = "unsupported report format %q (want .yaml, .yml, .toml or .json)"
	encodeFailureTemplate      = "encode %s report: %w"
	writeFailureTemplate       = "write report %s: %w"
	reportFilePermissions      = 0o644
	reportDirectoryPermissions = 0o755
	reportPathRequiredMessage  = "report path is required"
	directoryFailureTemplate   = "create report directory %s: %w"
)

// ErrPathRequired indicates Write was called without a destination.
var ErrPathRequired = errors.New(reportPathRequiredMessage)

// Format selects the report encoding.
type Format string

// Supported report encodings.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Repository records the outcome for one repository.
type Repository struct {
	Name           string `yaml:"name" toml:"name" json:"name"`
	Path           string `yaml:"path" toml:"path" json:"path"`
	CloneStatus    string `yaml:"clone_status" toml:"clone_status" json:"clone_status"`
	GitFailed      bool   `yaml:"git_failed" toml:"git_failed" json:"git_failed"`
	ItemsProcessed int    `yaml:"items_processed" toml:"items_processed" json:"items_processed"`
	ItemsFailed    int    `yaml:"items_failed" toml:"items_failed" json:"items_failed"`
	PushStatus     string `yaml:"push_status,omitempty" toml:"push_status,omitempty" json:"push_status,omitempty"`
	Error          string `yaml:"error,omitempty" toml:"error,omitempty" json:"error,omitempty"`
}

// Document is the top-level report.
type Document struct {
	RunID                  string       `yaml:"run_id" toml:"run_id" json:"run_id"`
	StartedAt              time.Time    `yaml:"started_at" toml:"started_at" json:"started_at"`
	FinishedAt             time.Time    `yaml:"finished_at" toml:"finished_at" json:"finished_at"`
	Mode                   string       `yaml:"mode" toml:"mode" json:"mode"`
	DryRun                 bool         `yaml:"dry_run" toml:"dry_run" json:"dry_run"`
	Replacements           []string     `yaml:"replacements" toml:"replacements" json:"replacements"`
	TotalRepositories      int          `yaml:"total_repositories" toml:"total_repositories" json:"total_repositories"`
	SuccessfulRepositories int          `yaml:"successful_repositories" toml:"successful_repositories" json:"successful_repositories"`
	TotalItems             int          `yaml:"total_items" toml:"total_items" json:"total_items"`
	Repositories           []Repository `yaml:"repositories" toml:"repositories" json:"repositories"`
}

// FormatFromPath derives the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case yamlExtensionConstant, ymlExtensionConstant:
		return FormatYAML, nil
	case tomlExtensionConstant:
		return FormatTOML, nil
	case jsonExtensionConstant:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf(unsupportedFormatTemplate, filepath.Ext(path))
	}
}

// Encode renders the document in the requested format.
func Encode(document Document, format Format) ([]byte, error) {
	var buffer bytes.Buffer
	var encodeError error
	switch format {
	case FormatYAML:
		encoder := yaml.NewEncoder(&buffer)
		encoder.SetIndent(2)
		encodeError = encoder.Encode(document)
		if encodeError == nil {
			encodeError = encoder.Close()
		}
	case FormatTOML:
		encodeError = toml.NewEncoder(&buffer).Encode(document)
	case FormatJSON:
		encoder := json.NewEncoder(&buffer)
		encoder.SetIndent("", jsonIndentConstant)
		encodeError = encoder.Encode(document)
	default:
		return nil, fmt.Errorf(unsupportedFormatTemplate, format)
	}
	if encodeError != nil {
		return nil, fmt.Errorf(encodeFailureTemplate, format, encodeError)
	}
	return buffer.Bytes(), nil
}

// Write encodes the document by the path's extension and writes it, creating parent directories.
func Write(path string, document Document) error {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return ErrPathRequired
	}
	format, formatError := FormatFromPath(trimmedPath)
	if formatError != nil {
		return formatError
	}
	encoded, encodeError := Encode(document, format)
	if encodeError != nil {
		return encodeError
	}
	if directoryError := os.MkdirAll(filepath.Dir(trimmedPath), reportDirectoryPermissions); directoryError != nil {
		return fmt.Errorf(directoryFailureTemplate, filepath.Dir(trimmedPath), directoryError)
	}
	if writeError := os.WriteFile(trimmedPath, encoded, reportFilePermissions); writeError != nil {
		return fmt.Errorf(writeFailureTemplate, trimmedPath, writeError)
	}
	return nil
}

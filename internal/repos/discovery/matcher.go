// Package discovery enumerates repository entries whose names contain a pattern.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/temirov/gitrename/internal/repos/shared"
)

const (
	fileSystemMissingMessageConstant = "pattern matcher filesystem not configured"
	patternRequiredMessageConstant   = "match pattern must not be empty"
	invalidExcludePatternTemplate    = "invalid exclude pattern %q: %w"
	rootUnavailableTemplateConstant  = "search root %s: %w"
	rootNotDirectoryMessageConstant  = "search root is not a directory"
)

// ErrFileSystemNotConfigured indicates the matcher was constructed without a filesystem.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// ErrPatternRequired indicates an empty match pattern.
var ErrPatternRequired = errors.New(patternRequiredMessageConstant)

// ErrRootNotDirectory indicates the search root exists but is not a directory.
var ErrRootNotDirectory = errors.New(rootNotDirectoryMessageConstant)

// Entry is a matched file or directory.
type Entry struct {
	Path         string
	RelativePath string
	Name         string
	IsDirectory  bool
}

// PatternMatcher finds entries whose base name contains a substring.
type PatternMatcher struct {
	fileSystem      shared.FileSystem
	excludePatterns []string
}

// NewPatternMatcher constructs a matcher. Exclude patterns are doublestar globs relative to the search root.
func NewPatternMatcher(fileSystem shared.FileSystem, excludePatterns []string) (*PatternMatcher, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	normalizedPatterns := make([]string, 0, len(excludePatterns))
	for _, excludePattern := range excludePatterns {
		trimmedPattern := strings.TrimSpace(excludePattern)
		if len(trimmedPattern) == 0 {
			continue
		}
		if !doublestar.ValidatePattern(trimmedPattern) {
			return nil, fmt.Errorf(invalidExcludePatternTemplate, trimmedPattern, doublestar.ErrBadPattern)
		}
		normalizedPatterns = append(normalizedPatterns, trimmedPattern)
	}
	return &PatternMatcher{fileSystem: fileSystem, excludePatterns: normalizedPatterns}, nil
}

// FindEntries walks root in lexical order and returns every entry below it whose name contains pattern.
// The root itself is never returned. Version-control metadata and excluded paths are not visited.
func (matcher *PatternMatcher) FindEntries(root string, pattern string, caseSensitive bool) ([]Entry, error) {
	if len(pattern) == 0 {
		return nil, ErrPatternRequired
	}

	rootInfo, rootError := matcher.fileSystem.Stat(root)
	if rootError != nil {
		return nil, fmt.Errorf(rootUnavailableTemplateConstant, root, rootError)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf(rootUnavailableTemplateConstant, root, ErrRootNotDirectory)
	}

	needle := pattern
	if !caseSensitive {
		needle = strings.ToLower(pattern)
	}

	var entries []Entry
	walkError := matcher.fileSystem.WalkDir(root, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if path == root {
				return walkError
			}
			if directoryEntry != nil && directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		if directoryEntry.Name() == shared.GitMetadataDirectoryNameConstant {
			if directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		relativePath, relativeError := filepath.Rel(root, path)
		if relativeError != nil {
			return relativeError
		}
		if matcher.isExcluded(relativePath) {
			if directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if nameContains(directoryEntry.Name(), needle, caseSensitive) {
			entries = append(entries, Entry{
				Path:         path,
				RelativePath: relativePath,
				Name:         directoryEntry.Name(),
				IsDirectory:  directoryEntry.IsDir(),
			})
		}
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(rootUnavailableTemplateConstant, root, walkError)
	}
	return entries, nil
}

func (matcher *PatternMatcher) isExcluded(relativePath string) bool {
	slashPath := filepath.ToSlash(relativePath)
	for _, excludePattern := range matcher.excludePatterns {
		if matched, _ := doublestar.Match(excludePattern, slashPath); matched {
			return true
		}
	}
	return false
}

func nameContains(name string, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(name, needle)
	}
	return strings.Contains(strings.ToLower(name), needle)
}

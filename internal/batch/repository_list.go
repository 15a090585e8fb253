package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/temirov/gitrename/internal/repos/shared"
)

const (
	repositoryListCommentPrefixConstant = "#"
	repositoryListNotFoundMessage       = "repository list file not found"
	repositoryListReadTemplate          = "read %s: %w"
)

// ErrRepositoryListNotFound indicates the configured repository list does not exist.
var ErrRepositoryListNotFound = errors.New(repositoryListNotFoundMessage)

// ReadRepositoryList returns the identifiers listed one per line, skipping blank lines and # comments.
// A missing or unreadable file is a ConfigurationError.
func ReadRepositoryList(fileSystem shared.FileSystem, path string) ([]string, error) {
	content, readError := fileSystem.ReadFile(path)
	if readError != nil {
		cause := fmt.Errorf(repositoryListReadTemplate, path, readError)
		if errors.Is(readError, fs.ErrNotExist) {
			cause = fmt.Errorf(repositoryListReadTemplate, path, ErrRepositoryListNotFound)
		}
		return nil, ConfigurationError{Field: repositoryListFieldConstant, Cause: cause}
	}

	var identifiers []string
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, repositoryListCommentPrefixConstant) {
			continue
		}
		identifiers = append(identifiers, trimmed)
	}
	return identifiers, nil
}

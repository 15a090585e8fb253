package batch_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitrename/internal/batch"
	"github.com/temirov/gitrename/internal/repos/filesystem"
)

func TestReadRepositoryListSkipsBlankLinesAndComments(testInstance *testing.T) {
	listPath := filepath.Join(testInstance.TempDir(), "repos.txt")
	content := "# services\nservice-a\n\n  service-b.git  \n# retired\nhttps://git.example.com/org/service-c.git\n"
	require.NoError(testInstance, os.WriteFile(listPath, []byte(content), 0o644))

	repositories, readError := batch.ReadRepositoryList(filesystem.OSFileSystem{}, listPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, []string{"service-a", "service-b.git", "https://git.example.com/org/service-c.git"}, repositories)
}

func TestReadRepositoryListMissingFile(testInstance *testing.T) {
	listPath := filepath.Join(testInstance.TempDir(), "absent.txt")

	_, readError := batch.ReadRepositoryList(filesystem.OSFileSystem{}, listPath)
	require.ErrorIs(testInstance, readError, batch.ErrRepositoryListNotFound)

	var configurationError batch.ConfigurationError
	require.True(testInstance, errors.As(readError, &configurationError))
	require.Equal(testInstance, "repository_list", configurationError.Field)
}

package rename_test

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitrename/internal/repos/filesystem"
	"github.com/temirov/gitrename/internal/repos/shared"
)

var binaryFixtureContent = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR dev "), 0x00, 0xff, 0x10)

type treeSnapshot map[string]string

func writeTree(t *testing.T, rootDirectory string, files map[string]string) {
	t.Helper()
	for relativePath, content := range files {
		absolutePath := filepath.Join(rootDirectory, filepath.FromSlash(relativePath))
		require.NoError(t, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(t, os.WriteFile(absolutePath, []byte(content), 0o644))
	}
}

func snapshotTree(t *testing.T, rootDirectory string) treeSnapshot {
	t.Helper()
	snapshot := treeSnapshot{}
	walkError := filepath.WalkDir(rootDirectory, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		require.NoError(t, walkError)
		relativePath, relativeError := filepath.Rel(rootDirectory, path)
		require.NoError(t, relativeError)
		if directoryEntry.IsDir() {
			snapshot[filepath.ToSlash(relativePath)+"/"] = ""
			return nil
		}
		content, readError := os.ReadFile(path)
		require.NoError(t, readError)
		info, infoError := directoryEntry.Info()
		require.NoError(t, infoError)
		snapshot[filepath.ToSlash(relativePath)] = info.ModTime().String() + "|" + string(content)
		return nil
	})
	require.NoError(t, walkError)
	return snapshot
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, readError := os.ReadFile(path)
	require.NoError(t, readError)
	return string(content)
}

func discardReporter() shared.Reporter {
	return shared.NewWriterReporter(io.Discard)
}

func osFileSystem() shared.FileSystem {
	return filesystem.OSFileSystem{}
}

package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	copyDestinationExistsTemplateConstant = "copy destination %s: %w"
	copySourceTemplateConstant            = "copy source %s: %w"
	unsupportedEntryTemplateConstant      = "copy %s: unsupported file type %s"
)

// OSFileSystem implements shared.FileSystem using the operating system primitives.
type OSFileSystem struct{}

// Stat retrieves file metadata, following symbolic links.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Lstat retrieves file metadata without following symbolic links.
func (OSFileSystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// MkdirAll ensures a directory hierarchy exists with the provided permissions.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// ReadFile reads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile replaces file contents. Existing files keep their permission bits.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, data, permissions)
}

// WalkDir walks the tree rooted at root in lexical order.
func (OSFileSystem) WalkDir(root string, walkFunction fs.WalkDirFunc) error {
	return filepath.WalkDir(root, walkFunction)
}

// CopyFile copies a single entry. The destination must not exist.
func (fileSystem OSFileSystem) CopyFile(sourcePath string, destinationPath string) error {
	if destinationError := ensureAbsent(destinationPath); destinationError != nil {
		return destinationError
	}
	sourceInfo, statError := os.Lstat(sourcePath)
	if statError != nil {
		return fmt.Errorf(copySourceTemplateConstant, sourcePath, statError)
	}
	return copyEntry(sourcePath, destinationPath, sourceInfo)
}

// CopyTree recursively copies a directory. The destination must not exist.
// A failed copy removes whatever part of the destination it created.
func (fileSystem OSFileSystem) CopyTree(sourcePath string, destinationPath string) (copyError error) {
	if destinationError := ensureAbsent(destinationPath); destinationError != nil {
		return destinationError
	}
	defer func() {
		if copyError != nil {
			_ = os.RemoveAll(destinationPath)
		}
	}()

	var directories []string
	walkError := filepath.WalkDir(sourcePath, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return walkError
		}
		relativePath, relativeError := filepath.Rel(sourcePath, path)
		if relativeError != nil {
			return relativeError
		}
		targetPath := filepath.Join(destinationPath, relativePath)

		info, infoError := directoryEntry.Info()
		if infoError != nil {
			return infoError
		}
		if directoryEntry.IsDir() {
			directories = append(directories, path)
			return os.MkdirAll(targetPath, info.Mode().Perm()|0o700)
		}
		return copyEntry(path, targetPath, info)
	})
	if walkError != nil {
		return walkError
	}

	// Directory metadata is restored last so that writing children does not disturb it.
	for index := len(directories) - 1; index >= 0; index-- {
		sourceDirectory := directories[index]
		relativePath, _ := filepath.Rel(sourcePath, sourceDirectory)
		targetDirectory := filepath.Join(destinationPath, relativePath)
		info, statError := os.Stat(sourceDirectory)
		if statError != nil {
			return statError
		}
		if chmodError := os.Chmod(targetDirectory, info.Mode().Perm()); chmodError != nil {
			return chmodError
		}
		if timesError := os.Chtimes(targetDirectory, info.ModTime(), info.ModTime()); timesError != nil {
			return timesError
		}
	}
	return nil
}

func ensureAbsent(path string) error {
	_, statError := os.Lstat(path)
	if statError == nil {
		return fmt.Errorf(copyDestinationExistsTemplateConstant, path, fs.ErrExist)
	}
	if !errors.Is(statError, fs.ErrNotExist) {
		return fmt.Errorf(copyDestinationExistsTemplateConstant, path, statError)
	}
	return nil
}

func copyEntry(sourcePath string, destinationPath string, sourceInfo fs.FileInfo) error {
	switch {
	case sourceInfo.Mode()&fs.ModeSymlink != 0:
		linkTarget, readLinkError := os.Readlink(sourcePath)
		if readLinkError != nil {
			return readLinkError
		}
		return os.Symlink(linkTarget, destinationPath)
	case sourceInfo.Mode().IsRegular():
		return copyRegularFile(sourcePath, destinationPath, sourceInfo)
	default:
		return fmt.Errorf(unsupportedEntryTemplateConstant, sourcePath, sourceInfo.Mode().Type())
	}
}

func copyRegularFile(sourcePath string, destinationPath string, sourceInfo fs.FileInfo) (copyError error) {
	sourceFile, openError := os.Open(sourcePath)
	if openError != nil {
		return openError
	}
	defer sourceFile.Close()

	destinationFile, createError := os.OpenFile(destinationPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, sourceInfo.Mode().Perm())
	if createError != nil {
		return createError
	}
	defer func() {
		if closeError := destinationFile.Close(); closeError != nil && copyError == nil {
			copyError = closeError
		}
		if copyError == nil {
			copyError = os.Chtimes(destinationPath, sourceInfo.ModTime(), sourceInfo.ModTime())
		}
		if copyError != nil {
			_ = os.Remove(destinationPath)
		}
	}()

	if _, copyError = io.Copy(destinationFile, sourceFile); copyError != nil {
		return copyError
	}
	return os.Chmod(destinationPath, sourceInfo.Mode().Perm())
}

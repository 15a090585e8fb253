package rename

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/encoding/unicode"

	"github.com/temirov/gitrename/internal/repos/shared"
)

const (
	textMimeTypeConstant           = "text/plain"
	diffContextLinesConstant       = 1
	readFailureTemplateConstant    = "read %s: %w"
	writeFailureTemplateConstant   = "write %s: %w"
	notRegularFileTemplateConstant = "%s: %w"
	substitutorMissingFileSystem   = "content substitutor filesystem not configured"
	notRegularFileMessageConstant  = "not a regular file"
)

// ErrContentFileSystemNotConfigured indicates the substitutor was constructed without a filesystem.
var ErrContentFileSystemNotConfigured = errors.New(substitutorMissingFileSystem)

// ErrNotRegularFile indicates a file-level substitution was requested for a directory or special file.
var ErrNotRegularFile = errors.New(notRegularFileMessageConstant)

// FileOutcome describes what a substitution did, or would do, to one file.
type FileOutcome struct {
	Path    string
	Changed bool
	Binary  bool
	// Preview is a unified diff of the change, present only when previews were requested.
	Preview string
}

// DirectoryOutcome aggregates file outcomes below a directory.
type DirectoryOutcome struct {
	ChangedFiles []FileOutcome
	Failures     []error
}

// ChangedCount returns how many files changed or would change.
func (outcome DirectoryOutcome) ChangedCount() int {
	return len(outcome.ChangedFiles)
}

// ContentSubstitutor rewrites occurrences of the old value inside text files.
type ContentSubstitutor struct {
	fileSystem   shared.FileSystem
	withPreviews bool
}

// NewContentSubstitutor constructs a substitutor. When previews are enabled every change carries a unified diff.
func NewContentSubstitutor(fileSystem shared.FileSystem, withPreviews bool) (*ContentSubstitutor, error) {
	if fileSystem == nil {
		return nil, ErrContentFileSystemNotConfigured
	}
	return &ContentSubstitutor{fileSystem: fileSystem, withPreviews: withPreviews}, nil
}

// SubstituteFile replaces the old value in one file. The file is written only when its content changes,
// and never under a preview policy. Binary files are reported and left alone.
func (substitutor *ContentSubstitutor) SubstituteFile(path string, substitution Substitution, policy shared.MutationPolicy) (FileOutcome, error) {
	outcome := FileOutcome{Path: path}

	info, statError := substitutor.fileSystem.Lstat(path)
	if statError != nil {
		return outcome, fmt.Errorf(readFailureTemplateConstant, path, statError)
	}
	if !info.Mode().IsRegular() {
		return outcome, fmt.Errorf(notRegularFileTemplateConstant, path, ErrNotRegularFile)
	}

	rawContent, readError := substitutor.fileSystem.ReadFile(path)
	if readError != nil {
		return outcome, fmt.Errorf(readFailureTemplateConstant, path, readError)
	}
	if !IsText(rawContent) {
		outcome.Binary = true
		return outcome, nil
	}

	content := decodeLeniently(rawContent)
	if !substitution.Contains(content) {
		return outcome, nil
	}

	updatedContent := substitution.Apply(content)
	if updatedContent == content {
		return outcome, nil
	}
	outcome.Changed = true
	if substitutor.withPreviews {
		outcome.Preview = unifiedDiff(path, content, updatedContent)
	}
	if policy.IsPreview() {
		return outcome, nil
	}

	if writeError := substitutor.fileSystem.WriteFile(path, []byte(updatedContent), info.Mode().Perm()); writeError != nil {
		return FileOutcome{Path: path}, fmt.Errorf(writeFailureTemplateConstant, path, writeError)
	}
	return outcome, nil
}

// SubstituteDirectory applies SubstituteFile to every regular file below the directory,
// skipping version-control metadata. Per-file failures are collected and do not stop the walk.
func (substitutor *ContentSubstitutor) SubstituteDirectory(path string, substitution Substitution, policy shared.MutationPolicy) (DirectoryOutcome, error) {
	var outcome DirectoryOutcome
	walkError := substitutor.fileSystem.WalkDir(path, func(currentPath string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if currentPath == path {
				return walkError
			}
			outcome.Failures = append(outcome.Failures, walkError)
			if directoryEntry != nil && directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if directoryEntry.Name() == shared.GitMetadataDirectoryNameConstant && currentPath != path {
			if directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !directoryEntry.Type().IsRegular() {
			return nil
		}

		fileOutcome, fileError := substitutor.SubstituteFile(currentPath, substitution, policy)
		if fileError != nil {
			outcome.Failures = append(outcome.Failures, fileError)
			return nil
		}
		if fileOutcome.Changed {
			outcome.ChangedFiles = append(outcome.ChangedFiles, fileOutcome)
		}
		return nil
	})
	if walkError != nil {
		return outcome, fmt.Errorf(readFailureTemplateConstant, path, walkError)
	}
	return outcome, nil
}

// IsText reports whether content sniffs as text. Empty content counts as text.
func IsText(content []byte) bool {
	if bytes.IndexByte(content, 0) >= 0 {
		return false
	}
	for detected := mimetype.Detect(content); detected != nil; detected = detected.Parent() {
		if detected.Is(textMimeTypeConstant) {
			return true
		}
	}
	return false
}

// decodeLeniently decodes UTF-8, replacing malformed sequences instead of failing.
func decodeLeniently(content []byte) string {
	decoded, decodeError := unicode.UTF8.NewDecoder().Bytes(content)
	if decodeError != nil {
		return string(bytes.ToValidUTF8(content, []byte("�")))
	}
	return string(decoded)
}

func unifiedDiff(path string, before string, after string) string {
	name := filepath.Base(path)
	diffText, diffError := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: name,
		ToFile:   name,
		Context:  diffContextLinesConstant,
	})
	if diffError != nil {
		return ""
	}
	return diffText
}

// Package runlog appends a timestamped, human-readable record of a batch run to a log file.
package runlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/temirov/gitrename/internal/repos/shared"
)

const (
	timestampLayoutConstant         = "2006-01-02 15:04:05"
	lineTemplateConstant            = "[%s] %s\n"
	repositoryLineTemplateConstant  = "Repository: %s | Status: %s | Details: %s"
	logFilePathRequiredMessage      = "run log file path is required"
	logWriterRequiredMessage        = "run log writer is required"
	directoryCreationTemplate       = "create run log directory %s: %w"
	writeFailureLogMessageConstant  = "unable to append to run log"
	runIdentifierLogFieldConstant   = "run_id"
	defaultMaxSizeMegabytesConstant = 10
	logDirectoryPermissionsConstant = 0o755
)

// RepositoryStatus is the outcome tag recorded for a repository step.
type RepositoryStatus string

// Recorded repository statuses.
const (
	StatusExists     RepositoryStatus = "EXISTS"
	StatusCloned     RepositoryStatus = "CLONED"
	StatusFailed     RepositoryStatus = "FAILED"
	StatusPushed     RepositoryStatus = "PUSHED"
	StatusPushFailed RepositoryStatus = "PUSH_FAILED"
	StatusGitFailed  RepositoryStatus = "GIT_FAILED"
)

// ErrFilePathRequired indicates Open was called without a destination.
var ErrFilePathRequired = errors.New(logFilePathRequiredMessage)

// ErrWriterRequired indicates New was called without a writer.
var ErrWriterRequired = errors.New(logWriterRequiredMessage)

// Options configures a file-backed run log.
type Options struct {
	FilePath         string
	MaxSizeMegabytes int
	Clock            shared.Clock
	Logger           *zap.Logger
}

// Log appends timestamped lines. It is safe for concurrent use.
type Log struct {
	mutex  sync.Mutex
	writer io.Writer
	closer io.Closer
	clock  shared.Clock
	logger *zap.Logger
	runID  string
}

// Open creates the parent directory and returns a Log backed by a size-rotated file.
func Open(options Options) (*Log, error) {
	trimmedPath := strings.TrimSpace(options.FilePath)
	if len(trimmedPath) == 0 {
		return nil, ErrFilePathRequired
	}
	if directoryError := os.MkdirAll(filepath.Dir(trimmedPath), logDirectoryPermissionsConstant); directoryError != nil {
		return nil, fmt.Errorf(directoryCreationTemplate, filepath.Dir(trimmedPath), directoryError)
	}

	maxSize := options.MaxSizeMegabytes
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMegabytesConstant
	}
	fileWriter := &lumberjack.Logger{
		Filename: trimmedPath,
		MaxSize:  maxSize,
	}

	runLog, creationError := New(fileWriter, options.Clock, options.Logger)
	if creationError != nil {
		return nil, creationError
	}
	runLog.closer = fileWriter
	return runLog, nil
}

// New returns a Log writing to an arbitrary writer. A nil clock uses the system clock.
func New(writer io.Writer, clock shared.Clock, logger *zap.Logger) (*Log, error) {
	if writer == nil {
		return nil, ErrWriterRequired
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()
	return &Log{
		writer: writer,
		clock:  clock,
		logger: logger.With(zap.String(runIdentifierLogFieldConstant, runID)),
		runID:  runID,
	}, nil
}

// RunID identifies this run in the log file and diagnostics.
func (runLog *Log) RunID() string {
	return runLog.runID
}

// Recordf appends one formatted line prefixed by the current time.
// Write failures are reported to the diagnostic logger; the run continues.
func (runLog *Log) Recordf(format string, args ...any) {
	if runLog == nil {
		return
	}
	message := fmt.Sprintf(format, args...)
	timestamp := runLog.clock.Now().Format(timestampLayoutConstant)

	runLog.mutex.Lock()
	defer runLog.mutex.Unlock()
	if _, writeError := fmt.Fprintf(runLog.writer, lineTemplateConstant, timestamp, message); writeError != nil {
		runLog.logger.Warn(writeFailureLogMessageConstant, zap.Error(writeError))
	}
}

// RecordRepository appends a repository status line.
func (runLog *Log) RecordRepository(repositoryName string, status RepositoryStatus, details string) {
	runLog.Recordf(repositoryLineTemplateConstant, repositoryName, status, details)
}

// Close releases the underlying file when the Log owns one.
func (runLog *Log) Close() error {
	if runLog == nil || runLog.closer == nil {
		return nil
	}
	return runLog.closer.Close()
}

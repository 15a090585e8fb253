package shared

import (
	"fmt"
	"io"
	"os"
)

// Reporter emits formatted progress events to an underlying sink.
type Reporter interface {
	Headerf(format string, args ...any)
	Printf(format string, args ...any)
	Infof(format string, args ...any)
	Successf(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
}

type writerReporter struct {
	writer io.Writer
}

// NewWriterReporter constructs an unstyled Reporter that writes one line per event.
func NewWriterReporter(writer io.Writer) Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return writerReporter{writer: writer}
}

func (reporter writerReporter) Printf(format string, args ...any) {
	fmt.Fprintf(reporter.writer, format+"\n", args...)
}

func (reporter writerReporter) Headerf(format string, args ...any) {
	reporter.Printf("=== "+format+" ===", args...)
}

func (reporter writerReporter) Infof(format string, args ...any) {
	reporter.Printf("ℹ "+format, args...)
}

func (reporter writerReporter) Successf(format string, args ...any) {
	reporter.Printf("✓ "+format, args...)
}

func (reporter writerReporter) Warningf(format string, args ...any) {
	reporter.Printf("⚠ "+format, args...)
}

func (reporter writerReporter) Errorf(format string, args ...any) {
	reporter.Printf("✗ "+format, args...)
}

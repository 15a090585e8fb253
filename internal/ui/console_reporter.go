package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/temirov/gitrename/internal/repos/shared"
)

const (
	headerRuleCharacterConstant = "="
	headerRuleWidthConstant     = 50
	infoSymbolConstant          = "ℹ"
	successSymbolConstant       = "✓"
	warningSymbolConstant       = "⚠"
	errorSymbolConstant         = "✗"
	symbolSeparatorConstant     = " "
	lineTerminatorConstant      = "\n"
	headerColorConstant         = "4"
	infoColorConstant           = "4"
	successColorConstant        = "2"
	warningColorConstant        = "3"
	errorColorConstant          = "1"
)

// ConsoleReporter writes styled progress lines. Styling degrades to plain text when the writer is not a terminal.
type ConsoleReporter struct {
	writer       io.Writer
	headerStyle  lipgloss.Style
	infoStyle    lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
}

var _ shared.Reporter = (*ConsoleReporter)(nil)

// NewConsoleReporter constructs a ConsoleReporter writing to the provided writer, or stdout when nil.
func NewConsoleReporter(writer io.Writer) *ConsoleReporter {
	if writer == nil {
		writer = os.Stdout
	}
	renderer := lipgloss.NewRenderer(writer)
	return &ConsoleReporter{
		writer:       writer,
		headerStyle:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(headerColorConstant)),
		infoStyle:    renderer.NewStyle().Foreground(lipgloss.Color(infoColorConstant)),
		successStyle: renderer.NewStyle().Foreground(lipgloss.Color(successColorConstant)),
		warningStyle: renderer.NewStyle().Foreground(lipgloss.Color(warningColorConstant)),
		errorStyle:   renderer.NewStyle().Foreground(lipgloss.Color(errorColorConstant)),
	}
}

// Headerf prints a title framed by horizontal rules.
func (reporter *ConsoleReporter) Headerf(format string, args ...any) {
	rule := strings.Repeat(headerRuleCharacterConstant, headerRuleWidthConstant)
	reporter.writeLine(reporter.headerStyle.Render(rule))
	reporter.writeLine(reporter.headerStyle.Render(fmt.Sprintf(format, args...)))
	reporter.writeLine(reporter.headerStyle.Render(rule))
}

// Printf prints an unstyled line.
func (reporter *ConsoleReporter) Printf(format string, args ...any) {
	reporter.writeLine(fmt.Sprintf(format, args...))
}

// Infof prints an informational line.
func (reporter *ConsoleReporter) Infof(format string, args ...any) {
	reporter.writeSymbolLine(reporter.infoStyle, infoSymbolConstant, format, args...)
}

// Successf prints a success line.
func (reporter *ConsoleReporter) Successf(format string, args ...any) {
	reporter.writeSymbolLine(reporter.successStyle, successSymbolConstant, format, args...)
}

// Warningf prints a warning line.
func (reporter *ConsoleReporter) Warningf(format string, args ...any) {
	reporter.writeSymbolLine(reporter.warningStyle, warningSymbolConstant, format, args...)
}

// Errorf prints an error line.
func (reporter *ConsoleReporter) Errorf(format string, args ...any) {
	reporter.writeSymbolLine(reporter.errorStyle, errorSymbolConstant, format, args...)
}

func (reporter *ConsoleReporter) writeSymbolLine(style lipgloss.Style, symbol string, format string, args ...any) {
	reporter.writeLine(style.Render(symbol) + symbolSeparatorConstant + fmt.Sprintf(format, args...))
}

func (reporter *ConsoleReporter) writeLine(line string) {
	_, _ = io.WriteString(reporter.writer, line+lineTerminatorConstant)
}

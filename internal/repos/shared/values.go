package shared

import (
	"errors"
	"fmt"
	"strings"
)

const (
	replacementSeparatorConstant       = "|"
	replacementOldRequiredMessage      = "replacement pair requires a non-empty old value"
	replacementNewRequiredMessage      = "replacement pair requires a non-empty new value"
	replacementFormatMessage           = "replacement must be written as old|new"
	replacementParseErrorTemplate      = "%q: %w"
	branchNameRequiredMessage          = "branch name must not be empty"
	branchNameInvalidCharactersMessage = "branch name must not contain whitespace"
	branchNameInvalidErrorTemplate     = "%q: %w"
	replacementDescriptionTemplate     = "'%s' → '%s'"
)

// ErrReplacementOldRequired indicates a replacement pair with an empty old value.
var ErrReplacementOldRequired = errors.New(replacementOldRequiredMessage)

// ErrReplacementNewRequired indicates a replacement pair with an empty new value.
var ErrReplacementNewRequired = errors.New(replacementNewRequiredMessage)

// ErrReplacementFormat indicates a textual replacement without the separator.
var ErrReplacementFormat = errors.New(replacementFormatMessage)

// ErrBranchNameRequired indicates an empty branch name.
var ErrBranchNameRequired = errors.New(branchNameRequiredMessage)

// ErrBranchNameInvalid indicates a branch name that git would reject.
var ErrBranchNameInvalid = errors.New(branchNameInvalidCharactersMessage)

// ReplacementPair is one ordered old → new substitution.
type ReplacementPair struct {
	Old string `mapstructure:"old" yaml:"old" toml:"old" json:"old"`
	New string `mapstructure:"new" yaml:"new" toml:"new" json:"new"`
}

// NewReplacementPair validates both sides of a substitution.
func NewReplacementPair(oldValue string, newValue string) (ReplacementPair, error) {
	if len(oldValue) == 0 {
		return ReplacementPair{}, ErrReplacementOldRequired
	}
	if len(newValue) == 0 {
		return ReplacementPair{}, ErrReplacementNewRequired
	}
	return ReplacementPair{Old: oldValue, New: newValue}, nil
}

// ParseReplacementPair reads the "old|new" notation. Only the first separator splits the pair.
func ParseReplacementPair(raw string) (ReplacementPair, error) {
	oldValue, newValue, found := strings.Cut(raw, replacementSeparatorConstant)
	if !found {
		return ReplacementPair{}, fmt.Errorf(replacementParseErrorTemplate, raw, ErrReplacementFormat)
	}
	pair, pairError := NewReplacementPair(oldValue, newValue)
	if pairError != nil {
		return ReplacementPair{}, fmt.Errorf(replacementParseErrorTemplate, raw, pairError)
	}
	return pair, nil
}

// String renders the pair for console output.
func (pair ReplacementPair) String() string {
	return fmt.Sprintf(replacementDescriptionTemplate, pair.Old, pair.New)
}

// OldContainedInNew reports whether the new value still contains the old one.
func (pair ReplacementPair) OldContainedInNew(caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(pair.New, pair.Old)
	}
	return strings.Contains(strings.ToLower(pair.New), strings.ToLower(pair.Old))
}

// BranchName is a validated git branch name.
type BranchName string

// NewBranchName trims and validates a branch name.
func NewBranchName(raw string) (BranchName, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", ErrBranchNameRequired
	}
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return "", fmt.Errorf(branchNameInvalidErrorTemplate, trimmed, ErrBranchNameInvalid)
	}
	return BranchName(trimmed), nil
}

// ParseBranchNameOptional normalizes an optional branch name, returning an empty name when unset.
func ParseBranchNameOptional(raw string) (BranchName, error) {
	if len(strings.TrimSpace(raw)) == 0 {
		return "", nil
	}
	return NewBranchName(raw)
}

// String returns the branch name.
func (branchName BranchName) String() string {
	return string(branchName)
}

// IsEmpty reports whether no branch was configured.
func (branchName BranchName) IsEmpty() bool {
	return len(branchName) == 0
}

// Package legacyconfig imports the shell-style config.sh format into the nested settings layout
// understood by the configuration loader.
package legacyconfig

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

const (
	commentPrefixConstant         = "#"
	assignmentSeparatorConstant   = "="
	replacementsDeclarationPrefix = "declare -a REPLACEMENTS=("
	arrayCloseConstant            = ")"
	trueValueConstant             = "true"
	rootSectionKeyConstant        = "rename"
	gitSectionKeyConstant         = "git"
	replacementsKeyConstant       = "replacements"
	openFailureTemplate           = "open legacy configuration %s: %w"
	readFailureTemplate           = "read legacy configuration: %w"
	unterminatedArrayMessage      = "legacy configuration: REPLACEMENTS array is not terminated"
)

// ErrUnterminatedArray indicates a REPLACEMENTS declaration without a closing parenthesis.
var ErrUnterminatedArray = errors.New(unterminatedArrayMessage)

var (
	variableNamePattern       = regexp.MustCompile(`^[A-Z_]+$`)
	defaultExpansionPattern   = regexp.MustCompile(`\$\{([^}:]+):-([^}]*)\}`)
	plainExpansionPattern     = regexp.MustCompile(`\$\{([^}]+)\}`)
	quotedArrayElementPattern = regexp.MustCompile(`"([^"]+)"`)
)

// Lookup resolves environment variables referenced by ${NAME} and ${NAME:-default}.
type Lookup func(name string) (string, bool)

// settingTarget places a shell variable in the nested settings map.
type settingTarget struct {
	section string
	key     string
	boolean bool
}

var variableTargets = map[string]settingTarget{
	"REPO_LIST_FILE":     {key: "repository_list"},
	"GIT_BASE_URL":       {section: gitSectionKeyConstant, key: "base_url"},
	"GIT_AUTH_METHOD":    {section: gitSectionKeyConstant, key: "auth_method"},
	"GIT_USERNAME":       {section: gitSectionKeyConstant, key: "username"},
	"GIT_AUTH_TOKEN":     {section: gitSectionKeyConstant, key: "token"},
	"BASE_BRANCH":        {key: "base_branch"},
	"BRANCH_NAME":        {key: "working_branch"},
	"AUTO_CREATE_BRANCH": {key: "auto_create_branch", boolean: true},
	"CASE_SENSITIVE":     {key: "case_sensitive", boolean: true},
	"WORK_DIR":           {key: "work_dir"},
	"COMMIT_MESSAGE":     {key: "commit_message"},
	"LOG_FILE":           {key: "log_file"},
	"FIX_MODE":           {key: "fix_mode", boolean: true},
}

// LoadFile parses the legacy configuration at path.
func LoadFile(path string, lookup Lookup) (map[string]any, error) {
	file, openError := os.Open(path)
	if openError != nil {
		return nil, fmt.Errorf(openFailureTemplate, path, openError)
	}
	defer file.Close()
	return Parse(file, lookup)
}

// Parse reads KEY=VALUE assignments and the REPLACEMENTS array, returning a map shaped like
// {"rename": {...}} for merging into the configuration loader. Unknown variables are ignored.
// A nil lookup consults the process environment.
func Parse(reader io.Reader, lookup Lookup) (map[string]any, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	renameSection := map[string]any{}
	gitSection := map[string]any{}

	scanner := bufio.NewScanner(reader)
	var arrayBuilder *strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if arrayBuilder != nil {
			closeIndex := strings.Index(line, arrayCloseConstant)
			if closeIndex < 0 {
				arrayBuilder.WriteString(line + "\n")
				continue
			}
			arrayBuilder.WriteString(line[:closeIndex])
			renameSection[replacementsKeyConstant] = parseReplacementElements(arrayBuilder.String())
			arrayBuilder = nil
			continue
		}

		if len(line) == 0 || strings.HasPrefix(line, commentPrefixConstant) {
			continue
		}

		if strings.HasPrefix(line, replacementsDeclarationPrefix) {
			remainder := strings.TrimPrefix(line, replacementsDeclarationPrefix)
			if closeIndex := strings.Index(remainder, arrayCloseConstant); closeIndex >= 0 {
				renameSection[replacementsKeyConstant] = parseReplacementElements(remainder[:closeIndex])
				continue
			}
			arrayBuilder = &strings.Builder{}
			arrayBuilder.WriteString(remainder + "\n")
			continue
		}

		name, rawValue, found := strings.Cut(line, assignmentSeparatorConstant)
		if !found || !variableNamePattern.MatchString(name) {
			continue
		}
		value, ok := unquote(rawValue)
		if !ok {
			continue
		}
		target, known := variableTargets[name]
		if !known {
			continue
		}

		expanded := expand(value, lookup)
		destination := renameSection
		if target.section == gitSectionKeyConstant {
			destination = gitSection
		}
		if target.boolean {
			destination[target.key] = strings.EqualFold(expanded, trueValueConstant)
		} else {
			destination[target.key] = expanded
		}
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, fmt.Errorf(readFailureTemplate, scanError)
	}
	if arrayBuilder != nil {
		return nil, ErrUnterminatedArray
	}

	if len(gitSection) > 0 {
		renameSection[gitSectionKeyConstant] = gitSection
	}
	return map[string]any{rootSectionKeyConstant: renameSection}, nil
}

// unquote strips one matching pair of surrounding quotes. Empty values are rejected.
func unquote(rawValue string) (string, bool) {
	value := strings.TrimSpace(rawValue)
	if len(value) >= 2 {
		first := value[0]
		if (first == '"' || first == '\'') && value[len(value)-1] == first {
			value = value[1 : len(value)-1]
		}
	}
	return value, len(value) > 0
}

// expand resolves ${NAME:-default} and ${NAME} the way a POSIX shell would.
func expand(value string, lookup Lookup) string {
	withDefaults := defaultExpansionPattern.ReplaceAllStringFunc(value, func(match string) string {
		groups := defaultExpansionPattern.FindStringSubmatch(match)
		if resolved, present := lookup(groups[1]); present && len(resolved) > 0 {
			return resolved
		}
		return groups[2]
	})
	return plainExpansionPattern.ReplaceAllStringFunc(withDefaults, func(match string) string {
		groups := plainExpansionPattern.FindStringSubmatch(match)
		resolved, _ := lookup(groups[1])
		return resolved
	})
}

// parseReplacementElements returns the double-quoted "old|new" elements, trimming each side.
// Elements without a separator are dropped.
func parseReplacementElements(arrayBody string) []string {
	var replacements []string
	for _, groups := range quotedArrayElementPattern.FindAllStringSubmatch(arrayBody, -1) {
		oldValue, newValue, found := strings.Cut(groups[1], "|")
		if !found {
			continue
		}
		replacements = append(replacements, strings.TrimSpace(oldValue)+"|"+strings.TrimSpace(newValue))
	}
	return replacements
}

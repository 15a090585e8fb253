// Package flags holds pflag helpers shared by the command line.
package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	choicePlaceholderPrefix  = "<"
	choicePlaceholderSuffix  = ">"
	choiceSeparatorLiteral   = "|"
	choiceUsageEmptyTemplate = "`%s`"
	choiceUsageFullTemplate  = "`%s` %s"
	flagWordSeparatorLiteral = "-"
	underscoreLiteral        = "_"
)

// FormatChoiceUsage renders "`<a|B|c>` description", capitalizing the default choice.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	displayed := make([]string, 0, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		if len(trimmedChoice) == 0 {
			continue
		}
		if strings.ToLower(trimmedChoice) == normalizedDefault {
			trimmedChoice = strings.ToUpper(trimmedChoice)
		}
		displayed = append(displayed, trimmedChoice)
	}

	placeholder := choicePlaceholderPrefix + strings.Join(displayed, choiceSeparatorLiteral) + choicePlaceholderSuffix
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplate, placeholder, description)
}

// AliasNormalizer maps alternate flag spellings onto canonical flag names.
// Underscores are treated as dashes, so --dry_run resolves to --dry-run.
func AliasNormalizer(aliases map[string]string) func(*pflag.FlagSet, string) pflag.NormalizedName {
	return func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		normalizedName := strings.ReplaceAll(name, underscoreLiteral, flagWordSeparatorLiteral)
		if canonicalName, aliased := aliases[normalizedName]; aliased {
			return pflag.NormalizedName(canonicalName)
		}
		return pflag.NormalizedName(normalizedName)
	}
}

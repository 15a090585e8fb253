package shared

// Mode selects between producing renamed copies and repairing already-renamed entries.
type Mode int

const (
	// ModeCopy creates renamed sibling copies of entries matching the old value.
	ModeCopy Mode = iota
	// ModeFix rewrites stale content inside entries matching the new value.
	ModeFix
)

const (
	modeCopyLabelConstant = "rename"
	modeFixLabelConstant  = "fix"
)

// ModeFromFixFlag converts the fix flag into a mode.
func ModeFromFixFlag(fix bool) Mode {
	if fix {
		return ModeFix
	}
	return ModeCopy
}

// String returns a short label for the mode.
func (mode Mode) String() string {
	if mode == ModeFix {
		return modeFixLabelConstant
	}
	return modeCopyLabelConstant
}

// MatchPattern returns the side of the pair that selects entries in this mode.
func (mode Mode) MatchPattern(pair ReplacementPair) string {
	if mode == ModeFix {
		return pair.New
	}
	return pair.Old
}

// MutationPolicy specifies whether the filesystem and remotes may be changed.
type MutationPolicy int

const (
	// MutationApply performs every change.
	MutationApply MutationPolicy = iota
	// MutationPreview reports intended changes without performing them.
	MutationPreview
)

// MutationPolicyFromDryRun converts the dry-run flag into a policy.
func MutationPolicyFromDryRun(dryRun bool) MutationPolicy {
	if dryRun {
		return MutationPreview
	}
	return MutationApply
}

// IsPreview reports whether changes must only be described.
func (policy MutationPolicy) IsPreview() bool {
	return policy == MutationPreview
}

package rename

import "path/filepath"

// PreviewLedger remembers what a preview pass would already have done, so that later entries
// of the same pass see the tree an applied pass would see. A nil ledger records nothing.
type PreviewLedger struct {
	claimedTargets map[string]struct{}
	changedFiles   map[string]struct{}
}

// NewPreviewLedger returns an empty ledger for one replacement pair.
func NewPreviewLedger() *PreviewLedger {
	return &PreviewLedger{
		claimedTargets: map[string]struct{}{},
		changedFiles:   map[string]struct{}{},
	}
}

// TargetClaimed reports whether an earlier entry would already have created the target.
func (ledger *PreviewLedger) TargetClaimed(targetPath string) bool {
	if ledger == nil {
		return false
	}
	_, claimed := ledger.claimedTargets[filepath.Clean(targetPath)]
	return claimed
}

// ClaimTarget records a target the pass would create.
func (ledger *PreviewLedger) ClaimTarget(targetPath string) {
	if ledger == nil {
		return
	}
	ledger.claimedTargets[filepath.Clean(targetPath)] = struct{}{}
}

// RecordChanges keeps the outcomes for files not yet counted and records them.
func (ledger *PreviewLedger) RecordChanges(outcomes []FileOutcome) []FileOutcome {
	if ledger == nil {
		return outcomes
	}
	var unseen []FileOutcome
	for _, outcome := range outcomes {
		key := filepath.Clean(outcome.Path)
		if _, seen := ledger.changedFiles[key]; seen {
			continue
		}
		ledger.changedFiles[key] = struct{}{}
		unseen = append(unseen, outcome)
	}
	return unseen
}

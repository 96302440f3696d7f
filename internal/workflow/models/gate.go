package models

import "fmt"

// GateBlockCategory names why the completion gate refused an assignment.
type GateBlockCategory string

const (
	// GateBlockNeedsResearch: core-platform Campaign accounts still sitting
	// at not_started.
	GateBlockNeedsResearch GateBlockCategory = "needs_research"

	// GateBlockResearcherUnverified: the collector has not affirmatively
	// confirmed checking the platform itself for each account.
	GateBlockResearcherUnverified GateBlockCategory = "researcher_unverified"

	// GateBlockNeedsVerification: accounts a validator still has to rule on.
	GateBlockNeedsVerification GateBlockCategory = "needs_verification"
)

// GateVerdict is the completion gate's answer for one assignment. It is
// computed fresh from the person's current account rows, never cached.
type GateVerdict struct {
	Allowed  bool
	Category GateBlockCategory
	Count    int
}

// AllowedVerdict is the verdict for an assignment free to complete.
func AllowedVerdict() GateVerdict {
	return GateVerdict{Allowed: true}
}

// BlockedVerdict records the offending category and account count.
func BlockedVerdict(category GateBlockCategory, count int) GateVerdict {
	return GateVerdict{Category: category, Count: count}
}

// Blocked converts a refusing verdict into the error returned to callers.
func (v GateVerdict) Blocked() *GateBlockedError {
	return &GateBlockedError{Category: v.Category, Count: v.Count}
}

// GateBlockedError reports a completion attempt refused by the gate, carrying
// the blocking count so callers can say "N accounts still need research".
type GateBlockedError struct {
	Category GateBlockCategory
	Count    int
}

func (e *GateBlockedError) Error() string {
	switch e.Category {
	case GateBlockNeedsResearch:
		return fmt.Sprintf("%d accounts still need research", e.Count)
	case GateBlockResearcherUnverified:
		return fmt.Sprintf("%d accounts haven't been verified on Google or the platform yet", e.Count)
	default:
		return fmt.Sprintf("%d accounts still need verification", e.Count)
	}
}

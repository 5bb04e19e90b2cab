package reports

import "strings"

// Status literals published by the profile endpoint. These are an external
// contract and must match exactly.
const (
	statusClosedFairPlay = "closed:fair_play_violations"
	statusClosedAbuse    = "closed:abuse"
	statusClosedSelf     = "closed"
	statusClosedPrefix   = "closed"
)

// Classification is the closure category derived from an account's status.
type Classification int

const (
	// ClassificationOpen covers every status that is not a closure,
	// including the empty string reported for active accounts.
	ClassificationOpen Classification = iota
	// ClassificationFairPlayViolation marks accounts closed for cheating.
	ClassificationFairPlayViolation
	// ClassificationAbuse marks accounts closed for abusive behavior.
	ClassificationAbuse
	// ClassificationSelfClosed marks accounts the owner closed voluntarily.
	ClassificationSelfClosed
	// ClassificationUnmatchedClosed marks closure statuses this tool does
	// not recognize; they are logged instead of bucketed.
	ClassificationUnmatchedClosed
)

// Classify maps a raw status string onto its Classification. The returned
// status is the trimmed, case-folded form used in reports and error lines.
func Classify(rawStatus string) (Classification, string) {
	foldedStatus := strings.ToLower(strings.TrimSpace(rawStatus))
	switch foldedStatus {
	case statusClosedFairPlay:
		return ClassificationFairPlayViolation, foldedStatus
	case statusClosedAbuse:
		return ClassificationAbuse, foldedStatus
	case statusClosedSelf:
		return ClassificationSelfClosed, foldedStatus
	}
	if strings.HasPrefix(foldedStatus, statusClosedPrefix) {
		return ClassificationUnmatchedClosed, foldedStatus
	}
	return ClassificationOpen, foldedStatus
}

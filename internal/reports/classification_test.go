package reports_test

import (
	"testing"

	"github.com/Mouselip/chess-archive-parser/internal/reports"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name                   string
		rawStatus              string
		expectedClassification reports.Classification
		expectedFoldedStatus   string
	}{
		{
			name:                   "fair play violation",
			rawStatus:              "closed:fair_play_violations",
			expectedClassification: reports.ClassificationFairPlayViolation,
			expectedFoldedStatus:   "closed:fair_play_violations",
		},
		{
			name:                   "abuse",
			rawStatus:              "closed:abuse",
			expectedClassification: reports.ClassificationAbuse,
			expectedFoldedStatus:   "closed:abuse",
		},
		{
			name:                   "self closed",
			rawStatus:              "closed",
			expectedClassification: reports.ClassificationSelfClosed,
			expectedFoldedStatus:   "closed",
		},
		{
			name:                   "unmatched closed status",
			rawStatus:              "closed:something_else",
			expectedClassification: reports.ClassificationUnmatchedClosed,
			expectedFoldedStatus:   "closed:something_else",
		},
		{
			name:                   "mixed case and padding",
			rawStatus:              "  Closed:Fair_Play_Violations  ",
			expectedClassification: reports.ClassificationFairPlayViolation,
			expectedFoldedStatus:   "closed:fair_play_violations",
		},
		{
			name:                   "active account",
			rawStatus:              "premium",
			expectedClassification: reports.ClassificationOpen,
			expectedFoldedStatus:   "premium",
		},
		{
			name:                   "empty status",
			rawStatus:              "",
			expectedClassification: reports.ClassificationOpen,
			expectedFoldedStatus:   "",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			classification, foldedStatus := reports.Classify(testCase.rawStatus)
			if classification != testCase.expectedClassification {
				t.Errorf("expected classification %v, got %v", testCase.expectedClassification, classification)
			}
			if foldedStatus != testCase.expectedFoldedStatus {
				t.Errorf("expected folded status %q, got %q", testCase.expectedFoldedStatus, foldedStatus)
			}
		})
	}
}

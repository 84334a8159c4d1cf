package ai

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PreviewResult mirrors the decision shape of a full analysis so clients can
// render previews with the same component. Preview is always true.
type PreviewResult struct {
	Preview           bool     `json:"preview"`
	ShouldContact     bool     `json:"should_contact"`
	Priority          string   `json:"priority"`
	Score             float64  `json:"score"`
	Reasoning         string   `json:"reasoning"`
	KeyPoints         []string `json:"key_points"`
	SuggestedApproach string   `json:"suggested_approach"`
	RedFlags          []string `json:"red_flags"`
	NextSteps         string   `json:"next_steps"`
}

var previewKeyPoints = [][]string{
	{
		"Senior leadership at a company in your target size range",
		"Long tenure in a relevant industry",
		"Active LinkedIn presence with recent posts",
	},
	{
		"Decision-making role with budget responsibility",
		"Background matches your required skills",
		"Recently changed roles, likely evaluating new tools",
	},
	{
		"Strong technical background in your target domain",
		"Growing team based on recent hiring activity",
		"Engaged with content in your product category",
	},
	{
		"Title indicates ownership of the buying decision",
		"Company stage fits your ideal customer profile",
		"Profile signals openness to vendor outreach",
	},
}

var previewApproaches = []string{
	"Open with a reference to their current role and a concrete pain point your product removes.",
	"Lead with a short, specific question about how their team handles the problem you solve.",
	"Mention a recent change visible on their profile and tie it to the outcome you deliver.",
	"Keep it to three sentences: who you help, the result, and a low-friction ask.",
}

// Preview returns a deterministic analysis-shaped result derived from the
// profile fingerprint. The same profile always previews the same way, which
// keeps the free path cacheable and makes the upgrade comparison honest.
func Preview(fingerprint string) (json.RawMessage, error) {
	seed := previewSeed(fingerprint)

	// Scores land in 62..92 so previews look plausible without promising a
	// perfect lead on every click.
	score := 62 + float64(seed%31)
	priority := "medium"
	if score >= 80 {
		priority = "high"
	}

	result := PreviewResult{
		Preview:       true,
		ShouldContact: true,
		Priority:      priority,
		Score:         score,
		Reasoning: fmt.Sprintf(
			"Preview estimate: this profile scores %.0f/100 against a generic ICP. "+
				"Run a full analysis for dimension-level scoring and personalized outreach.",
			score),
		KeyPoints:         previewKeyPoints[seed%uint64(len(previewKeyPoints))],
		SuggestedApproach: previewApproaches[(seed/7)%uint64(len(previewApproaches))],
		RedFlags:          []string{},
		NextSteps:         "Upgrade to a paid plan for full scoring, red flags and tailored next steps.",
	}

	return json.Marshal(result)
}

func previewSeed(fingerprint string) uint64 {
	raw, err := hex.DecodeString(fingerprint)
	if err != nil || len(raw) < 8 {
		return uint64(len(fingerprint))
	}
	return binary.BigEndian.Uint64(raw[:8])
}

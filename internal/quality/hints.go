package quality

// dimensionGuidance holds the fixed improvement material for one dimension:
// a concrete good and bad example plus one or two hints, included verbatim
// in routing directives.
type dimensionGuidance struct {
	Good  string
	Bad   string
	Hints []string
}

// guidanceCatalog is keyed by lowercase dimension name.
var guidanceCatalog = map[string]dimensionGuidance{
	"accuracy": {
		Good: "\"Released March 2019 per the v2.4 changelog (link)\"",
		Bad:  "\"Released a few years ago, probably around v2\"",
		Hints: []string{
			"Cross-check every dated or numeric claim against a primary source.",
			"Flag claims you could not verify instead of smoothing them over.",
		},
	},
	"coverage": {
		Good: "\"Checked all 4 archives in scope; archive C had no matches (searched X, Y)\"",
		Bad:  "\"Found some relevant results in the first archive\"",
		Hints: []string{
			"Enumerate the sources in scope and state the outcome for each, including empty ones.",
			"Call out the subtopics you did not reach so the gap is visible.",
		},
	},
	"relevance": {
		Good: "\"Filtered to the 3 findings that bear on the migration decision\"",
		Bad:  "\"Here is everything mentioning the word 'migration'\"",
		Hints: []string{
			"Re-read the task description and cut findings that do not serve it.",
		},
	},
	"provenance": {
		Good: "\"Document D7, box 12, digitized 2004; citation attached\"",
		Bad:  "\"Found in the archive somewhere\"",
		Hints: []string{
			"Record the retrieval path for every item so it can be re-fetched.",
		},
	},
	"fidelity": {
		Good: "\"Quoted verbatim with ellipses marking the elision\"",
		Bad:  "\"Paraphrased from memory after reading\"",
		Hints: []string{
			"Preserve original wording for anything that will be cited downstream.",
			"Separate transcription from interpretation explicitly.",
		},
	},
	"grounding": {
		Good: "\"Each paragraph cites the finding ID it draws on\"",
		Bad:  "\"Plausible prose with no link back to the research\"",
		Hints: []string{
			"Tie every substantive claim to a source or finding from context.",
			"Delete sentences that have no supporting material rather than keeping them.",
		},
	},
	"clarity": {
		Good: "\"One idea per paragraph, defined terms on first use\"",
		Bad:  "\"Nested qualifications that force re-reading\"",
		Hints: []string{
			"Lead each section with its conclusion, then the support.",
		},
	},
	"structure": {
		Good: "\"Sections mirror the requested outline; transitions signal order\"",
		Bad:  "\"Stream of consciousness in submission order\"",
		Hints: []string{
			"Outline before drafting and keep headings parallel to the request.",
		},
	},
	"rigor": {
		Good: "\"Checked the claim against both cited sources; one disagrees, noted\"",
		Bad:  "\"Looks right to me\"",
		Hints: []string{
			"State the checks actually performed, not a general impression.",
		},
	},
	"specificity": {
		Good: "\"Line 42: the date contradicts finding R3\"",
		Bad:  "\"Some dates seem off\"",
		Hints: []string{
			"Anchor every issue to an exact location and the evidence against it.",
		},
	},
	"actionability": {
		Good: "\"Replace the 1987 figure with the 1989 revision from source S2\"",
		Bad:  "\"Needs improvement\"",
		Hints: []string{
			"Phrase each issue as the concrete edit that would resolve it.",
		},
	},
}

// guidanceFor returns the improvement material for a dimension, with a
// generic fallback for dimensions added to the catalog without guidance.
func guidanceFor(dimension string) dimensionGuidance {
	if g, ok := guidanceCatalog[dimension]; ok {
		return g
	}
	return dimensionGuidance{
		Good:  "\"Specific, verifiable, tied to the task\"",
		Bad:   "\"Vague and unanchored\"",
		Hints: []string{"Make the weak dimension concrete and verifiable."},
	}
}

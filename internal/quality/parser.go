package quality

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

// Task output is a semi-structured protocol, not a schema: parsing is
// best-effort and every miss yields nil, never an error. Callers proceed
// without a routing directive when there is no assessment.
var (
	scoresHeaderRe = regexp.MustCompile(`(?m)^\s*\**QUALITY SCORES\**:?\s*$`)
	dimensionRe    = regexp.MustCompile(`^-\s*([A-Za-z][A-Za-z ]*?)\s*:\s*(-?\d+(?:\.\d+)?)\s*$`)
	overallRe      = regexp.MustCompile(`^\**OVERALL\s*:\s*(-?\d+(?:\.\d+)?)\**\s*$`)
	confidenceRe   = regexp.MustCompile(`\*\*CONFIDENCE:\s*(-?\d+(?:\.\d+)?)\*\*`)
)

// Parse extracts a quality assessment from free-text task output. It looks
// for a QUALITY SCORES block first, then falls back to the legacy
// CONFIDENCE scalar. Returns nil when neither is present or parseable.
func Parse(cat *Catalog, agentType, output string) *models.QualityAssessment {
	if a := parseScoresBlock(cat, agentType, output); a != nil {
		return a
	}
	return parseConfidence(cat, agentType, output)
}

// parseScoresBlock parses the structured block:
//
//	QUALITY SCORES:
//	- Accuracy: 0.85
//	- Coverage: 0.55
//	- Relevance: 0.90
//	OVERALL: 0.77
func parseScoresBlock(cat *Catalog, agentType, output string) *models.QualityAssessment {
	loc := scoresHeaderRe.FindStringIndex(output)
	if loc == nil {
		return nil
	}

	scores := make(map[string]float64)
	var parsedOrder []string
	overall := -1.0

	for _, line := range strings.Split(output[loc[1]:], "\n") {
		line = strings.TrimSpace(line)
		if m := dimensionRe.FindStringSubmatch(line); m != nil {
			score, err := strconv.ParseFloat(m[2], 64)
			if err != nil || score < 0 || score > 1 {
				continue
			}
			name := strings.ToLower(strings.TrimSpace(m[1]))
			if _, seen := scores[name]; !seen {
				parsedOrder = append(parsedOrder, name)
			}
			scores[name] = score
			continue
		}
		if m := overallRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 1 {
				overall = v
			}
			break
		}
	}
	if len(scores) == 0 {
		return nil
	}

	// Order dimensions by the agent's declared order when we know the
	// agent type; otherwise keep the order they appeared in.
	order := parsedOrder
	if spec, ok := cat.Agent(agentType); ok {
		var declared []string
		for _, name := range spec.Dimensions {
			if _, present := scores[strings.ToLower(name)]; present {
				declared = append(declared, strings.ToLower(name))
			}
		}
		if len(declared) > 0 {
			order = declared
		}
	}

	dims := make([]models.DimensionScore, 0, len(order))
	for _, name := range order {
		dims = append(dims, models.DimensionScore{Name: name, Score: scores[name]})
	}

	if overall < 0 {
		sum := 0.0
		for _, d := range dims {
			sum += d.Score
		}
		overall = sum / float64(len(dims))
	}

	return assess(cat, agentType, dims, overall)
}

// parseConfidence parses the legacy **CONFIDENCE: 0.XX** scalar. Missing
// asterisks or an out-of-range value yields nil.
func parseConfidence(cat *Catalog, agentType, output string) *models.QualityAssessment {
	m := confidenceRe.FindStringSubmatch(output)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 || v > 1 {
		return nil
	}

	pass := cat.passThresholdFor(agentType)
	return &models.QualityAssessment{
		AgentType: agentType,
		Overall:   v,
		AllPass:   v >= pass,
	}
}

// assess derives the weakest dimension and the all-pass flag. The weakest
// dimension is the lowest score below the pass threshold; ties go to the
// first dimension in declared order.
func assess(cat *Catalog, agentType string, dims []models.DimensionScore, overall float64) *models.QualityAssessment {
	pass := cat.passThresholdFor(agentType)

	a := &models.QualityAssessment{
		AgentType:  agentType,
		Dimensions: dims,
		Overall:    overall,
		AllPass:    true,
	}
	for i := range dims {
		if dims[i].Score >= pass {
			continue
		}
		a.AllPass = false
		if a.Weakest == nil || dims[i].Score < a.Weakest.Score {
			weakest := dims[i]
			a.Weakest = &weakest
		}
	}
	return a
}

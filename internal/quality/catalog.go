// Package quality parses self-reported quality signals from task output
// and routes each assessed task to its next action: accept, polish,
// rewrite, or escalate to a human after bounded retries.
package quality

// Default thresholds. Both are overridable globally and per agent type.
const (
	// DefaultPassThreshold is the per-dimension score needed to pass.
	DefaultPassThreshold = 0.70
	// DefaultPolishThreshold is the overall score above which weak work
	// gets a targeted polish instead of a rewrite.
	DefaultPolishThreshold = 0.80
	// DefaultMaxRewrites bounds automatic rewrite attempts per
	// (session, agent type) before escalating.
	DefaultMaxRewrites = 2
)

// AgentSpec declares the three scored dimensions for one agent type, in
// the order ties are broken in.
type AgentSpec struct {
	// Type is the agent identity the spec applies to.
	Type string `yaml:"type"`
	// Dimensions are the three named axes, in declared order.
	Dimensions []string `yaml:"dimensions"`
	// PassThreshold overrides the global pass threshold when non-zero.
	PassThreshold float64 `yaml:"pass_threshold,omitempty"`
}

// remapKey identifies one (agent type, weak dimension) routing override.
type remapKey struct {
	agentType string
	dimension string
}

// Catalog holds the per-agent-type dimension declarations, thresholds,
// and the fixed cross-stage remap table.
type Catalog struct {
	agents          map[string]AgentSpec
	passThreshold   float64
	polishThreshold float64
	maxRewrites     int

	// remap reroutes certain failing (agentType, dimension) pairs to a
	// different next-stage category than the agent's own. This is a
	// hand-maintained table, not an inferred rule; extend it when new
	// agent types are added.
	remap map[remapKey]string
}

// DefaultCatalog returns the built-in agent catalog.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		agents:          make(map[string]AgentSpec),
		passThreshold:   DefaultPassThreshold,
		polishThreshold: DefaultPolishThreshold,
		maxRewrites:     DefaultMaxRewrites,
		remap: map[remapKey]string{
			// An archival retrieval that missed material needs more
			// research, not another retrieval pass.
			{agentType: "archivist", dimension: "coverage"}: "researcher",
			// A draft with weak grounding needs sources, not prose.
			{agentType: "writer", dimension: "grounding"}: "researcher",
		},
	}

	for _, spec := range []AgentSpec{
		{Type: "researcher", Dimensions: []string{"accuracy", "coverage", "relevance"}},
		{Type: "archivist", Dimensions: []string{"provenance", "coverage", "fidelity"}},
		{Type: "writer", Dimensions: []string{"grounding", "clarity", "structure"}},
		{Type: "reviewer", Dimensions: []string{"rigor", "specificity", "actionability"}},
	} {
		c.agents[spec.Type] = spec
	}
	return c
}

// SetAgent adds or replaces an agent spec.
func (c *Catalog) SetAgent(spec AgentSpec) {
	c.agents[spec.Type] = spec
}

// Agent returns the spec for an agent type.
func (c *Catalog) Agent(agentType string) (AgentSpec, bool) {
	spec, ok := c.agents[agentType]
	return spec, ok
}

// SetThresholds overrides the global thresholds. Zero values keep the
// current ones.
func (c *Catalog) SetThresholds(pass, polish float64, maxRewrites int) {
	if pass > 0 {
		c.passThreshold = pass
	}
	if polish > 0 {
		c.polishThreshold = polish
	}
	if maxRewrites > 0 {
		c.maxRewrites = maxRewrites
	}
}

// SetRemap adds or replaces one (agent type, dimension) routing override.
func (c *Catalog) SetRemap(agentType, dimension, target string) {
	c.remap[remapKey{agentType: agentType, dimension: dimension}] = target
}

// passThresholdFor resolves the pass threshold for an agent type.
func (c *Catalog) passThresholdFor(agentType string) float64 {
	if spec, ok := c.agents[agentType]; ok && spec.PassThreshold > 0 {
		return spec.PassThreshold
	}
	return c.passThreshold
}

// remapTarget returns the follow-up category for a failing dimension.
// Defaults to the agent's own type.
func (c *Catalog) remapTarget(agentType, dimension string) string {
	if target, ok := c.remap[remapKey{agentType: agentType, dimension: dimension}]; ok {
		return target
	}
	return agentType
}

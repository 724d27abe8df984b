package evaluation

import "fmt"

// GuardrailConfig sets the minimum acceptable scores. Zero disables a check.
type GuardrailConfig struct {
	MinRoutingAccuracy float64
	MinFilterAccuracy  float64
	MinRecallAt10      float64
	MaxFailed          int
}

type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	return &Guardrails{config: config}
}

// Violations lists every threshold the summary misses
func (g *Guardrails) Violations(s *EvalSummary) []string {
	var out []string
	if g.config.MinRoutingAccuracy > 0 && s.RoutingAccuracy < g.config.MinRoutingAccuracy {
		out = append(out, fmt.Sprintf("routing accuracy %.3f below %.3f", s.RoutingAccuracy, g.config.MinRoutingAccuracy))
	}
	if g.config.MinFilterAccuracy > 0 && s.FilterAccuracy < g.config.MinFilterAccuracy {
		out = append(out, fmt.Sprintf("filter accuracy %.3f below %.3f", s.FilterAccuracy, g.config.MinFilterAccuracy))
	}
	if g.config.MinRecallAt10 > 0 && s.AvgRecallAt10 < g.config.MinRecallAt10 {
		out = append(out, fmt.Sprintf("recall@10 %.3f below %.3f", s.AvgRecallAt10, g.config.MinRecallAt10))
	}
	if g.config.MaxFailed > 0 && s.Failed > g.config.MaxFailed {
		out = append(out, fmt.Sprintf("%d failed searches, at most %d allowed", s.Failed, g.config.MaxFailed))
	}
	return out
}

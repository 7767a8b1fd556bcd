package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"hybridqa/internal/types"
)

// =============================================================================
// ROUTER
// =============================================================================

// sqlSignals mark a question as needing structured computation.
var sqlSignals = []string{
	"top", "revenue", "aov", "average order value", "margin", "quantity", "customer",
}

// docSignals mark a question as answerable from policy documents.
var docSignals = []string{
	"policy", "return window", "returns policy", "docs", "definition",
}

// Route classifies a question into a resolution strategy. The model
// prediction is advisory: the keyword fallback is always computed, an
// invalid or failed prediction is replaced by it, and a prediction of
// rag never overrides a detected structured need.
func (a *Agent) Route(ctx context.Context, question string) types.Route {
	fallback := fallbackRoute(question)
	if a.predictor == nil {
		return fallback
	}

	raw, err := a.predictor.PredictRoute(ctx, question)
	if err != nil {
		a.logger.Debug("route prediction failed, using fallback",
			zap.Error(err), zap.String("fallback", string(fallback)))
		return fallback
	}

	route, ok := types.ParseRoute(raw)
	if !ok {
		a.logger.Debug("route prediction invalid, using fallback",
			zap.String("raw", raw), zap.String("fallback", string(fallback)))
		return fallback
	}

	// A model saying "documents only" never silently discards a
	// detected need for structured computation.
	if route == types.RouteRAG && fallback.NeedsSQL() {
		return fallback
	}
	return route
}

// fallbackRoute is the deterministic keyword heuristic. Document
// signals without any structured signal mean retrieval-only; any
// structured signal means hybrid; the default is retrieval-only.
func fallbackRoute(question string) types.Route {
	q := strings.ToLower(question)

	hasSQL := containsAny(q, sqlSignals)
	hasDoc := containsAny(q, docSignals)

	if hasDoc && !hasSQL {
		return types.RouteRAG
	}
	if hasSQL {
		return types.RouteHybrid
	}
	return types.RouteRAG
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"hybridqa/internal/store"
	"hybridqa/internal/trace"
	"hybridqa/internal/types"
)

// =============================================================================
// ORCHESTRATION STATE MACHINE
// =============================================================================
//
// Each node is a function of the current state snapshot returning the
// next snapshot; states are passed by value so a node can only affect
// what it returns. The driver walks the graph:
//
//	router -> retriever -> planner -> [rag: synthesizer]
//	                               -> [sql/hybrid: schema -> nl2sql ->
//	                                   executor -> validator ->
//	                                   (repair -> executor)* -> synthesizer]
//	synthesizer -> trace -> terminal
//
// Branch decisions live in edge-selection functions that consume only
// the snapshot.

// Node names.
const (
	nodeRouter      = "router"
	nodeRetriever   = "retriever"
	nodePlanner     = "planner"
	nodeSchema      = "schema"
	nodeNL2SQL      = "nl2sql"
	nodeExecutor    = "executor"
	nodeValidator   = "validator"
	nodeRepair      = "repair"
	nodeSynthesizer = "synthesizer"
	nodeTrace       = "trace"
	nodeTerminal    = "terminal"
)

// State is the snapshot threaded through the graph. It is created
// fresh per item and discarded once the trace is written; nothing is
// shared across items.
type State struct {
	Item types.QuestionItem

	Route       types.Route
	Chunks      []types.Chunk
	Constraints types.Constraints

	Tables  []string
	Schemas map[string][]store.Column

	SQL    string
	Result store.Result

	Repairs         int
	MaxRepairs      int
	NeedsRepair     bool
	ValidationError string

	Answer types.Answer
}

// Run walks one item through the graph to the terminal state.
func (a *Agent) Run(ctx context.Context, item types.QuestionItem) State {
	s := State{
		Item:       item,
		MaxRepairs: a.maxRepairs,
		Result:     store.Result{Success: true},
	}

	node := nodeRouter
	for node != nodeTerminal {
		s = a.step(ctx, node, s)
		node = a.nextNode(node, s)
	}
	return s
}

// step dispatches one node transition.
func (a *Agent) step(ctx context.Context, node string, s State) State {
	switch node {
	case nodeRouter:
		return a.nodeRouter(ctx, s)
	case nodeRetriever:
		return a.nodeRetriever(s)
	case nodePlanner:
		return a.nodePlanner(s)
	case nodeSchema:
		return a.nodeSchema(s)
	case nodeNL2SQL:
		return a.nodeNL2SQL(s)
	case nodeExecutor:
		return a.nodeExecutor(s)
	case nodeValidator:
		return a.nodeValidator(s)
	case nodeRepair:
		return a.nodeRepair(s)
	case nodeSynthesizer:
		return a.nodeSynthesizer(s)
	case nodeTrace:
		return a.nodeTrace(s)
	}
	return s
}

// nextNode selects the outgoing edge for a node given the snapshot.
func (a *Agent) nextNode(node string, s State) string {
	switch node {
	case nodeRouter:
		return nodeRetriever
	case nodeRetriever:
		return nodePlanner
	case nodePlanner:
		return plannerBranch(s)
	case nodeSchema:
		return nodeNL2SQL
	case nodeNL2SQL:
		return nodeExecutor
	case nodeExecutor:
		return nodeValidator
	case nodeValidator:
		return validatorBranch(s)
	case nodeRepair:
		return nodeExecutor
	case nodeSynthesizer:
		return nodeTrace
	}
	return nodeTerminal
}

// plannerBranch skips the structured pipeline for document-only items.
func plannerBranch(s State) string {
	if s.Route.NeedsSQL() {
		return nodeSchema
	}
	return nodeSynthesizer
}

// validatorBranch loops back into the repair ladder while the
// validator asks for it.
func validatorBranch(s State) string {
	if s.NeedsRepair {
		return nodeRepair
	}
	return nodeSynthesizer
}

// =============================================================================
// NODES
// =============================================================================

func (a *Agent) nodeRouter(ctx context.Context, s State) State {
	s.Route = a.Route(ctx, s.Item.Question)
	return s
}

func (a *Agent) nodeRetriever(s State) State {
	s.Chunks = a.Retrieve(s.Item.Question)
	return s
}

func (a *Agent) nodePlanner(s State) State {
	s.Constraints = a.Plan(s.Item.Question, s.Chunks)
	return s
}

func (a *Agent) nodeSchema(s State) State {
	s.Tables = a.tables
	s.Schemas = a.schemas
	return s
}

func (a *Agent) nodeNL2SQL(s State) State {
	s.SQL = a.GenerateSQL(s.Item.Question, s.Constraints)
	return s
}

func (a *Agent) nodeExecutor(s State) State {
	s.SQL, s.Result = a.ExecuteSQL(s.SQL, s.Repairs)
	return s
}

// nodeValidator classifies the latest result. It is the only writer of
// NeedsRepair. Once the repair budget is exhausted any outcome is
// accepted as final; repair is a best-effort enhancement, not a
// correctness guarantee.
func (a *Agent) nodeValidator(s State) State {
	s.NeedsRepair = false
	s.ValidationError = ""

	switch {
	case strings.TrimSpace(s.SQL) == "":
		s.ValidationError = "Empty SQL"
	case !s.Result.Success:
		s.ValidationError = s.Result.Error
		if s.ValidationError == "" {
			s.ValidationError = "SQL error"
		}
	case len(s.Result.Rows) == 0:
		s.ValidationError = "No rows"
	}

	if s.ValidationError != "" && s.Repairs < s.MaxRepairs {
		s.NeedsRepair = true
	}
	return s
}

// nodeRepair relaxes exactly one constraint per attempt: the date
// range first, the category second. A constraint absent at its
// scheduled step is a no-op, not a skipped repair. The query is
// regenerated from the reduced set, so each pass is strictly less
// filtered.
func (a *Agent) nodeRepair(s State) State {
	c := s.Constraints.Clone()
	switch s.Repairs {
	case 0:
		c.DateRange = nil
	case 1:
		c.Category = ""
	}
	s.Constraints = c
	s.SQL = a.GenerateSQL(s.Item.Question, c)
	s.Repairs++

	a.logger.Debug("repair attempt",
		zap.String("item", s.Item.ID),
		zap.Int("attempt", s.Repairs),
		zap.String("reason", s.ValidationError))
	return s
}

func (a *Agent) nodeSynthesizer(s State) State {
	s.Answer = a.Synthesize(
		s.Item.ID, s.Item.Question, s.Item.FormatHint,
		s.SQL, s.Result, s.Chunks, s.Constraints,
	)
	return s
}

// nodeTrace appends the per-item record. Trace problems are reported
// but never fail the item.
func (a *Agent) nodeTrace(s State) State {
	rec := trace.Record{
		ItemID:      s.Item.ID,
		Question:    s.Item.Question,
		Route:       s.Route,
		Constraints: s.Constraints,
		SQL:         s.SQL,
		SQLSuccess:  s.Result.Success,
		Repairs:     s.Repairs,
		NeedsRepair: s.NeedsRepair,
	}
	if err := a.traceSink.Append(rec); err != nil {
		a.logger.Warn("failed to append trace record",
			zap.String("item", s.Item.ID), zap.Error(err))
	}
	return s
}

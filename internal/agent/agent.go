// Package agent implements the query-resolution core: routing,
// constraint planning, template-driven SQL synthesis, the
// execute/validate/repair loop, answer synthesis, and the state
// machine that sequences them. Every node degrades rather than fails;
// an item always produces an output line.
package agent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"hybridqa/internal/llm"
	"hybridqa/internal/store"
	"hybridqa/internal/trace"
	"hybridqa/internal/types"
)

// DefaultMaxRepairs bounds the repair ladder when the caller does not
// override it.
const DefaultMaxRepairs = 2

// DefaultTopK is the retrieval depth per question.
const DefaultTopK = 10

// referenceYear is the calendar year questions assume the dataset
// starts in. The frozen snapshot may carry shifted dates; see
// computeYearOffset.
const referenceYear = 1996

// Retriever is the slice of the lexical index the agent consumes.
type Retriever interface {
	Search(query string, topK int) []types.Chunk
}

// Store is the slice of the structured store accessor the agent
// consumes. Execute must never panic; failures ride in the Result.
type Store interface {
	ListTables() ([]string, error)
	TableSchema(table string) ([]store.Column, error)
	Execute(query string) store.Result
}

// Options tunes agent construction.
type Options struct {
	MaxRepairs int
	TopK       int
	Trace      trace.Sink
	Logger     *zap.Logger
}

// Agent resolves question items end to end. Construction inspects the
// store once (table list, schemas, year offset); after that the agent
// holds no mutable cross-item state.
type Agent struct {
	predictor  llm.Predictor // nil means fallback-only routing
	retriever  Retriever
	store      Store
	traceSink  trace.Sink
	logger     *zap.Logger
	maxRepairs int
	topK       int

	tables     []string
	schemas    map[string][]store.Column
	yearOffset int
}

// New builds an agent over the given collaborators. predictor may be
// nil, in which case routing is purely heuristic. Store inspection
// failures abort construction: a missing snapshot is a startup fault,
// not a per-item one.
func New(predictor llm.Predictor, retriever Retriever, st Store, opts Options) (*Agent, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.MaxRepairs == 0 {
		opts.MaxRepairs = DefaultMaxRepairs
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Trace == nil {
		opts.Trace = trace.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	a := &Agent{
		predictor:  predictor,
		retriever:  retriever,
		store:      st,
		traceSink:  opts.Trace,
		logger:     opts.Logger,
		maxRepairs: opts.MaxRepairs,
		topK:       opts.TopK,
	}

	names, err := st.ListTables()
	if err != nil {
		return nil, fmt.Errorf("failed to inspect store: %w", err)
	}
	a.tables = store.FilterUserTables(names)
	a.schemas = make(map[string][]store.Column, len(a.tables))
	for _, t := range a.tables {
		schema, err := st.TableSchema(t)
		if err != nil {
			return nil, fmt.Errorf("failed to describe table %q: %w", t, err)
		}
		a.schemas[t] = schema
	}

	a.yearOffset = a.computeYearOffset()
	a.logger.Info("agent ready",
		zap.Int("tables", len(a.tables)),
		zap.Int("year_offset", a.yearOffset),
		zap.Int("max_repairs", a.maxRepairs))
	return a, nil
}

// Tables returns the user-visible table names captured at construction.
func (a *Agent) Tables() []string { return a.tables }

// Schemas returns the per-table field descriptors captured at
// construction.
func (a *Agent) Schemas() map[string][]store.Column { return a.schemas }

// YearOffset returns the derived date-shift constant.
func (a *Agent) YearOffset() int { return a.yearOffset }

// computeYearOffset derives the difference between the snapshot's
// earliest order year and the reference year questions assume. The
// offset is applied to every constraint date embedded in SQL so that
// "June 1997" questions line up with a snapshot whose dates were
// shifted when it was frozen.
func (a *Agent) computeYearOffset() int {
	res := a.store.Execute("SELECT MIN(OrderDate) AS start_date FROM Orders")
	if !res.Success || len(res.Rows) == 0 {
		return 0
	}
	raw, ok := res.Rows[0]["start_date"].(string)
	if !ok || raw == "" {
		return 0
	}
	year := 0
	if t, err := time.Parse("2006-01-02", raw[:min(len(raw), 10)]); err == nil {
		year = t.Year()
	} else if len(raw) >= 4 {
		year, _ = strconv.Atoi(raw[:4])
	}
	if year == 0 {
		return 0
	}
	return year - referenceYear
}

// shiftDate moves a YYYY-MM-DD constraint date by the year offset.
// Unparseable dates pass through unchanged.
func (a *Agent) shiftDate(date string) string {
	if a.yearOffset == 0 {
		return date
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(a.yearOffset, 0, 0).Format("2006-01-02")
}

// shiftedDateRange returns the constraint date range with the year
// offset applied, or nil when no range is set.
func (a *Agent) shiftedDateRange(c types.Constraints) *types.DateRange {
	if c.DateRange == nil {
		return nil
	}
	return &types.DateRange{
		Start: a.shiftDate(c.DateRange.Start),
		End:   a.shiftDate(c.DateRange.End),
	}
}

// Retrieve runs lexical retrieval for the question.
func (a *Agent) Retrieve(question string) []types.Chunk {
	return a.retriever.Search(question, a.topK)
}

// Resolve runs one item through the full state machine and returns the
// synthesized answer. It never returns an error for per-item problems;
// those degrade into low-confidence answers per the design contract.
func (a *Agent) Resolve(ctx context.Context, item types.QuestionItem) types.Answer {
	final := a.Run(ctx, item)
	return final.Answer
}

// Package retrieval provides lexical retrieval over a markdown policy
// corpus. Documents are split into paragraph chunks with stable ids,
// indexed once at startup with TF-IDF weights, and scored against
// queries by cosine similarity. The index is immutable after loading.
package retrieval

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"hybridqa/internal/types"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds retriever configuration.
type Config struct {
	// DocsPath is the directory containing *.md source documents.
	DocsPath string
	// MinChunkLen drops paragraph fragments shorter than this many bytes.
	MinChunkLen int
	// MaxFeatures caps the vocabulary size, keeping the most frequent terms.
	MaxFeatures int
}

// DefaultConfig returns sensible defaults for the given corpus directory.
func DefaultConfig(docsPath string) Config {
	return Config{
		DocsPath:    docsPath,
		MinChunkLen: 20,
		MaxFeatures: 8000,
	}
}

// =============================================================================
// RETRIEVER
// =============================================================================

type chunkEntry struct {
	id     string
	source string
	text   string
	vector map[int]float64 // term index -> l2-normalized tf-idf weight
}

// Retriever is the lexical index. Build it once with LoadCorpus; Search
// is read-only and side-effect-free afterwards.
type Retriever struct {
	cfg    Config
	logger *zap.Logger

	chunks []chunkEntry
	vocab  map[string]int
	idf    []float64
	loaded bool
}

// New creates an unloaded retriever.
func New(cfg Config, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinChunkLen <= 0 {
		cfg.MinChunkLen = 20
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = 8000
	}
	return &Retriever{cfg: cfg, logger: logger}
}

// LoadCorpus chunks every *.md file under DocsPath and builds the
// TF-IDF index. Chunk ids are derived from the file name and the
// chunk's sequence index within that file, so they are stable across
// runs as long as the corpus does not change.
func (r *Retriever) LoadCorpus() error {
	info, err := os.Stat(r.cfg.DocsPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("docs folder not found at %s", r.cfg.DocsPath)
	}

	files, err := filepath.Glob(filepath.Join(r.cfg.DocsPath, "*.md"))
	if err != nil {
		return fmt.Errorf("failed to scan docs folder: %w", err)
	}
	sort.Strings(files)

	r.chunks = nil
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := filepath.Base(path)
		for i, text := range splitChunks(string(raw), r.cfg.MinChunkLen) {
			r.chunks = append(r.chunks, chunkEntry{
				id:     fmt.Sprintf("%s::chunk_%d", name, i),
				source: name,
				text:   text,
			})
		}
	}
	if len(r.chunks) == 0 {
		return fmt.Errorf("no chunks found in %s - check files and min chunk length", r.cfg.DocsPath)
	}

	r.buildIndex()
	r.loaded = true
	r.logger.Info("retrieval corpus loaded",
		zap.Int("files", len(files)),
		zap.Int("chunks", len(r.chunks)),
		zap.Int("vocabulary", len(r.vocab)))
	return nil
}

// splitChunks splits a document on blank lines and drops short fragments.
func splitChunks(text string, minLen int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var chunks []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if len(part) >= minLen {
			chunks = append(chunks, part)
		}
	}
	return chunks
}

// buildIndex computes smoothed IDF weights and l2-normalized chunk vectors.
func (r *Retriever) buildIndex() {
	// Document frequency per term.
	df := make(map[string]int)
	tokenized := make([][]string, len(r.chunks))
	for i, c := range r.chunks {
		terms := tokenize(c.text)
		tokenized[i] = terms
		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	// Cap the vocabulary at the most frequent terms, ties broken
	// alphabetically for determinism.
	type termFreq struct {
		term string
		df   int
	}
	ordered := make([]termFreq, 0, len(df))
	for t, n := range df {
		ordered = append(ordered, termFreq{t, n})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].df != ordered[j].df {
			return ordered[i].df > ordered[j].df
		}
		return ordered[i].term < ordered[j].term
	})
	if len(ordered) > r.cfg.MaxFeatures {
		ordered = ordered[:r.cfg.MaxFeatures]
	}

	r.vocab = make(map[string]int, len(ordered))
	r.idf = make([]float64, len(ordered))
	n := float64(len(r.chunks))
	for i, tf := range ordered {
		r.vocab[tf.term] = i
		// Smoothed IDF: ln((1+n)/(1+df)) + 1.
		r.idf[i] = math.Log((1+n)/(1+float64(tf.df))) + 1
	}

	for i := range r.chunks {
		r.chunks[i].vector = r.vectorize(tokenized[i])
	}
}

// vectorize builds an l2-normalized tf-idf vector for a token list.
func (r *Retriever) vectorize(terms []string) map[int]float64 {
	counts := make(map[int]float64)
	for _, t := range terms {
		if idx, ok := r.vocab[t]; ok {
			counts[idx]++
		}
	}
	var norm float64
	for idx, tf := range counts {
		w := tf * r.idf[idx]
		counts[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return counts
	}
	norm = math.Sqrt(norm)
	for idx := range counts {
		counts[idx] /= norm
	}
	return counts
}

// Search returns the topK highest-scoring chunks for the query,
// ordered by descending score. A query sharing no vocabulary with the
// corpus returns no chunks.
func (r *Retriever) Search(query string, topK int) []types.Chunk {
	if !r.loaded || topK <= 0 {
		return nil
	}
	qvec := r.vectorize(tokenize(query))
	if len(qvec) == 0 {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	var hits []scored
	for i, c := range r.chunks {
		s := dot(qvec, c.vector)
		if s > 0 {
			hits = append(hits, scored{i, s})
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].idx < hits[j].idx
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]types.Chunk, len(hits))
	for i, h := range hits {
		c := r.chunks[h.idx]
		out[i] = types.Chunk{ChunkID: c.id, Source: c.source, Content: c.text, Score: h.score}
	}
	return out
}

// Chunk looks up a chunk by its stable id.
func (r *Retriever) Chunk(id string) (types.Chunk, bool) {
	for _, c := range r.chunks {
		if c.id == id {
			return types.Chunk{ChunkID: c.id, Source: c.source, Content: c.text}, true
		}
	}
	return types.Chunk{}, false
}

func dot(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for idx, w := range a {
		sum += w * b[idx]
	}
	return sum
}

// =============================================================================
// TOKENIZATION
// =============================================================================

// tokenize lower-cases, splits on non-alphanumeric runes, and drops
// stopwords and single-character fragments.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// stopwords is a compact english stopword list; matches the terms the
// sparse keyword search treats as too common to be useful.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true,
	"to": true, "of": true, "in": true, "for": true, "on": true,
	"with": true, "at": true, "by": true, "from": true, "as": true,
	"into": true, "through": true, "during": true, "before": true, "after": true,
	"and": true, "but": true, "or": true, "nor": true, "so": true, "yet": true,
	"if": true, "then": true, "else": true, "when": true, "where": true,
	"why": true, "how": true, "all": true, "each": true, "every": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "we": true, "they": true, "their": true,
	"what": true, "which": true, "who": true, "whom": true,
	"per": true, "via": true, "not": true, "no": true,
}

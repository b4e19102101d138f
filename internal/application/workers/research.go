package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/aescanero/taskorch/internal/application/invoker"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/aescanero/taskorch/pkg/ports"
	"go.uber.org/zap"
)

// Research modes.
const (
	ResearchGeneral     = "general"
	ResearchFactual     = "factual"
	ResearchAnalytical  = "analytical"
	ResearchComparative = "comparative"
)

var researchModes = []string{ResearchGeneral, ResearchFactual, ResearchAnalytical, ResearchComparative}

type researchProfile struct {
	system    string
	prefix    string
	maxTokens int
	noteKey   string
	note      string
}

var researchProfiles = map[string]researchProfile{
	ResearchGeneral: {
		system: `You are a research specialist. Provide comprehensive, accurate information on the given topic.

Structure your response as:
1. Key findings (3-5 main points)
2. Supporting details
3. Relevant context
4. Confidence level (high/medium/low)

Be factual, cite reasoning, and acknowledge limitations.`,
		prefix:    "Research topic: ",
		maxTokens: 800,
	},
	ResearchFactual: {
		system: `You are a fact-checking specialist. Provide only verifiable, factual information.

Focus on:
- Specific facts and figures
- Dates, names, and locations
- Quantifiable data
- Well-established information

Clearly indicate when information cannot be verified or is uncertain.`,
		prefix:    "Factual research request: ",
		maxTokens: 600,
		noteKey:   "verification_notes",
		note:      "Based on training data - verify current information independently",
	},
	ResearchAnalytical: {
		system: `You are an analytical research specialist. Provide deep analysis and insights.

Include:
- Multiple perspectives
- Cause and effect relationships
- Trends and patterns
- Implications and consequences
- Critical evaluation

Structure your analysis clearly and support conclusions with reasoning.`,
		prefix:    "Analytical research request: ",
		maxTokens: 1000,
		noteKey:   "methodology",
		note:      "Multi-perspective analytical approach",
	},
	ResearchComparative: {
		system: `You are a comparative research specialist. Analyze and compare different options, approaches, or perspectives.

Provide:
- Clear comparison criteria
- Pros and cons for each option
- Objective evaluation
- Recommendations based on different use cases
- Summary comparison table if applicable

Maintain objectivity and acknowledge trade-offs.`,
		prefix:    "Comparative research request: ",
		maxTokens: 900,
		noteKey:   "evaluation_criteria",
		note:      "Multi-factor comparative analysis",
	},
}

var (
	hedgingTerms   = []string{"might", "could", "possibly", "perhaps", "uncertain", "unclear", "depends", "varies", "approximately"}
	certaintyTerms = []string{"definitely", "certainly", "established", "proven", "confirmed", "verified", "documented"}
)

// CacheStats describes the research cache.
type CacheStats struct {
	Enabled bool `json:"enabled"`
	Size    int  `json:"size"`
}

// ResearchWorker gathers information on a query in one of four modes and
// caches results by mode and query.
type ResearchWorker struct {
	base
	cache   ports.ResultCache
	metrics ports.MetricsCollector
}

// NewResearchWorker creates a research worker. cache may be nil to disable
// caching.
func NewResearchWorker(inv *invoker.Invoker, cache ports.ResultCache, metrics ports.MetricsCollector, settings Settings, logger *zap.Logger) *ResearchWorker {
	return &ResearchWorker{
		base:    newBase(domain.ResearchWorkerName, domain.WorkerResearch, inv, settings, logger),
		cache:   cache,
		metrics: metrics,
	}
}

func researchQuery(input domain.WorkerInput) string {
	if strings.TrimSpace(input.Query) != "" {
		return input.Query
	}
	return input.Task
}

// ValidateInput checks the query and research mode.
func (w *ResearchWorker) ValidateInput(input domain.WorkerInput) error {
	if err := w.checkText("query", researchQuery(input), 3); err != nil {
		return err
	}
	return w.checkMode("research type", orDefault(input.Mode, ResearchGeneral), researchModes)
}

// Process runs the research prompt for the requested mode.
func (w *ResearchWorker) Process(ctx context.Context, input domain.WorkerInput) (*domain.WorkerOutput, error) {
	if err := w.ValidateInput(input); err != nil {
		return nil, err
	}

	query := researchQuery(input)
	mode := orDefault(input.Mode, ResearchGeneral)
	key := cacheKey(mode, query)

	if out, ok := w.lookup(ctx, key); ok {
		w.logger.Info("using cached research result",
			zap.String("task_id", input.TaskID),
			zap.String("mode", mode))
		return out, nil
	}

	w.logger.Info("processing research query",
		zap.String("task_id", input.TaskID),
		zap.String("mode", mode),
		zap.Int("query_length", len(query)))

	profile := researchProfiles[mode]
	findings, err := w.complete(ctx, profile.system, profile.prefix+query, profile.maxTokens)
	if err != nil {
		return nil, err
	}

	out := &domain.WorkerOutput{
		Worker:     w.name,
		Mode:       mode,
		Content:    findings,
		Confidence: assessConfidence(findings),
		WordCount:  wordCount(findings),
		Details:    map[string]string{"query": query},
	}
	if profile.noteKey != "" {
		out.Details[profile.noteKey] = profile.note
	}

	if w.cache != nil {
		if err := w.cache.Set(ctx, key, out); err != nil {
			w.logger.Warn("failed to cache research result", zap.Error(err))
		}
	}

	return out, nil
}

func (w *ResearchWorker) lookup(ctx context.Context, key string) (*domain.WorkerOutput, bool) {
	if w.cache == nil {
		return nil, false
	}
	out, ok, err := w.cache.Get(ctx, key)
	if err != nil {
		w.logger.Warn("research cache lookup failed", zap.Error(err))
		return nil, false
	}
	if w.metrics != nil {
		w.metrics.RecordCacheLookup(ok)
	}
	if !ok {
		return nil, false
	}
	cached := *out
	cached.Cached = true
	return &cached, true
}

// ClearCache empties the research cache and returns how many entries were
// removed.
func (w *ResearchWorker) ClearCache(ctx context.Context) (int, error) {
	if w.cache == nil {
		return 0, nil
	}
	n, err := w.cache.Clear(ctx)
	if err != nil {
		return 0, err
	}
	w.logger.Info("research cache cleared", zap.Int("entries", n))
	return n, nil
}

// CacheStats reports the research cache size.
func (w *ResearchWorker) CacheStats(ctx context.Context) (CacheStats, error) {
	if w.cache == nil {
		return CacheStats{}, nil
	}
	n, err := w.cache.Len(ctx)
	if err != nil {
		return CacheStats{}, err
	}
	return CacheStats{Enabled: true, Size: n}, nil
}

func cacheKey(mode, query string) string {
	sum := sha256.Sum256([]byte(query))
	return mode + ":" + hex.EncodeToString(sum[:8])
}

// assessConfidence grades a reply by counting certainty and hedging terms.
func assessConfidence(text string) string {
	lower := strings.ToLower(text)
	hedging, certain := 0, 0
	for _, t := range hedgingTerms {
		if strings.Contains(lower, t) {
			hedging++
		}
	}
	for _, t := range certaintyTerms {
		if strings.Contains(lower, t) {
			certain++
		}
	}
	switch {
	case certain > hedging:
		return "high"
	case hedging > certain*2:
		return "low"
	default:
		return "medium"
	}
}

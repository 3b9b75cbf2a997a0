package vocabulary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/generation"
	"github.com/phrazzld/literacy-poster/internal/redact"
	"github.com/phrazzld/literacy-poster/internal/store"
)

// DefaultCount is the target vocabulary size.
const DefaultCount = 15

// Source names where a vocabulary came from.
type Source string

// Possible sources
const (
	SourceCache  Source = "cache"
	SourcePreset Source = "preset"
	SourceAI     Source = "ai"
	SourceBasic  Source = "basic"
)

// Generator produces vocabularies with an LLM. generation.Manager implements it.
type Generator interface {
	GenerateVocabulary(ctx context.Context, topic, title string) (*domain.Vocabulary, error)
}

// Options control one Generate call.
type Options struct {
	UseCache bool
	UseAI    bool
	// Count is the minimum total size; values <= 0 use DefaultCount.
	Count int
}

// DefaultOptions enables the cache and the AI source.
func DefaultOptions() Options {
	return Options{UseCache: true, UseAI: true, Count: DefaultCount}
}

// Result is a generated vocabulary and its provenance. Cache hits are not
// recorded in the history, so their HistoryID is uuid.Nil.
type Result struct {
	Vocabulary *domain.Vocabulary     `json:"vocabulary"`
	Source     Source                 `json:"source"`
	Stats      domain.VocabularyStats `json:"stats"`
	HistoryID  uuid.UUID              `json:"history_id"`
	// AIError is set when the AI source failed and a fallback was used.
	AIError error `json:"-"`
}

// Engine assembles vocabularies.
type Engine struct {
	ai      Generator
	cache   *store.VocabularyCache
	history *store.GenerationHistory
	logger  *slog.Logger
}

// NewEngine creates an engine. ai may be nil to disable the AI source.
func NewEngine(ai Generator, cache *store.VocabularyCache, history *store.GenerationHistory, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ai:      ai,
		cache:   cache,
		history: history,
		logger:  logger.With("component", "vocabulary_engine"),
	}
}

// Generate returns the vocabulary for topic.
//
// Sources are tried in order: the cache (when opts.UseCache), the preset
// scenes, the AI generator (when opts.UseAI), and keyword templates. The
// result is padded with common words to opts.Count, has its pinyin filled in
// and cleaned, and is stored in the cache and the generation history.
// An AI failure is not returned; it is reported in Result.AIError.
func (e *Engine) Generate(ctx context.Context, topic, title string, opts Options) (*Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", domain.ErrValidation)
	}
	if title == "" {
		title = topic
	}
	count := opts.Count
	if count <= 0 {
		count = DefaultCount
	}
	log := e.logger.With("topic", topic)

	if opts.UseCache && e.cache != nil {
		v, err := e.cache.Get(ctx, topic)
		switch {
		case err == nil:
			log.DebugContext(ctx, "vocabulary cache hit")
			return e.finish(ctx, topic, title, v, SourceCache, nil)
		case !store.IsNotFoundError(err):
			log.WarnContext(ctx, "vocabulary cache read failed", "error", err)
		}
	}

	var (
		v      *domain.Vocabulary
		source Source
		aiErr  error
	)
	if p, ok := preset(topic); ok {
		v, source = p, SourcePreset
	}
	if v == nil && opts.UseAI && e.ai != nil {
		generated, err := e.ai.GenerateVocabulary(ctx, topic, title)
		switch {
		case err == nil && generated != nil && generated.Total() > 0:
			v, source = generated.Clone(), SourceAI
		case errors.Is(err, generation.ErrNotConfigured):
			log.DebugContext(ctx, "no provider configured, skipping AI source")
		case err != nil:
			aiErr = err
			log.WarnContext(ctx, "AI vocabulary generation failed, using fallback", "error", redact.Error(err))
		}
	}
	if v == nil {
		v, source = basic(topic), SourceBasic
	}

	pad(v, count)
	fillPinyin(v)

	if opts.UseCache && e.cache != nil {
		if err := e.cache.Put(ctx, topic, v); err != nil {
			log.WarnContext(ctx, "vocabulary cache write failed", "error", err)
		}
	}
	return e.finish(ctx, topic, title, v, source, aiErr)
}

func (e *Engine) finish(ctx context.Context, topic, title string, v *domain.Vocabulary, source Source, aiErr error) (*Result, error) {
	res := &Result{Vocabulary: v, Source: source, Stats: v.Stats(), AIError: aiErr}
	if e.history != nil && source != SourceCache {
		rec := domain.NewGenerationRecord(topic, title, v)
		if err := e.history.Append(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to save generation history: %w", err)
		}
		res.HistoryID = rec.ID
	}
	e.logger.InfoContext(ctx, "vocabulary ready",
		"topic", topic,
		"source", source,
		"total", res.Stats.Total)
	return res, nil
}

// pad appends common words until v has at least count items. Words already
// present are skipped.
func pad(v *domain.Vocabulary, count int) {
	seen := make(map[string]bool, v.Total())
	for _, item := range v.Flatten() {
		seen[item.Hanzi] = true
	}
	for _, w := range commonWords {
		if v.Total() >= count {
			return
		}
		if seen[w.Hanzi] {
			continue
		}
		seen[w.Hanzi] = true
		switch w.Category {
		case domain.CategoryCore:
			v.Core = append(v.Core, w)
		case domain.CategoryItem:
			v.Items = append(v.Items, w)
		case domain.CategoryEnv:
			v.Env = append(v.Env, w)
		}
	}
}

// fillPinyin cleans existing pinyin, looks up missing pinyin and sets categories.
func fillPinyin(v *domain.Vocabulary) {
	for _, c := range domain.Categories {
		group := v.Group(c)
		for i := range group {
			group[i].Category = c
			group[i].Pinyin = CleanPinyin(group[i].Pinyin)
			if group[i].Pinyin == "" {
				group[i].Pinyin = Pinyin(group[i].Hanzi)
			}
		}
	}
}

// Stats summarizes v.
func (e *Engine) Stats(v *domain.Vocabulary) domain.VocabularyStats {
	return v.Stats()
}

// ClearCache drops every cached vocabulary.
func (e *Engine) ClearCache(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Clear(ctx)
}

// History lists generated vocabularies, oldest first.
func (e *Engine) History(ctx context.Context) ([]domain.GenerationRecord, error) {
	if e.history == nil {
		return []domain.GenerationRecord{}, nil
	}
	return e.history.List(ctx)
}

// HistoryEntry returns one history entry.
func (e *Engine) HistoryEntry(ctx context.Context, id uuid.UUID) (*domain.GenerationRecord, error) {
	if e.history == nil {
		return nil, store.ErrHistoryEntryNotFound
	}
	return e.history.Get(ctx, id)
}

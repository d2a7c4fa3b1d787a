package dashboard

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/geocode"
)

// DefaultDebounce is the quiet period before a query is sent.
const DefaultDebounce = 200 * time.Millisecond

// SuggestionConfig holds configuration for a SuggestionBox.
type SuggestionConfig struct {
	Searcher geocode.Searcher
	Debounce time.Duration
	Logger   zerolog.Logger

	// OnChange, when set, receives every applied result list.
	OnChange func([]geocode.Suggestion)
}

// SuggestionBox is a debounced search-as-you-type input.
//
// Every keystroke starts a new generation. Only the latest generation may
// apply its results; older timers and responses are dropped.
type SuggestionBox struct {
	searcher geocode.Searcher
	debounce time.Duration
	logger   zerolog.Logger
	onChange func([]geocode.Suggestion)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	query   string
	results []geocode.Suggestion
	gen     uint64
	timer   *time.Timer
}

// NewSuggestionBox creates an empty suggestion box.
func NewSuggestionBox(cfg SuggestionConfig) *SuggestionBox {
	ctx, cancel := context.WithCancel(context.Background())
	b := &SuggestionBox{
		searcher: cfg.Searcher,
		debounce: cfg.Debounce,
		logger:   cfg.Logger.With().Str("component", "suggestions").Logger(),
		onChange: cfg.OnChange,
		ctx:      ctx,
		cancel:   cancel,
		results:  []geocode.Suggestion{},
	}
	if b.debounce <= 0 {
		b.debounce = DefaultDebounce
	}
	return b
}

// Type records the current input and schedules a search after the debounce
// period. Input shorter than geocode.MinQueryLength clears the list at once.
func (b *SuggestionBox) Type(query string) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.query = query
	b.stopTimerLocked()

	if utf8.RuneCountInString(strings.TrimSpace(query)) < geocode.MinQueryLength {
		b.results = []geocode.Suggestion{}
		b.mu.Unlock()
		b.changed([]geocode.Suggestion{})
		return
	}

	b.timer = time.AfterFunc(b.debounce, func() { b.fetch(gen, query) })
	b.mu.Unlock()
}

func (b *SuggestionBox) fetch(gen uint64, query string) {
	results, err := b.searcher.Search(b.ctx, query)
	if err != nil {
		if b.ctx.Err() == nil {
			b.logger.Warn().Err(err).Str("query", query).Msg("suggestion search failed")
		}
		results = []geocode.Suggestion{}
	}

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.results = results
	b.mu.Unlock()

	b.changed(results)
}

// Query returns the current input text.
func (b *SuggestionBox) Query() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// Results returns the applied suggestions.
func (b *SuggestionBox) Results() []geocode.Suggestion {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]geocode.Suggestion, len(b.results))
	copy(out, b.results)
	return out
}

// Select accepts s: the input shows the first part of its display name and
// the list is discarded along with any pending search.
func (b *SuggestionBox) Select(s geocode.Suggestion) {
	label, _, _ := strings.Cut(s.DisplayName, ",")

	b.mu.Lock()
	b.gen++
	b.stopTimerLocked()
	b.query = label
	b.results = []geocode.Suggestion{}
	b.mu.Unlock()

	b.changed([]geocode.Suggestion{})
}

// Clear empties the input and the list.
func (b *SuggestionBox) Clear() {
	b.mu.Lock()
	b.gen++
	b.stopTimerLocked()
	b.query = ""
	b.results = []geocode.Suggestion{}
	b.mu.Unlock()

	b.changed([]geocode.Suggestion{})
}

// Close cancels any pending or in-flight search.
func (b *SuggestionBox) Close() {
	b.mu.Lock()
	b.gen++
	b.stopTimerLocked()
	b.mu.Unlock()
	b.cancel()
}

func (b *SuggestionBox) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *SuggestionBox) changed(results []geocode.Suggestion) {
	if b.onChange != nil {
		b.onChange(results)
	}
}

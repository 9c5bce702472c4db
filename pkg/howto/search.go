package howto

import (
	"sort"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Per-field importance weights for free-text ranking.
const (
	weightTitle       = 0.50
	weightDescription = 0.20
	weightCreatedBy   = 0.15
	weightStepTitles  = 0.10
	weightStepTexts   = 0.05
)

// SearchEngine narrows a candidate set by selected tags and ranks it by
// weighted fuzzy match against a free-text query. With no query the
// tag-filtered set keeps its incoming (created-desc) order.
type SearchEngine struct {
	tags TagMatcher

	// fzf's slab is a scratch allocation arena and is not safe for
	// concurrent use.
	mu   sync.Mutex
	slab *util.Slab
}

// NewSearchEngine creates an engine using the given tag matcher. A nil
// matcher falls back to the default intersection rule.
func NewSearchEngine(tags TagMatcher) *SearchEngine {
	if tags == nil {
		tags = DefaultTagMatcher{}
	}
	return &SearchEngine{
		tags: tags,
		slab: util.MakeSlab(100*1024, 2048),
	}
}

// Filter applies the tag filter, then the optional fuzzy ranking. The input
// slice is never mutated.
func (e *SearchEngine) Filter(items []*Howto, f ListFilter) []*Howto {
	tagged := make([]*Howto, 0, len(items))
	for _, h := range items {
		if e.tags.Matches(h.Tags, f.SelectedTags) {
			tagged = append(tagged, h)
		}
	}

	query := strings.TrimSpace(f.SearchQuery)
	if query == "" {
		return tagged
	}

	pattern := []rune(strings.ToLower(query))

	type scored struct {
		item  *Howto
		score float64
	}
	matches := make([]scored, 0, len(tagged))

	e.mu.Lock()
	for _, h := range tagged {
		s := e.itemScore(h, pattern)
		if s > 0 {
			matches = append(matches, scored{item: h, score: s})
		}
	}
	e.mu.Unlock()

	// Stable sort over the baseline-ordered slice keeps equal-score ties
	// deterministic.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	out := make([]*Howto, len(matches))
	for i, m := range matches {
		out[i] = m.item
	}
	return out
}

// itemScore is the weighted sum of per-field fuzzy scores. Multi-value
// fields (step titles, step texts) contribute their best-matching value.
func (e *SearchEngine) itemScore(h *Howto, pattern []rune) float64 {
	score := weightTitle * e.fieldScore(h.Title, pattern)
	score += weightDescription * e.fieldScore(h.Description, pattern)
	score += weightCreatedBy * e.fieldScore(h.CreatedBy, pattern)

	var bestTitle, bestText float64
	for _, step := range h.Steps {
		if s := e.fieldScore(step.Title, pattern); s > bestTitle {
			bestTitle = s
		}
		if s := e.fieldScore(step.Text, pattern); s > bestText {
			bestText = s
		}
	}
	score += weightStepTitles * bestTitle
	score += weightStepTexts * bestText

	return score
}

func (e *SearchEngine) fieldScore(text string, pattern []rune) float64 {
	if text == "" || len(pattern) == 0 {
		return 0
	}
	chars := util.ToChars([]byte(strings.ToLower(text)))
	result, _ := algo.FuzzyMatchV2(false, true, true, &chars, pattern, false, e.slab)
	if result.Score <= 0 {
		return 0
	}
	return float64(result.Score)
}

// DefaultTagMatcher passes every item when no tags are selected, and
// otherwise requires at least one selected tag present on the item.
type DefaultTagMatcher struct{}

// Matches implements TagMatcher.
func (DefaultTagMatcher) Matches(itemTags, selectedTags map[string]bool) bool {
	selected := false
	for tag, on := range selectedTags {
		if !on {
			continue
		}
		selected = true
		if itemTags[tag] {
			return true
		}
	}
	return !selected
}

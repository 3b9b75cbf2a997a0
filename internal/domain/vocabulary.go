package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Category groups vocabulary items on a poster.
type Category string

// Possible category values
const (
	CategoryCore Category = "core"
	CategoryItem Category = "item"
	CategoryEnv  Category = "env"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryCore, CategoryItem, CategoryEnv}

// Soft size bounds for a generated vocabulary.
const (
	CoreMin  = 3
	CoreMax  = 5
	ItemMin  = 5
	ItemMax  = 8
	EnvMin   = 3
	EnvMax   = 5
	TotalMin = 15
	TotalMax = 20
)

// VocabularyItem is a single word to be drawn and labelled on the poster.
type VocabularyItem struct {
	Hanzi    string   `json:"word"`
	Pinyin   string   `json:"pinyin"`
	Category Category `json:"category,omitempty"`
}

// Vocabulary is the three-group word list for one topic.
type Vocabulary struct {
	Core  []VocabularyItem `json:"core"`
	Items []VocabularyItem `json:"items"`
	Env   []VocabularyItem `json:"env"`
}

// VocabularyStats summarizes a vocabulary's composition.
type VocabularyStats struct {
	Total         int      `json:"total"`
	Core          int      `json:"core"`
	Item          int      `json:"item"`
	Env           int      `json:"env"`
	HasDuplicates bool     `json:"has_duplicates"`
	Duplicates    []string `json:"duplicates,omitempty"`
}

// Total returns the number of items across all groups.
func (v *Vocabulary) Total() int {
	return len(v.Core) + len(v.Items) + len(v.Env)
}

// Group returns the items of one category.
func (v *Vocabulary) Group(c Category) []VocabularyItem {
	switch c {
	case CategoryCore:
		return v.Core
	case CategoryItem:
		return v.Items
	case CategoryEnv:
		return v.Env
	default:
		return nil
	}
}

// Flatten returns all items in core, item, env order with Category set.
func (v *Vocabulary) Flatten() []VocabularyItem {
	out := make([]VocabularyItem, 0, v.Total())
	for _, c := range Categories {
		for _, item := range v.Group(c) {
			item.Category = c
			out = append(out, item)
		}
	}
	return out
}

// FromItems groups a flat item list by category. Items with an unknown
// category are dropped.
func FromItems(items []VocabularyItem) *Vocabulary {
	v := &Vocabulary{
		Core:  []VocabularyItem{},
		Items: []VocabularyItem{},
		Env:   []VocabularyItem{},
	}
	for _, item := range items {
		switch item.Category {
		case CategoryCore:
			v.Core = append(v.Core, item)
		case CategoryItem:
			v.Items = append(v.Items, item)
		case CategoryEnv:
			v.Env = append(v.Env, item)
		}
	}
	return v
}

// Validate checks the soft size bounds and that every item has hanzi.
// Callers may pad or truncate instead of rejecting.
func (v *Vocabulary) Validate() error {
	checks := []struct {
		name     string
		n        int
		min, max int
	}{
		{"core", len(v.Core), CoreMin, CoreMax},
		{"items", len(v.Items), ItemMin, ItemMax},
		{"env", len(v.Env), EnvMin, EnvMax},
		{"total", v.Total(), TotalMin, TotalMax},
	}
	for _, c := range checks {
		if c.n < c.min || c.n > c.max {
			return fmt.Errorf("%w: %s has %d entries, want %d-%d", ErrValidation, c.name, c.n, c.min, c.max)
		}
	}
	for _, item := range v.Flatten() {
		if item.Hanzi == "" {
			return fmt.Errorf("%w: %s item with empty hanzi", ErrValidation, item.Category)
		}
	}
	return nil
}

// Stats counts items per category and reports duplicated hanzi.
func (v *Vocabulary) Stats() VocabularyStats {
	all := v.Flatten()
	dups := lo.Uniq(lo.Map(
		lo.FindDuplicatesBy(all, func(item VocabularyItem) string { return item.Hanzi }),
		func(item VocabularyItem, _ int) string { return item.Hanzi },
	))
	return VocabularyStats{
		Total:         len(all),
		Core:          len(v.Core),
		Item:          len(v.Items),
		Env:           len(v.Env),
		HasDuplicates: len(dups) > 0,
		Duplicates:    dups,
	}
}

// Clone returns a deep copy.
func (v *Vocabulary) Clone() *Vocabulary {
	return &Vocabulary{
		Core:  append([]VocabularyItem{}, v.Core...),
		Items: append([]VocabularyItem{}, v.Items...),
		Env:   append([]VocabularyItem{}, v.Env...),
	}
}

// GenerationRecord is one entry of the vocabulary generation history.
type GenerationRecord struct {
	ID         uuid.UUID   `json:"id"`
	Topic      string      `json:"topic"`
	Title      string      `json:"title"`
	Vocabulary *Vocabulary `json:"vocabulary"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewGenerationRecord creates a history entry stamped with a fresh id.
func NewGenerationRecord(topic, title string, v *Vocabulary) *GenerationRecord {
	return &GenerationRecord{
		ID:         uuid.New(),
		Topic:      topic,
		Title:      title,
		Vocabulary: v,
		CreatedAt:  time.Now().UTC(),
	}
}

package generation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/phrazzld/literacy-poster/internal/domain"
)

// Minimum group sizes a provider reply must meet to be accepted.
const (
	minCore  = 3
	minItems = 5
	minEnv   = 3
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// wireItem accepts both the "word" key the prompt asks for and "hanzi".
type wireItem struct {
	Word   string `json:"word"`
	Hanzi  string `json:"hanzi"`
	Pinyin string `json:"pinyin"`
}

type wireVocabulary struct {
	Core  []wireItem `json:"core"`
	Items []wireItem `json:"items"`
	Item  []wireItem `json:"item"`
	Env   []wireItem `json:"env"`
}

// Parser turns completion text into a Vocabulary.
type Parser struct {
	// Strict reports malformed replies as parse errors instead of
	// substituting DefaultVocabulary.
	Strict bool
	Logger *slog.Logger
}

// Parse extracts and validates the vocabulary JSON in content.
//
// When content holds a fenced code block only the block body is decoded.
// Invalid or undersized replies return DefaultVocabulary and a nil error,
// or a parse-kind *domain.Error when p.Strict is set.
func (p Parser) Parse(content string) (*domain.Vocabulary, error) {
	v, err := decodeVocabulary(content)
	if err == nil {
		return v, nil
	}
	if p.Strict {
		return nil, domain.Errorf(domain.KindParse, "invalid vocabulary response: %w", err)
	}
	p.logger().Warn("provider returned unusable vocabulary, using default",
		"error", err,
		"content_len", len(content))
	return DefaultVocabulary(), nil
}

func (p Parser) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// ParseVocabularyResponse parses content leniently; it never fails.
func ParseVocabularyResponse(content string) *domain.Vocabulary {
	v, _ := Parser{}.Parse(content)
	return v
}

// ExtractJSON returns the body of the first fenced code block in content,
// or the trimmed content when there is none.
func ExtractJSON(content string) string {
	if m := fencedBlock.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return strings.TrimSpace(content)
}

func decodeVocabulary(content string) (*domain.Vocabulary, error) {
	var wire wireVocabulary
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &wire); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	items := wire.Items
	if items == nil {
		items = wire.Item
	}

	switch {
	case len(wire.Core) < minCore:
		return nil, fmt.Errorf("core has %d entries, need at least %d", len(wire.Core), minCore)
	case len(items) < minItems:
		return nil, fmt.Errorf("items has %d entries, need at least %d", len(items), minItems)
	case len(wire.Env) < minEnv:
		return nil, fmt.Errorf("env has %d entries, need at least %d", len(wire.Env), minEnv)
	}

	return &domain.Vocabulary{
		Core:  convertItems(wire.Core, domain.CategoryCore),
		Items: convertItems(items, domain.CategoryItem),
		Env:   convertItems(wire.Env, domain.CategoryEnv),
	}, nil
}

func convertItems(in []wireItem, c domain.Category) []domain.VocabularyItem {
	out := make([]domain.VocabularyItem, len(in))
	for i, w := range in {
		hanzi := w.Word
		if hanzi == "" {
			hanzi = w.Hanzi
		}
		out[i] = domain.VocabularyItem{Hanzi: hanzi, Pinyin: w.Pinyin, Category: c}
	}
	return out
}

// DefaultVocabulary returns the school classroom set used when a provider
// reply cannot be used. Each call returns a fresh copy.
func DefaultVocabulary() *domain.Vocabulary {
	return &domain.Vocabulary{
		Core: []domain.VocabularyItem{
			{Hanzi: "教师", Pinyin: "jiào shī", Category: domain.CategoryCore},
			{Hanzi: "学生", Pinyin: "xué shēng", Category: domain.CategoryCore},
			{Hanzi: "黑板", Pinyin: "hēi bǎn", Category: domain.CategoryCore},
		},
		Items: []domain.VocabularyItem{
			{Hanzi: "书本", Pinyin: "shū běn", Category: domain.CategoryItem},
			{Hanzi: "铅笔", Pinyin: "qiān bǐ", Category: domain.CategoryItem},
			{Hanzi: "课桌", Pinyin: "kè zhuō", Category: domain.CategoryItem},
			{Hanzi: "椅子", Pinyin: "yǐ zi", Category: domain.CategoryItem},
			{Hanzi: "书包", Pinyin: "shū bāo", Category: domain.CategoryItem},
		},
		Env: []domain.VocabularyItem{
			{Hanzi: "教室", Pinyin: "jiào shì", Category: domain.CategoryEnv},
			{Hanzi: "窗户", Pinyin: "chuāng hù", Category: domain.CategoryEnv},
			{Hanzi: "门", Pinyin: "mén", Category: domain.CategoryEnv},
		},
	}
}

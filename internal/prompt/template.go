package prompt

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/samber/lo"
)

// Template placeholders.
const (
	VarTopic          = "{{topic}}"
	VarTitle          = "{{title}}"
	VarCoreVocabulary = "{{coreVocabulary}}"
	VarItemVocabulary = "{{itemVocabulary}}"
	VarEnvVocabulary  = "{{envVocabulary}}"
)

// Variables lists every placeholder a complete template contains.
var Variables = []string{VarTopic, VarTitle, VarCoreVocabulary, VarItemVocabulary, VarEnvVocabulary}

// ErrInvalidTemplate is returned when a template lacks a required placeholder.
var ErrInvalidTemplate = errors.New("invalid prompt template")

// Template renders poster prompts. The zero value is not usable; call New.
// It is safe for concurrent use.
type Template struct {
	mu   sync.RWMutex
	text string
}

// New returns a Template using DefaultTemplate.
func New() *Template {
	return &Template{text: DefaultTemplate}
}

// Text returns the current template text.
func (t *Template) Text() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

// SetTemplate replaces the template. It must contain at least the topic and
// title placeholders.
func (t *Template) SetTemplate(text string) error {
	for _, v := range []string{VarTopic, VarTitle} {
		if !strings.Contains(text, v) {
			return fmt.Errorf("%w: missing %s", ErrInvalidTemplate, v)
		}
	}
	t.mu.Lock()
	t.text = text
	t.mu.Unlock()
	return nil
}

// Reset restores DefaultTemplate.
func (t *Template) Reset() {
	t.mu.Lock()
	t.text = DefaultTemplate
	t.mu.Unlock()
}

// ValidateTemplate reports whether text contains all of Variables and, if
// not, which placeholder is missing first.
func ValidateTemplate(text string) (missing string, ok bool) {
	for _, v := range Variables {
		if !strings.Contains(text, v) {
			return v, false
		}
	}
	return "", true
}

// Render fills the current template. A nil vocabulary yields empty lists.
func (t *Template) Render(topic, title string, v *domain.Vocabulary) string {
	core, item, env := lists(v)
	r := strings.NewReplacer(
		VarTopic, topic,
		VarTitle, title,
		VarCoreVocabulary, core,
		VarItemVocabulary, item,
		VarEnvVocabulary, env,
	)
	return r.Replace(t.Text())
}

// Simple renders the short preview prompt.
func Simple(topic, title string, v *domain.Vocabulary) string {
	core, item, env := lists(v)
	return fmt.Sprintf("儿童识字小报《%s》，主题：%s\n\n核心内容：%s\n\n常见物品：%s\n\n环境装饰：%s\n\n"+
		"要求：卡通插画风格，适合5-9岁儿童，每个物体标注拼音和汉字，A4竖版，色彩鲜艳。",
		title, topic, core, item, env)
}

// FormatItems renders items as "pinyin hanzi" pairs joined by ", ".
func FormatItems(items []domain.VocabularyItem) string {
	return strings.Join(lo.Map(items, func(it domain.VocabularyItem, _ int) string {
		return strings.TrimSpace(it.Pinyin + " " + it.Hanzi)
	}), ", ")
}

func lists(v *domain.Vocabulary) (core, item, env string) {
	if v == nil {
		return "", "", ""
	}
	return FormatItems(v.Core), FormatItems(v.Items), FormatItems(v.Env)
}

package prompt_test

import (
	"strings"
	"testing"

	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func supermarket() *domain.Vocabulary {
	return &domain.Vocabulary{
		Core:  []domain.VocabularyItem{{Hanzi: "收银员", Pinyin: "shōu yín yuán"}, {Hanzi: "货架", Pinyin: "huò jià"}},
		Items: []domain.VocabularyItem{{Hanzi: "苹果", Pinyin: "píng guǒ"}},
		Env:   []domain.VocabularyItem{{Hanzi: "灯", Pinyin: "dēng"}},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out := prompt.New().Render("超市", "开心超市", &domain.Vocabulary{
		Core: []domain.VocabularyItem{{Hanzi: "收银员", Pinyin: "shōu yín yuán"}},
	})

	assert.Contains(t, out, "shōu yín yuán 收银员")
	assert.Contains(t, out, "《开心超市》")
	assert.Contains(t, out, "「超市」")
	for _, v := range prompt.Variables {
		assert.NotContains(t, out, v)
	}
}

func TestRenderJoinsItems(t *testing.T) {
	t.Parallel()

	out := prompt.New().Render("超市", "开心超市", supermarket())

	assert.Contains(t, out, "shōu yín yuán 收银员, huò jià 货架")
	assert.Contains(t, out, "píng guǒ 苹果")
	assert.Contains(t, out, "dēng 灯")
}

func TestRenderNilVocabulary(t *testing.T) {
	t.Parallel()

	out := prompt.New().Render("公园", "快乐公园", nil)
	assert.NotContains(t, out, "{{")
}

func TestSimple(t *testing.T) {
	t.Parallel()

	out := prompt.Simple("超市", "开心超市", supermarket())

	assert.True(t, strings.HasPrefix(out, "儿童识字小报《开心超市》，主题：超市"))
	assert.Contains(t, out, "核心内容：shōu yín yuán 收银员, huò jià 货架")
	assert.Contains(t, out, "环境装饰：dēng 灯")
}

func TestSetTemplate(t *testing.T) {
	t.Parallel()

	tpl := prompt.New()

	err := tpl.SetTemplate("no placeholders")
	require.ErrorIs(t, err, prompt.ErrInvalidTemplate)
	assert.Equal(t, prompt.DefaultTemplate, tpl.Text())

	err = tpl.SetTemplate("{{topic}} only")
	assert.ErrorIs(t, err, prompt.ErrInvalidTemplate)

	require.NoError(t, tpl.SetTemplate("{{title}}: {{topic}} / {{coreVocabulary}}"))
	assert.Equal(t, "开心超市: 超市 / shōu yín yuán 收银员, huò jià 货架", tpl.Render("超市", "开心超市", supermarket()))

	tpl.Reset()
	assert.Equal(t, prompt.DefaultTemplate, tpl.Text())
}

func TestValidateTemplate(t *testing.T) {
	t.Parallel()

	missing, ok := prompt.ValidateTemplate(prompt.DefaultTemplate)
	assert.True(t, ok)
	assert.Empty(t, missing)

	missing, ok = prompt.ValidateTemplate("{{topic}} {{title}} {{coreVocabulary}} {{envVocabulary}}")
	assert.False(t, ok)
	assert.Equal(t, prompt.VarItemVocabulary, missing)
}

func TestFormatItems(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", prompt.FormatItems(nil))
	assert.Equal(t, "门", prompt.FormatItems([]domain.VocabularyItem{{Hanzi: "门"}}))
}

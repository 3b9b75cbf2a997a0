package vocabulary

import (
	"strings"

	"github.com/phrazzld/literacy-poster/internal/domain"
)

func items(c domain.Category, pairs ...string) []domain.VocabularyItem {
	out := make([]domain.VocabularyItem, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.VocabularyItem{Hanzi: pairs[i], Pinyin: pairs[i+1], Category: c})
	}
	return out
}

// presets are curated scenes, keyed by exact topic.
var presets = map[string]domain.Vocabulary{
	"超市": {
		Core: items(domain.CategoryCore,
			"收银员", "shōu yín yuán2", "购物车", "gòu wù chē1", "货架", "huò jià4", "收银台", "shōu yín tái2"),
		Items: items(domain.CategoryItem,
			"苹果", "píng guǒ3", "牛奶", "niú nǎi3", "面包", "miàn bāo1", "鸡蛋", "jī dàn4",
			"香蕉", "xiāng jiāo1", "饼干", "bǐng gān1", "果汁", "guǒ zhī1"),
		Env: items(domain.CategoryEnv,
			"入口", "rù kǒu3", "出口", "chū kǒu3", "灯", "dēng1", "墙", "qiáng2"),
	},
	"医院": {
		Core: items(domain.CategoryCore,
			"医生", "yī shēng1", "护士", "hù shi4", "病人", "bìng rén2", "病床", "bìng chuáng2"),
		Items: items(domain.CategoryItem,
			"体温计", "tǐ wēn jì4", "听诊器", "tīng zhěn qì4", "药", "yào4", "针筒", "zhēn tǒng3",
			"纱布", "shā bù4", "病历", "bìng lì4"),
		Env: items(domain.CategoryEnv,
			"诊室", "zhěn shì4", "药房", "yào fáng2", "挂号处", "guà hào chù4", "走廊", "zǒu láng2"),
	},
	"公园": {
		Core: items(domain.CategoryCore,
			"树", "shù4", "花", "huā1", "草", "cǎo3", "长椅", "cháng yǐ3"),
		Items: items(domain.CategoryItem,
			"滑梯", "huá tī1", "秋千", "qiū qiān1", "跷跷板", "qiāo qiāo bǎn3", "气球", "qì qiú2",
			"风筝", "fēng zheng1", "球", "qiú2"),
		Env: items(domain.CategoryEnv,
			"湖", "hú2", "桥", "qiáo2", "路", "lù4", "喷泉", "pēn quán2"),
	},
}

// preset returns a copy of the preset scene for topic.
func preset(topic string) (*domain.Vocabulary, bool) {
	v, ok := presets[strings.TrimSpace(topic)]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// basicTemplates are matched by substring when no better source is available.
// Pinyin is filled by the lookup table.
var basicTemplates = []struct {
	keyword string
	items   []domain.VocabularyItem
}{
	{"学校", []domain.VocabularyItem{
		{Hanzi: "老师", Category: domain.CategoryCore},
		{Hanzi: "学生", Category: domain.CategoryCore},
		{Hanzi: "课桌", Category: domain.CategoryItem},
		{Hanzi: "黑板", Category: domain.CategoryItem},
		{Hanzi: "书本", Category: domain.CategoryItem},
	}},
	{"动物园", []domain.VocabularyItem{
		{Hanzi: "熊猫", Category: domain.CategoryCore},
		{Hanzi: "老虎", Category: domain.CategoryCore},
		{Hanzi: "笼子", Category: domain.CategoryEnv},
		{Hanzi: "草地", Category: domain.CategoryEnv},
		{Hanzi: "标牌", Category: domain.CategoryEnv},
	}},
}

var genericItems = []domain.VocabularyItem{
	{Hanzi: "人", Pinyin: "rén", Category: domain.CategoryCore},
	{Hanzi: "门", Pinyin: "mén", Category: domain.CategoryEnv},
	{Hanzi: "窗", Pinyin: "chuāng", Category: domain.CategoryEnv},
	{Hanzi: "桌子", Pinyin: "zhuō zi", Category: domain.CategoryItem},
}

// basic builds a small vocabulary from keyword templates, or a generic one.
func basic(topic string) *domain.Vocabulary {
	for _, tpl := range basicTemplates {
		if strings.Contains(topic, tpl.keyword) {
			return domain.FromItems(tpl.items)
		}
	}
	return domain.FromItems(genericItems)
}

// commonWords pad a short vocabulary, in this order.
var commonWords = []domain.VocabularyItem{
	{Hanzi: "灯", Category: domain.CategoryEnv},
	{Hanzi: "墙", Category: domain.CategoryEnv},
	{Hanzi: "门", Category: domain.CategoryEnv},
	{Hanzi: "窗", Category: domain.CategoryEnv},
	{Hanzi: "椅子", Category: domain.CategoryItem},
	{Hanzi: "桌子", Category: domain.CategoryItem},
}

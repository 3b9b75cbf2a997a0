package generation

import "fmt"

// Request parameters shared by every vendor.
const (
	Temperature = 0.7
	MaxTokens   = 2000
)

// SystemPrompt frames the model as a children's literacy content assistant.
const SystemPrompt = "你是一个专业的儿童教育内容生成助手，专门为5-9岁儿童生成适合的识字词汇。请严格按要求返回JSON格式的数据。"

// PingPrompt is sent by connection checks.
const PingPrompt = "ping"

const vocabularyPromptFormat = `请为"%s"这个主题生成15-20个适合5-9岁儿童认识的名词，分为三类：
1. 核心角色与设施(3-5个) - 该场景的主要人物和关键设施
2. 常见物品(5-8个) - 该场景中常见的物品和工具
3. 环境装饰(3-5个) - 该场景的环境元素和装饰

要求：
- 每个词必须是具体名词，适合5-9岁儿童认知
- 每个词包含汉字和准确的带声调拼音
- 拼音格式示例：shōu yín yuán

请严格按照以下JSON格式返回，不要包含任何其他文字：
{
  "core": [
    {"word": "收银员", "pinyin": "shōu yín yuán"},
    {"word": "货架", "pinyin": "huò jià"}
  ],
  "items": [
    {"word": "苹果", "pinyin": "píng guǒ"},
    {"word": "牛奶", "pinyin": "niú nǎi"}
  ],
  "env": [
    {"word": "出口", "pinyin": "chū kǒu"},
    {"word": "灯", "pinyin": "dēng"}
  ]
}`

// VocabularyPrompt returns the user instruction asking for a vocabulary for topic.
func VocabularyPrompt(topic string) string {
	return fmt.Sprintf(vocabularyPromptFormat, topic)
}

package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/phrazzld/literacy-poster/internal/domain"
)

// Request is the vendor-neutral completion request an Adapter sends.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Profile describes one chat-completion vendor.
type Profile struct {
	ID           string
	Name         string
	BaseURL      string
	Path         string
	DefaultModel string
	Models       []domain.ModelInfo

	// Authorize sets the credential headers on h.
	Authorize func(h http.Header, apiKey string)

	// BuildBody returns the JSON-serializable request body.
	BuildBody func(req Request) any

	// ExtractContent returns the completion text of a 2xx reply body.
	// An empty string means the reply carried no text.
	ExtractContent func(body []byte) (string, error)
}

// errNoContent is returned by extractors when the expected field is absent.
var errNoContent = errors.New("reply has no completion text")

func bearer(h http.Header, apiKey string) {
	h.Set("Authorization", "Bearer "+apiKey)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

func openAIBody(req Request) any {
	msgs := make([]message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, message{Role: "user", Content: req.Prompt})
	return openAIRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func openAIContent(body []byte) (string, error) {
	var reply struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", err
	}
	if len(reply.Choices) == 0 {
		return "", errNoContent
	}
	return reply.Choices[0].Message.Content, nil
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

func anthropicBody(req Request) any {
	return anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	}
}

func anthropicContent(body []byte) (string, error) {
	var reply struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", err
	}
	if len(reply.Content) == 0 {
		return "", errNoContent
	}
	return reply.Content[0].Text, nil
}

// openAICompatible fills the fields shared by vendors that speak the
// OpenAI chat/completions dialect.
func openAICompatible(id, name, baseURL, defaultModel string, models []domain.ModelInfo) Profile {
	return Profile{
		ID:             id,
		Name:           name,
		BaseURL:        baseURL,
		Path:           "/chat/completions",
		DefaultModel:   defaultModel,
		Models:         models,
		Authorize:      bearer,
		BuildBody:      openAIBody,
		ExtractContent: openAIContent,
	}
}

// SiliconFlow is the default provider.
var SiliconFlow = openAICompatible("siliconflow", "SiliconFlow", "https://api.siliconflow.cn/v1",
	"Qwen/Qwen2.5-7B-Instruct", []domain.ModelInfo{
		{ID: "Qwen/Qwen2.5-7B-Instruct", Name: "Qwen2.5-7B-Instruct"},
		{ID: "Qwen/Qwen2.5-14B-Instruct", Name: "Qwen2.5-14B-Instruct"},
		{ID: "Qwen/Qwen2.5-32B-Instruct", Name: "Qwen2.5-32B-Instruct"},
		{ID: "Qwen/Qwen2.5-72B-Instruct", Name: "Qwen2.5-72B-Instruct"},
		{ID: "Qwen/Qwen2.5-Coder-7B-Instruct", Name: "Qwen2.5-Coder-7B-Instruct"},
		{ID: "deepseek-ai/DeepSeek-V2.5", Name: "DeepSeek-V2.5"},
		{ID: "01-ai/Yi-1.5-9B-Chat", Name: "Yi-1.5-9B-Chat"},
		{ID: "internlm/internlm2_5-7b-chat", Name: "InternLM2.5-7B-Chat"},
		{ID: "meta-llama/Llama-3.2-3B-Instruct", Name: "Llama-3.2-3B-Instruct"},
	})

// Zhipu is the GLM platform.
var Zhipu = openAICompatible("zhipu", "Zhipu", "https://open.bigmodel.cn/api/paas/v4",
	"glm-4", []domain.ModelInfo{
		{ID: "glm-4", Name: "GLM-4"},
		{ID: "glm-4-plus", Name: "GLM-4-Plus"},
		{ID: "glm-4-flash", Name: "GLM-4-Flash"},
		{ID: "glm-4-air", Name: "GLM-4-Air"},
		{ID: "glm-4-long", Name: "GLM-4-Long"},
	})

var OpenAI = openAICompatible("openai", "OpenAI", "https://api.openai.com/v1",
	"gpt-3.5-turbo", []domain.ModelInfo{
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo"},
		{ID: "gpt-4", Name: "GPT-4"},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo"},
	})

// AnthropicVersion is sent in the anthropic-version header.
const AnthropicVersion = "2023-06-01"

var Anthropic = Profile{
	ID:           "anthropic",
	Name:         "Anthropic",
	BaseURL:      "https://api.anthropic.com/v1",
	Path:         "/messages",
	DefaultModel: "claude-3-haiku-20240307",
	Models: []domain.ModelInfo{
		{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku"},
		{ID: "claude-3-sonnet-20240229", Name: "Claude 3 Sonnet"},
		{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus"},
	},
	Authorize: func(h http.Header, apiKey string) {
		h.Set("x-api-key", apiKey)
		h.Set("anthropic-version", AnthropicVersion)
	},
	BuildBody:      anthropicBody,
	ExtractContent: anthropicContent,
}

// Profiles lists every built-in chat vendor.
func Profiles() []Profile {
	return []Profile{SiliconFlow, Zhipu, OpenAI, Anthropic}
}

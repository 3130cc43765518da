package builtin

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kode4food/twill/pkg/api"
)

// OpenAI runs a single chat completion. The API key arrives as a parameter,
// normally supplied through the credential profile's environment reference
// rather than inline in a flow
type OpenAI struct{}

const defaultOpenAIModel = openai.GPT4oMini

var ErrEmptyCompletion = errors.New("completion returned no choices")

func NewOpenAI() *OpenAI {
	return &OpenAI{}
}

func (o *OpenAI) Describe() *api.Schema {
	return &api.Schema{
		Name:        TypeOpenAI,
		Version:     Version,
		Description: "Runs an OpenAI chat completion",
		Suspending:  true,
		Params: api.ParamSpecs{
			"api_key": {
				Role:        api.RoleRequired,
				Type:        api.TypeString,
				Description: "API key, usually a profile env reference",
			},
			"prompt": {
				Role:        api.RoleRequired,
				Type:        api.TypeString,
				Description: "User prompt",
			},
			"model": {
				Role:        api.RoleOptional,
				Type:        api.TypeString,
				Description: "Model name",
			},
			"system": {
				Role:        api.RoleOptional,
				Type:        api.TypeString,
				Description: "System prompt",
			},
			"temperature": {
				Role:        api.RoleOptional,
				Type:        api.TypeNumber,
				Description: "Sampling temperature",
			},
			"max_tokens": {
				Role:        api.RoleOptional,
				Type:        api.TypeNumber,
				Description: "Completion token limit",
			},
			"base_url": {
				Role:        api.RoleOptional,
				Type:        api.TypeString,
				Description: "Alternate API endpoint",
			},
		},
		Outputs: api.OutputSpecs{
			"content": {Type: api.TypeString, Description: "Completion text"},
			"model":   {Type: api.TypeString, Description: "Model that answered"},
			"usage":   {Type: api.TypeObject, Description: "Token usage"},
		},
	}
}

func (o *OpenAI) Execute(
	ctx context.Context, input api.Args,
) (*api.StepResult, error) {
	key, err := requireString(input, "api_key")
	if err != nil {
		return nil, err
	}
	prompt, err := requireString(input, "prompt")
	if err != nil {
		return nil, err
	}

	client := newOpenAIClient(key, input.GetString("base_url", ""))

	req := openai.ChatCompletionRequest{
		Model:       input.GetString("model", defaultOpenAIModel),
		Messages:    chatMessages(input.GetString("system", ""), prompt),
		Temperature: float32(input.GetFloat("temperature", 0)),
		MaxTokens:   input.GetInt("max_tokens", 0),
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCompletion, req.Model)
	}

	return api.NewResult().
		WithOutput("content", resp.Choices[0].Message.Content).
		WithOutput("model", resp.Model).
		WithOutput("usage", map[string]any{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		}), nil
}

func newOpenAIClient(key, baseURL string) *openai.Client {
	if baseURL == "" {
		return openai.NewClient(key)
	}
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = baseURL
	return openai.NewClientWithConfig(cfg)
}

func chatMessages(system, prompt string) []openai.ChatCompletionMessage {
	var res []openai.ChatCompletionMessage
	if system != "" {
		res = append(res, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	return append(res, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

var _ api.Capability = (*OpenAI)(nil)

package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	gerrors "github.com/vinayprograms/llmgate/errors"
)

// OpenRouterBaseURL is the fixed endpoint used when the primary backend is
// selected.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider implements Provider against OpenRouter's
// OpenAI-compatible chat completions API.
type OpenRouterProvider struct {
	client       *openai.Client
	model        string
	maxTokens    int
	temperature  *float64
	providerName string
	extra        map[string]interface{}
}

// OpenRouterConfig holds construction parameters for the OpenRouter backend.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string // defaults to OpenRouterBaseURL
	Model        string
	MaxTokens    int
	Temperature  *float64
	Timeout      time.Duration
	ProviderName string // for diagnostics, defaults to "openrouter"
	// Extra carries backend-specific parameters forwarded verbatim into the
	// request body (e.g. top_p, transforms).
	Extra map[string]interface{}
}

// NewOpenRouterProvider creates an OpenRouter backend.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.Model == "" {
		return nil, gerrors.InvalidConfig("model is required for openrouter")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = ProviderOpenRouter
	}

	// The SDK retries transient failures by default. The gate owns pacing
	// and surfaces backend errors unchanged, so retries are disabled here.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	for k, v := range cfg.Extra {
		opts = append(opts, option.WithJSONSet(k, v))
	}

	client := openai.NewClient(opts...)

	return &OpenRouterProvider{
		client:       &client,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		providerName: cfg.ProviderName,
		extra:        cfg.Extra,
	}, nil
}

// Name returns the provider tag used in diagnostics.
func (p *OpenRouterProvider) Name() string {
	return p.providerName
}

// Chat implements the Provider interface. Backend errors are returned
// unchanged; rate limiting and recovery are the caller's concern.
func (p *OpenRouterProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "user":
			messages = append(messages, openai.UserMessage(m.Content))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Args)
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content:   openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)},
					ToolCalls: toolCalls,
				},
			})
		case "tool":
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	} else if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.maxTokens))
	}

	if p.temperature != nil {
		params.Temperature = openai.Float(*p.temperature)
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			schemaJSON, _ := json.Marshal(t.Parameters)
			var schema shared.FunctionParameters
			json.Unmarshal(schemaJSON, &schema)

			tools = append(tools, openai.ChatCompletionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  schema,
				},
			})
		}
		params.Tools = tools
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	result := &ChatResponse{
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		result.Content = choice.Message.Content
		result.StopReason = string(choice.FinishReason)

		for _, tc := range choice.Message.ToolCalls {
			var args map[string]interface{}
			json.Unmarshal([]byte(tc.Function.Arguments), &args)
			result.ToolCalls = append(result.ToolCalls, ToolCallResponse{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			})
		}
	}

	return result, nil
}

var _ Provider = (*OpenRouterProvider)(nil)

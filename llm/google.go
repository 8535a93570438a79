package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	gerrors "github.com/vinayprograms/llmgate/errors"
)

// GeminiProvider implements Provider using the official Google Gemini SDK.
type GeminiProvider struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	maxTokens int
}

// GeminiConfig holds construction parameters for the Gemini backend.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature *float64
	// Extra carries backend-specific generation parameters. Recognized keys:
	// top_p (float64), top_k (int), candidate_count (int). Unrecognized keys
	// are ignored.
	Extra map[string]interface{}
}

// NewGeminiProvider creates a Gemini backend. No network activity occurs
// until the first call.
func NewGeminiProvider(cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.Model == "" {
		return nil, gerrors.InvalidConfig("model is required for gemini")
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	if cfg.MaxTokens > 0 {
		maxTokens := int32(cfg.MaxTokens)
		model.MaxOutputTokens = &maxTokens
	}
	if cfg.Temperature != nil {
		model.SetTemperature(float32(*cfg.Temperature))
	}
	applyGeminiExtra(model, cfg.Extra)

	return &GeminiProvider{
		client:    client,
		model:     model,
		modelName: cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// applyGeminiExtra maps recognized pass-through parameters onto the model.
func applyGeminiExtra(model *genai.GenerativeModel, extra map[string]interface{}) {
	for k, v := range extra {
		switch k {
		case "top_p":
			if f, ok := toFloat64(v); ok {
				model.SetTopP(float32(f))
			}
		case "top_k":
			if f, ok := toFloat64(v); ok {
				model.SetTopK(int32(f))
			}
		case "candidate_count":
			if f, ok := toFloat64(v); ok {
				model.SetCandidateCount(int32(f))
			}
		}
	}
}

// toFloat64 normalizes numeric values arriving from JSON or TOML decoding.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Name returns the provider tag used in diagnostics.
func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

// Close closes the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// Chat implements the Provider interface. Backend errors are returned
// unchanged.
func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	for _, m := range req.Messages {
		if m.Role == "system" {
			p.model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(m.Content)},
			}
			break
		}
	}

	if len(req.Tools) > 0 {
		funcDecls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			funcDecls = append(funcDecls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGeminiSchema(t.Parameters),
			})
		}
		p.model.Tools = []*genai.Tool{{FunctionDeclarations: funcDecls}}
	}

	// Replay history through a chat session; the trailing user message is
	// sent as the prompt.
	cs := p.model.StartChat()
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			continue
		case "user":
			cs.History = append(cs.History, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(m.Content)},
			})
		case "assistant":
			content := &genai.Content{Role: "model"}
			if m.Content != "" {
				content.Parts = append(content.Parts, genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				content.Parts = append(content.Parts, genai.FunctionCall{
					Name: tc.Name,
					Args: tc.Args,
				})
			}
			cs.History = append(cs.History, content)
		case "tool":
			cs.History = append(cs.History, &genai.Content{
				Role: "user",
				Parts: []genai.Part{
					genai.FunctionResponse{
						Name:     m.ToolCallID,
						Response: map[string]interface{}{"result": m.Content},
					},
				},
			})
		}
	}

	var prompt string
	if n := len(cs.History); n > 0 && cs.History[n-1].Role == "user" {
		last := cs.History[n-1]
		cs.History = cs.History[:n-1]
		if len(last.Parts) > 0 {
			if text, ok := last.Parts[0].(genai.Text); ok {
				prompt = string(text)
			}
		}
	}

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}

	result := &ChatResponse{Model: p.modelName}

	if len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		if candidate.FinishReason != 0 {
			result.StopReason = candidate.FinishReason.String()
		}
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				switch v := part.(type) {
				case genai.Text:
					result.Content += string(v)
				case genai.FunctionCall:
					result.ToolCalls = append(result.ToolCalls, ToolCallResponse{
						ID:   fmt.Sprintf("call_%s", v.Name),
						Name: v.Name,
						Args: v.Args,
					})
				}
			}
		}
	}

	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return result, nil
}

// toGeminiSchema converts a JSON Schema parameter map to the SDK's Schema.
func toGeminiSchema(params map[string]interface{}) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}

	if props, ok := params["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]interface{}); ok {
				schema.Properties[name] = toGeminiProperty(propMap)
			}
		}
	}

	if required, ok := params["required"].([]interface{}); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	return schema
}

// toGeminiProperty converts a single JSON Schema property.
func toGeminiProperty(prop map[string]interface{}) *genai.Schema {
	schema := &genai.Schema{}

	switch prop["type"] {
	case "string":
		schema.Type = genai.TypeString
	case "number":
		schema.Type = genai.TypeNumber
	case "integer":
		schema.Type = genai.TypeInteger
	case "boolean":
		schema.Type = genai.TypeBoolean
	case "array":
		schema.Type = genai.TypeArray
		if items, ok := prop["items"].(map[string]interface{}); ok {
			schema.Items = toGeminiProperty(items)
		}
	case "object":
		schema.Type = genai.TypeObject
		if props, ok := prop["properties"].(map[string]interface{}); ok {
			schema.Properties = make(map[string]*genai.Schema, len(props))
			for name, p := range props {
				if propMap, ok := p.(map[string]interface{}); ok {
					schema.Properties[name] = toGeminiProperty(propMap)
				}
			}
		}
	}

	if desc, ok := prop["description"].(string); ok {
		schema.Description = desc
	}
	if enum, ok := prop["enum"].([]interface{}); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}

	return schema
}

var _ Provider = (*GeminiProvider)(nil)

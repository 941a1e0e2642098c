package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string // any OpenAI-compatible endpoint
	Model   string
}

type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIProvider{client: openai.NewClient(opts...), model: model}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

var openAIEscalationTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        escalationToolName,
			Description: openai.String(escalationToolDescription),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					escalationSummaryArg: map[string]string{
						"type":        "string",
						"description": escalationSummaryDesc,
					},
				},
				"required": []string{escalationSummaryArg},
			},
		},
	},
}

type escalationArguments struct {
	Summary string `json:"summary"`
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    toOpenAIMessages(req.Turns),
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.AllowEscalation {
		params.Tools = []openai.ChatCompletionToolUnionParam{openAIEscalationTool}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	message := completion.Choices[0].Message
	for _, call := range message.ToolCalls {
		if call.Function.Name != escalationToolName {
			continue
		}
		var args escalationArguments
		// malformed arguments fall back to the default summary
		_ = json.Unmarshal([]byte(call.Function.Arguments), &args)
		return &Response{Escalation: &EscalationCall{Summary: args.Summary}}, nil
	}

	if message.Content == "" {
		return nil, fmt.Errorf("openai returned empty text")
	}
	return &Response{Text: message.Content}, nil
}

func toOpenAIMessages(turns []Turn) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		if t.Role == TurnModel {
			msgs = append(msgs, openai.AssistantMessage(t.Text))
			continue
		}
		msgs = append(msgs, openai.UserMessage(t.Text))
	}
	return msgs
}

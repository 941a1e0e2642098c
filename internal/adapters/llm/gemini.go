package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	// APIKey selects the Gemini API backend. Without it the client talks
	// to Vertex AI using Project and Location.
	APIKey   string
	Project  string
	Location string
	Model    string
}

type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

// NewGeminiProvider creates a Provider backed by Gemini.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APIKey == "" {
		if cfg.Project == "" || cfg.Location == "" {
			return nil, fmt.Errorf("gemini: api key or project and location must be set")
		}
		clientCfg = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	return &GeminiProvider{client: client, modelName: modelName}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	// without genai.Ptr to keep the config literal plain
	temp := req.Temperature

	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if req.AllowEscalation {
		cfg.Tools = []*genai.Tool{geminiEscalationTool()}
	}

	res, err := p.client.Models.GenerateContent(ctx, p.modelName, toGeminiContents(req.Turns), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	return parseGeminiResponse(res)
}

func toGeminiContents(turns []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		var role genai.Role = genai.RoleUser
		if t.Role == TurnModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return contents
}

func geminiEscalationTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        escalationToolName,
			Description: escalationToolDescription,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					escalationSummaryArg: {
						Type:        genai.TypeString,
						Description: escalationSummaryDesc,
					},
				},
				Required: []string{escalationSummaryArg},
			},
		}},
	}
}

func parseGeminiResponse(res *genai.GenerateContentResponse) (*Response, error) {
	if res == nil {
		return nil, fmt.Errorf("gemini returned no response")
	}

	for _, call := range res.FunctionCalls() {
		if call.Name != escalationToolName {
			continue
		}
		summary, _ := call.Args[escalationSummaryArg].(string)
		return &Response{Escalation: &EscalationCall{Summary: summary}}, nil
	}

	text := res.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty text")
	}
	return &Response{Text: text}, nil
}

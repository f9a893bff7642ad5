package advisorsvc

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/advisor"
)

const defaultModel = "gemini-2.5-pro"

// GeminiGenerator answers advisor chats with the Gemini API.
type GeminiGenerator struct {
	cli   *genai.Client
	model string
}

var _ advisor.Generator = (*GeminiGenerator)(nil)

func NewGeminiGenerator(ctx context.Context, conf *core.Config) (*GeminiGenerator, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.Advisor.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	model := conf.Advisor.Model
	if model == "" {
		model = defaultModel
	}
	return &GeminiGenerator{cli: cli, model: model}, nil
}

// Generate sends the prompt parts as a single user turn and returns the text of the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, parts []string) (string, error) {
	content := &genai.Content{Role: "user"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", errors.Wrap(err, "generating content")
	}
	return candidateText(resp), nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

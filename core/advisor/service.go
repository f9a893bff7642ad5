package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core"
)

const (
	SystemPrompt = "You are an academic advisor for Vietnamese university students. " +
		"Answer briefly and clearly, using bullet points, and focus on course registration and improving GPA. " +
		"Background: CPA (Cumulative Point Average) is the average grade over the whole study history up to now " +
		"and reflects overall academic ability; GPA (Grade Point Average) is the average grade of one course or term."
	ContextHeader = "ACADEMIC DATA (JSON; use it for reasoning, do not repeat it):"
	FallbackText  = "No usable answer was produced."

	RoleUser  = "user"
	RoleModel = "model"
)

var ErrUnavailable = errors.New("advisor is not configured")

type (
	Message struct {
		Role string `json:"role"` // "user" (default) or anything else for the advisor
		Text string `json:"text"`
	}

	ChatRequest struct {
		Messages   []Message              `json:"messages"`
		UseContext bool                   `json:"use_context"`
		Context    map[string]interface{} `json:"context"`
	}

	ChatResponse struct {
		Text string `json:"text"`
	}

	// Generator produces a completion for the ordered prompt parts.
	Generator interface {
		Generate(ctx context.Context, parts []string) (string, error)
	}

	ServiceInterface interface {
		Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	}

	Service struct {
		gen          Generator // nil when no API key is configured
		logger       core.Logger
		contextLimit int
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(gen Generator, logger core.Logger, conf *core.Config) *Service {
	return &Service{gen: gen, logger: logger, contextLimit: conf.Advisor.ContextLimit}
}

// BuildPrompt lays out the prompt parts: system prompt, optional truncated JSON context, then the history.
func (svc *Service) BuildPrompt(req ChatRequest) []string {
	parts := []string{SystemPrompt}

	if req.UseContext && len(req.Context) > 0 {
		if data, err := json.Marshal(req.Context); err == nil {
			parts = append(parts, ContextHeader, core.Truncate(string(data), svc.contextLimit))
		}
	}

	for _, m := range req.Messages {
		if m.Text == "" {
			continue
		}
		prefix := "AI: "
		if role := core.CleanString(m.Role, true /* lower */); role == "" || role == RoleUser {
			prefix = "USER: "
		}
		parts = append(parts, prefix+m.Text)
	}
	return parts
}

// Chat asks the generator for an answer. Generator errors are logged and surfaced without their details.
func (svc *Service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if svc.gen == nil {
		return ChatResponse{}, ErrUnavailable
	}

	parts := svc.BuildPrompt(req)
	svc.logger.Debug(fmt.Sprintf("advisor chat: use_context=%v, messages=%d", req.UseContext, len(req.Messages)))

	text, err := svc.gen.Generate(ctx, parts)
	if err != nil {
		svc.logger.Error("advisor chat failed", errors.Wrap(err, "generating answer"))
		return ChatResponse{}, &core.FailureError{Kind: core.KindUpstreamFailure, Op: "generating answer", Err: err}
	}
	if text = strings.TrimSpace(text); text == "" {
		text = FallbackText
	}
	return ChatResponse{Text: text}, nil
}

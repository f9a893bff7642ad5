package advisor

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hocba/core"
	testutil "github.com/trezcool/hocba/tests"
)

type genStub struct {
	parts []string
	text  string
	err   error
}

func (g *genStub) Generate(_ context.Context, parts []string) (string, error) {
	g.parts = parts
	return g.text, g.err
}

func newTestService(gen Generator, limit int) (*Service, *testutil.Logger) {
	conf := core.NewTestConfig()
	conf.Advisor.ContextLimit = limit
	logger := &testutil.Logger{}
	return NewService(gen, logger, conf), logger
}

func TestService_BuildPrompt(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		req   ChatRequest
		want  []string
	}{
		{
			name: "history only",
			req: ChatRequest{Messages: []Message{
				{Text: "hello"},
				{Role: "model", Text: "hi"},
				{Role: "User", Text: "which courses?"},
				{Role: "user", Text: ""},
			}},
			want: []string{SystemPrompt, "USER: hello", "AI: hi", "USER: which courses?"},
		},
		{
			name:  "context is ignored unless requested",
			limit: 100,
			req:   ChatRequest{Context: map[string]interface{}{"gpa": 2.5}, Messages: []Message{{Text: "q"}}},
			want:  []string{SystemPrompt, "USER: q"},
		},
		{
			name:  "context is rendered as JSON",
			limit: 100,
			req:   ChatRequest{UseContext: true, Context: map[string]interface{}{"gpa": 2.5}, Messages: []Message{{Text: "q"}}},
			want:  []string{SystemPrompt, ContextHeader, `{"gpa":2.5}`, "USER: q"},
		},
		{
			name:  "context is truncated",
			limit: 5,
			req:   ChatRequest{UseContext: true, Context: map[string]interface{}{"gpa": 2.5}},
			want:  []string{SystemPrompt, ContextHeader, `{"gpa`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(nil, tc.limit)
			assert.Equal(t, tc.want, svc.BuildPrompt(tc.req))
		})
	}
}

func TestService_Chat(t *testing.T) {
	ctx := context.Background()
	req := ChatRequest{Messages: []Message{{Text: "How do I raise my GPA?"}}}

	t.Run("answers", func(t *testing.T) {
		gen := &genStub{text: "  Retake failed courses.\n"}
		svc, _ := newTestService(gen, 100)

		resp, err := svc.Chat(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "Retake failed courses.", resp.Text)
		assert.Equal(t, []string{SystemPrompt, "USER: How do I raise my GPA?"}, gen.parts)
	})

	t.Run("empty answer uses the fallback", func(t *testing.T) {
		svc, _ := newTestService(&genStub{text: " "}, 100)
		resp, err := svc.Chat(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, FallbackText, resp.Text)
	})

	t.Run("generator errors are hidden from callers", func(t *testing.T) {
		svc, logger := newTestService(&genStub{err: errors.New("quota exceeded for key sk-123")}, 100)
		_, err := svc.Chat(ctx, req)

		ferr, ok := core.AsFailure(err)
		require.True(t, ok)
		assert.Equal(t, core.KindUpstreamFailure, ferr.Kind)
		assert.False(t, strings.Contains(ferr.Message(), "sk-123"))
		assert.Len(t, logger.Entries("error"), 1)
	})

	t.Run("unconfigured", func(t *testing.T) {
		svc, _ := newTestService(nil, 100)
		_, err := svc.Chat(ctx, req)
		assert.Equal(t, ErrUnavailable, err)
	})
}

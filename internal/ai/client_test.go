package ai

import (
	"context"
	"errors"
	"testing"

	"tb-storyboard/internal/config"
	"tb-storyboard/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubGenerator) generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)

	return s.reply, s.err
}

func newTestClient(gen textGenerator) *Client {
	return &Client{
		logger: zap.NewNop(),
		tracer: otel.Tracer(aiTracer),
		gen:    gen,
	}
}

func TestGeneratePromptsFiveScenes(t *testing.T) {
	gen := &stubGenerator{reply: "Here you go:\n" +
		"1. A lighthouse at dusk, waves crashing below\n" +
		"  2.  The keeper climbs the spiral stairs  \n" +
		"3. Lamp flickers to life, beam sweeping the fog\n" +
		"4. A small boat appears in the beam\n" +
		"5. The keeper waves from the gallery, wide shot\n"}
	c := newTestClient(gen)

	prompts, err := c.GeneratePrompts(context.Background(), "a story", 5, "cinematic")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"A lighthouse at dusk, waves crashing below",
		"The keeper climbs the spiral stairs",
		"Lamp flickers to life, beam sweeping the fog",
		"A small boat appears in the beam",
		"The keeper waves from the gallery, wide shot",
	}, prompts)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], `Story/Concept: "a story"`)
	assert.Contains(t, gen.prompts[0], "Style: cinematic")
	assert.Contains(t, gen.prompts[0], "Create exactly 5 scene descriptions")
}

func TestGeneratePromptsUnparseable(t *testing.T) {
	c := newTestClient(&stubGenerator{reply: "no numbered lines here"})

	_, err := c.GeneratePrompts(context.Background(), "a story", 3, "anime")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUpstreamService))
	assert.Equal(t, "unparseable_output", apperr.Reason(err))
}

func TestGeneratePromptsUpstreamError(t *testing.T) {
	c := newTestClient(&stubGenerator{err: errors.New("429 quota exceeded")})

	_, err := c.GeneratePrompts(context.Background(), "a story", 3, "anime")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUpstreamService))
	assert.Contains(t, err.Error(), "quota")
}

func TestMissingCredential(t *testing.T) {
	c, err := NewClient(Params{
		Config: &config.Config{AIConfig: &config.AIConfig{Model: "gemini-2.0-flash"}},
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	_, err = c.GeneratePrompts(context.Background(), "a story", 3, "anime")
	assert.True(t, apperr.Is(err, apperr.CodeMissingCredential))

	_, err = c.TestConnection(context.Background())
	assert.True(t, apperr.Is(err, apperr.CodeMissingCredential))
}

func TestTestConnection(t *testing.T) {
	c := newTestClient(&stubGenerator{reply: "  Hello!\n"})

	reply, err := c.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply)
}

func TestParseNumberedLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: nil},
		{name: "no numbering", text: "no numbered\ntext", want: nil},
		{name: "bullets ignored", text: "- one\n1. two\n* three", want: []string{"two"}},
		{name: "multi digit", text: "10. ten\n11.eleven", want: []string{"ten", "eleven"}},
		{name: "number without dot", text: "1) one\n2 two", want: nil},
		{name: "windows newlines", text: "1. a\r\n2. b\r\n", want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNumberedLines(tt.text))
		})
	}
}

package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_ReturnsArtifact(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{research: []reply{{text: "research body"}}}
	p := NewProducer(gen, 0.7)

	out := p.Produce(context.Background(), "What is CRDT?", "")
	artifact, ok := out.(Artifact)
	require.True(t, ok, "outcome = %T, want Artifact", out)
	assert.Equal(t, "research body", artifact.Text)

	require.Len(t, gen.requests, 1)
	assert.InDelta(t, 0.7, gen.requests[0].Temperature, 0)
	assert.Contains(t, gen.requests[0].Prompt, "Question: What is CRDT?")
	assert.NotContains(t, gen.requests[0].Prompt, "Feedback on the previous research")
}

func TestProducer_EmbedsFeedback(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{research: []reply{{text: "revised"}}}
	p := NewProducer(gen, 0.7)

	_ = p.Produce(context.Background(), "q", "add sources")
	require.Len(t, gen.requests, 1)
	assert.Contains(t, gen.requests[0].Prompt, "Feedback on the previous research:\nadd sources")
	assert.Contains(t, gen.requests[0].Prompt, "Revise the research according to the feedback above.")
}

func TestResearchPrompt_KeepsWhitespaceOnlyFeedback(t *testing.T) {
	t.Parallel()

	prompt := researchPrompt("q", "  ")
	assert.Contains(t, prompt, "Feedback on the previous research:\n  \nRevise the research")
	assert.NotContains(t, researchPrompt("q", ""), "Feedback on the previous research")
}

func TestProducer_MapsGeneratorErrorToFailure(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{research: []reply{{err: errors.New("rate limited")}}}
	p := NewProducer(gen, 0.7)

	out := p.Produce(context.Background(), "q", "")
	failure, ok := out.(Failure)
	require.True(t, ok, "outcome = %T, want Failure", out)
	assert.Contains(t, failure.Reason, "rate limited")
}

func TestProducer_DropsInvalidUTF8(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{research: []reply{{text: "ok\xffdone"}}}
	p := NewProducer(gen, 0.7)

	out := p.Produce(context.Background(), "q", "")
	artifact, ok := out.(Artifact)
	require.True(t, ok)
	assert.Equal(t, "okdone", artifact.Text)
}

package research

import (
	"context"
	"strings"

	"github.com/metalagman/researchloop/internal/llm"
	"github.com/rs/zerolog/log"
)

// Producer writes research artifacts for a question.
type Producer struct {
	gen         llm.Generator
	temperature float64
}

// NewProducer constructs a producer on top of a generator.
func NewProducer(gen llm.Generator, temperature float64) *Producer {
	return &Producer{gen: gen, temperature: temperature}
}

// Produce generates an artifact for the question, revising against feedback when it is non-empty.
// Generation errors are returned as a Failure outcome.
func (p *Producer) Produce(ctx context.Context, question, feedback string) Outcome {
	prompt := researchPrompt(question, feedback)
	text, err := p.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: p.temperature,
	})
	if err != nil {
		log.Debug().Err(err).Msg("research generation failed")
		return Failure{Reason: "research failed: " + err.Error()}
	}
	return Artifact{Text: sanitize(text)}
}

// sanitize drops invalid UTF-8 sequences from model output.
func sanitize(s string) string {
	return strings.ToValidUTF8(s, "")
}

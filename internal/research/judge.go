package research

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/metalagman/researchloop/internal/llm"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

const (
	defaultFeedback      = "evaluation completed"
	defaultFallbackScore = 5
	minScore             = 1
	maxScore             = 10
)

const evaluationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "score": { "type": "number" },
    "is_sufficient": { "type": "boolean" },
    "feedback": { "type": "string" },
    "strong_points": { "type": "array", "items": { "type": "string" } },
    "improvement_areas": { "type": "array", "items": { "type": "string" } }
  }
}`

// Objects pulled out of surrounding prose must at least carry a score.
const embeddedEvaluationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "score": { "type": "number" },
    "is_sufficient": { "type": "boolean" },
    "feedback": { "type": "string" },
    "strong_points": { "type": "array", "items": { "type": "string" } },
    "improvement_areas": { "type": "array", "items": { "type": "string" } }
  },
  "required": ["score"]
}`

var (
	evaluationSchemaLoader         = gojsonschema.NewStringLoader(evaluationSchema)
	embeddedEvaluationSchemaLoader = gojsonschema.NewStringLoader(embeddedEvaluationSchema)
)

// Ordered: the first pattern that matches anywhere in the text wins.
var scorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)score[:\s]*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*points?\b`),
	regexp.MustCompile(`(\d+)/10`),
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Judge scores research artifacts.
type Judge struct {
	gen         llm.Generator
	threshold   float64
	temperature float64
}

// NewJudge constructs a judge on top of a generator.
func NewJudge(gen llm.Generator, threshold, temperature float64) *Judge {
	return &Judge{gen: gen, threshold: threshold, temperature: temperature}
}

// Threshold returns the minimum score considered sufficient.
func (j *Judge) Threshold() float64 {
	return j.threshold
}

// Evaluate asks the model to grade the artifact. It never fails: call errors and
// unparseable responses are mapped to evaluations.
func (j *Judge) Evaluate(ctx context.Context, question, artifact string) Evaluation {
	text, err := j.gen.Generate(ctx, llm.Request{
		Prompt:      evaluationPrompt(question, artifact, j.threshold),
		Temperature: j.temperature,
	})
	if err != nil {
		log.Debug().Err(err).Msg("evaluation generation failed")
		return Evaluation{
			Score:            0,
			IsSufficient:     false,
			Feedback:         fmt.Sprintf("evaluation failed: %v", err),
			StrongPoints:     []string{},
			ImprovementAreas: []string{},
			Source:           SourceCallFailed,
		}
	}
	ev := j.Parse(sanitize(text))
	if ev.Score < minScore || ev.Score > maxScore {
		log.Warn().Float64("score", ev.Score).Str("source", string(ev.Source)).Msg("evaluation score outside 1-10")
	}
	return ev
}

// Parse converts a raw judge response into an evaluation.
func (j *Judge) Parse(text string) Evaluation {
	if payload, ok := parseEvaluation(text); ok {
		return payload.toEvaluation(j.threshold)
	}
	score := extractScore(text)
	return Evaluation{
		Score:            score,
		IsSufficient:     score >= j.threshold,
		Feedback:         text,
		StrongPoints:     []string{},
		ImprovementAreas: []string{},
		Source:           SourceTextFallback,
	}
}

type evaluationPayload struct {
	Score            *float64 `json:"score"`
	IsSufficient     *bool    `json:"is_sufficient"`
	Feedback         *string  `json:"feedback"`
	StrongPoints     []string `json:"strong_points"`
	ImprovementAreas []string `json:"improvement_areas"`
}

func (p evaluationPayload) toEvaluation(threshold float64) Evaluation {
	ev := Evaluation{
		Feedback:         defaultFeedback,
		StrongPoints:     []string{},
		ImprovementAreas: []string{},
		Source:           SourceStructured,
	}
	if p.Score != nil {
		ev.Score = *p.Score
	}
	if p.IsSufficient != nil {
		ev.IsSufficient = *p.IsSufficient
	} else {
		ev.IsSufficient = ev.Score >= threshold
	}
	if p.Feedback != nil {
		ev.Feedback = *p.Feedback
	}
	if p.StrongPoints != nil {
		ev.StrongPoints = p.StrongPoints
	}
	if p.ImprovementAreas != nil {
		ev.ImprovementAreas = p.ImprovementAreas
	}
	return ev
}

func parseEvaluation(text string) (evaluationPayload, bool) {
	for i, candidate := range jsonCandidates(text) {
		schema := evaluationSchemaLoader
		if i > 0 {
			schema = embeddedEvaluationSchemaLoader
		}
		if !validEvaluation(schema, candidate) {
			continue
		}
		var payload evaluationPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			continue
		}
		return payload, true
	}
	return evaluationPayload{}, false
}

// jsonCandidates lists the whole response first, then a fenced block, then the
// outermost braces. Only the first entry may omit the score.
func jsonCandidates(text string) []string {
	trimmed := strings.TrimSpace(text)
	out := []string{trimmed}
	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil {
		out = append(out, m[1])
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		out = append(out, trimmed[start:end+1])
	}
	return out
}

func validEvaluation(schema gojsonschema.JSONLoader, candidate string) bool {
	if !json.Valid([]byte(candidate)) {
		return false
	}
	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(candidate))
	if err != nil {
		return false
	}
	return result.Valid()
}

func extractScore(text string) float64 {
	for _, pattern := range scorePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		score, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return float64(score)
	}
	return defaultFallbackScore
}

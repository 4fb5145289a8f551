package research

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/metalagman/researchloop/internal/llm"
)

// scriptedGenerator answers research prompts and evaluation prompts from separate queues.
type scriptedGenerator struct {
	mu          sync.Mutex
	research    []reply
	evaluations []reply
	requests    []llm.Request
}

type reply struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)

	queue := &g.research
	if strings.HasPrefix(req.Prompt, "You are an expert evaluator") {
		queue = &g.evaluations
	}
	if len(*queue) == 0 {
		return "", errors.New("script exhausted")
	}
	next := (*queue)[0]
	*queue = (*queue)[1:]
	return next.text, next.err
}

func (g *scriptedGenerator) Describe() llm.Info {
	return llm.Info{Provider: "scripted", Model: "test"}
}

type fakeResearcher struct {
	outcomes  []Outcome
	feedbacks []string
	calls     int
}

func (f *fakeResearcher) Produce(_ context.Context, _ string, feedback string) Outcome {
	f.feedbacks = append(f.feedbacks, feedback)
	f.calls++
	if len(f.outcomes) == 0 {
		return Artifact{Text: "artifact"}
	}
	next := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return next
}

type fakeEvaluator struct {
	evaluations []Evaluation
	calls       int
	onCall      func(call int)
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _, _ string) Evaluation {
	f.calls++
	if f.onCall != nil {
		f.onCall(f.calls)
	}
	if len(f.evaluations) == 0 {
		return Evaluation{Score: 1, Feedback: "more"}
	}
	next := f.evaluations[0]
	f.evaluations = f.evaluations[1:]
	return next
}

type recordingObserver struct {
	started   []int
	completed []Round
}

func (o *recordingObserver) RoundStarted(i int)     { o.started = append(o.started, i) }
func (o *recordingObserver) RoundCompleted(r Round) { o.completed = append(o.completed, r) }

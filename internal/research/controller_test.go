package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerRun_ExhaustsWithoutSufficiency(t *testing.T) {
	t.Parallel()

	for _, maxIterations := range []int{1, 2, 5} {
		researcher := &fakeResearcher{}
		evaluator := &fakeEvaluator{}
		c := NewController(researcher, evaluator, maxIterations)

		res, err := c.Run(context.Background(), "q")
		require.NoError(t, err)
		assert.True(t, res.Success, "exhaustion is not a failure")
		assert.False(t, res.Sufficient)
		assert.Len(t, res.History, maxIterations)
		assert.Equal(t, maxIterations, res.TotalIterations)
		for i, round := range res.History {
			assert.Equal(t, i+1, round.Iteration)
		}
	}
}

func TestControllerRun_StopsAtFirstSufficientRound(t *testing.T) {
	t.Parallel()

	researcher := &fakeResearcher{}
	evaluator := &fakeEvaluator{evaluations: []Evaluation{
		{Score: 3, Feedback: "thin"},
		{Score: 9, IsSufficient: true, Feedback: "good"},
		{Score: 10, IsSufficient: true},
	}}
	c := NewController(researcher, evaluator, 5)

	res, err := c.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Sufficient)
	assert.Len(t, res.History, 2)
	assert.Equal(t, 2, researcher.calls)
	assert.Equal(t, 2, evaluator.calls)
}

func TestControllerRun_ProducerFailure(t *testing.T) {
	t.Parallel()

	researcher := &fakeResearcher{outcomes: []Outcome{
		Artifact{Text: "first"},
		Artifact{Text: "second"},
		Failure{Reason: "research failed: timeout"},
	}}
	evaluator := &fakeEvaluator{}
	c := NewController(researcher, evaluator, 5)

	res, err := c.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "research failed: timeout", res.Error)
	assert.Equal(t, 3, res.FailedIteration)
	assert.Len(t, res.History, 2)
	assert.Equal(t, 2, evaluator.calls, "failed round is never judged")
}

func TestControllerRun_ComposesFeedback(t *testing.T) {
	t.Parallel()

	researcher := &fakeResearcher{}
	evaluator := &fakeEvaluator{evaluations: []Evaluation{
		{Score: 4, Feedback: "needs depth", ImprovementAreas: []string{"add data", "cite sources"}},
		{Score: 5, Feedback: "better"},
		{Score: 6, Feedback: "almost"},
	}}
	c := NewController(researcher, evaluator, 3)

	_, err := c.Run(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, researcher.feedbacks, 3)
	assert.Empty(t, researcher.feedbacks[0])
	assert.Equal(t, "needs depth\n\nAreas that need improvement:\n- add data\n- cite sources", researcher.feedbacks[1])
	assert.Equal(t, "better", researcher.feedbacks[2])
}

func TestControllerRun_NotifiesObserver(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	c := NewController(&fakeResearcher{}, &fakeEvaluator{}, 2, WithObserver(obs))

	_, err := c.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, obs.started)
	require.Len(t, obs.completed, 2)
	assert.Equal(t, 2, obs.completed[1].Iteration)
}

func TestControllerRun_InterruptKeepsCompletedRounds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evaluator := &fakeEvaluator{onCall: func(call int) {
		if call == 2 {
			cancel()
		}
	}}
	c := NewController(&fakeResearcher{}, evaluator, 5)

	res, err := c.Run(ctx, "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInterrupted))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, res.Interrupted)
	assert.False(t, res.Success)
	assert.Empty(t, res.Error)
	require.Len(t, res.History, 1)
	assert.Equal(t, 1, res.History[0].Iteration)
}

func TestControllerRun_DefaultsMaxIterations(t *testing.T) {
	t.Parallel()

	c := NewController(&fakeResearcher{}, &fakeEvaluator{}, 0)
	assert.Equal(t, DefaultMaxIterations, c.MaxIterations())
}

func TestControllerRun_ScenarioSufficientOnSecondRound(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{
		research: []reply{{text: "draft one"}, {text: "draft two"}},
		evaluations: []reply{
			{text: `{"score": 4, "feedback": "too shallow", "improvement_areas": ["examples"]}`},
			{text: `{"score": 8, "feedback": "good"}`},
		},
	}
	c := NewController(NewProducer(gen, 0.7), NewJudge(gen, 7, 0.3), 3)

	res, err := c.Run(context.Background(), "How does TCP congestion control work?")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Sufficient)
	assert.Equal(t, 2, res.TotalIterations)
	assert.Equal(t, "draft two", res.FinalArtifact)
	assert.Equal(t, []float64{4, 8}, res.Scores())

	// Second research prompt carries round one's feedback.
	require.Len(t, gen.requests, 4)
	assert.Contains(t, gen.requests[2].Prompt, "too shallow")
	assert.Contains(t, gen.requests[2].Prompt, "- examples")
}

func TestControllerRun_ScenarioExhaustedAfterTwoRounds(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{
		research: []reply{{text: "draft one"}, {text: "draft two"}},
		evaluations: []reply{
			{text: `{"score": 5, "feedback": "meh"}`},
			{text: `{"score": 6, "feedback": "closer"}`},
		},
	}
	c := NewController(NewProducer(gen, 0.7), NewJudge(gen, 7, 0.3), 2)

	res, err := c.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Sufficient)
	assert.Len(t, res.History, 2)
	final, ok := res.FinalEvaluation()
	require.True(t, ok)
	assert.InDelta(t, 6.0, final.Score, 0)
}

func TestControllerRun_GeneratorFailureOnFirstRound(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{research: []reply{{err: errors.New("unauthorized")}}}
	c := NewController(NewProducer(gen, 0.7), NewJudge(gen, 7, 0.3), 3)

	res, err := c.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.FailedIteration)
	assert.Empty(t, res.History)
	assert.Contains(t, res.Error, "unauthorized")
}

package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultMaxIterations is used when the controller is built with a non-positive limit.
const DefaultMaxIterations = 5

// ErrInterrupted is returned by Run when the context is cancelled mid-run.
var ErrInterrupted = errors.New("research run interrupted")

// Researcher produces artifacts.
type Researcher interface {
	Produce(ctx context.Context, question, feedback string) Outcome
}

// Evaluator grades artifacts.
type Evaluator interface {
	Evaluate(ctx context.Context, question, artifact string) Evaluation
}

// Observer receives progress notifications from the controller.
type Observer interface {
	RoundStarted(iteration int)
	RoundCompleted(round Round)
}

// Controller drives producer/judge rounds until the judge is satisfied or the
// iteration limit is reached.
type Controller struct {
	researcher    Researcher
	evaluator     Evaluator
	maxIterations int
	observer      Observer
	now           func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// NewController constructs a loop controller.
func NewController(researcher Researcher, evaluator Evaluator, maxIterations int, opts ...Option) *Controller {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	c := &Controller{
		researcher:    researcher,
		evaluator:     evaluator,
		maxIterations: maxIterations,
		observer:      nopObserver{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxIterations returns the configured iteration limit.
func (c *Controller) MaxIterations() int {
	return c.maxIterations
}

// Run executes the feedback loop for a single question. The returned error is
// non-nil only when ctx is cancelled; it wraps ErrInterrupted and the result
// still carries every round completed before the interruption.
func (c *Controller) Run(ctx context.Context, question string) (Result, error) {
	started := c.now()
	res := Result{
		Question:  question,
		History:   []Round{},
		StartedAt: started,
	}
	finish := func() Result {
		res.TotalIterations = len(res.History)
		res.Duration = c.now().Sub(started)
		return res
	}
	interrupted := func(iteration int, cause error) (Result, error) {
		res.Interrupted = true
		log.Info().Int("iteration", iteration).Msg("research run interrupted")
		return finish(), fmt.Errorf("%w at iteration %d: %w", ErrInterrupted, iteration, cause)
	}

	log.Info().Str("question", question).Int("max_iterations", c.maxIterations).Msg("research run started")

	var feedback string
	for i := 1; i <= c.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return interrupted(i, err)
		}
		c.observer.RoundStarted(i)

		outcome := c.researcher.Produce(ctx, question, feedback)
		if err := ctx.Err(); err != nil {
			return interrupted(i, err)
		}

		var artifact string
		switch o := outcome.(type) {
		case Artifact:
			artifact = o.Text
		case Failure:
			res.Success = false
			res.Error = o.Reason
			res.FailedIteration = i
			log.Error().Int("iteration", i).Str("reason", o.Reason).Msg("research failed")
			return finish(), nil
		default:
			res.Error = fmt.Sprintf("unexpected producer outcome %T", outcome)
			res.FailedIteration = i
			return finish(), nil
		}

		ev := c.evaluator.Evaluate(ctx, question, artifact)
		if err := ctx.Err(); err != nil {
			return interrupted(i, err)
		}

		round := Round{
			Iteration:      i,
			Artifact:       artifact,
			ArtifactLength: len([]rune(artifact)),
			Evaluation:     ev,
		}
		res.History = append(res.History, round)
		res.FinalArtifact = artifact
		c.observer.RoundCompleted(round)

		log.Debug().
			Int("iteration", i).
			Float64("score", ev.Score).
			Bool("sufficient", ev.IsSufficient).
			Str("source", string(ev.Source)).
			Msg("round evaluated")

		if ev.IsSufficient {
			res.Success = true
			res.Sufficient = true
			log.Info().Int("iteration", i).Float64("score", ev.Score).Msg("quality threshold reached")
			return finish(), nil
		}
		feedback = composeFeedback(ev)
	}

	res.Success = true
	log.Info().Int("max_iterations", c.maxIterations).Msg("iteration limit reached")
	return finish(), nil
}

// composeFeedback builds the revision request for the next round.
func composeFeedback(ev Evaluation) string {
	if len(ev.ImprovementAreas) == 0 {
		return ev.Feedback
	}
	var b strings.Builder
	b.WriteString(ev.Feedback)
	b.WriteString("\n\nAreas that need improvement:\n- ")
	b.WriteString(strings.Join(ev.ImprovementAreas, "\n- "))
	return b.String()
}

type nopObserver struct{}

func (nopObserver) RoundStarted(int)     {}
func (nopObserver) RoundCompleted(Round) {}

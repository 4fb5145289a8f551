package main

import (
	"fmt"

	"github.com/metalagman/researchloop/internal/config"
	"github.com/metalagman/researchloop/internal/llm"
	"github.com/metalagman/researchloop/internal/research"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

// loop is the assembled research pipeline for one command invocation.
type loop struct {
	Config     config.Config
	Generator  llm.Generator
	Controller *research.Controller
}

type loopParams struct {
	fx.In

	Config    config.Config
	Generator llm.Generator
	Observer  research.Observer
}

// buildLoop wires the generator, producer, judge and controller for cfg.
// A missing credential surfaces here, before any round runs.
func buildLoop(cfg config.Config, observer research.Observer) (*loop, error) {
	if observer == nil {
		observer = logObserver{}
	}
	var l *loop
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(
			func() research.Observer { return observer },
			newGenerator,
			newLoop,
		),
		fx.Populate(&l),
	)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build research loop: %w", err)
	}
	return l, nil
}

func newGenerator(cfg config.Config) (llm.Generator, error) {
	gen, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, err
	}
	info := gen.Describe()
	log.Debug().Str("provider", info.Provider).Str("model", info.Model).Msg("generator ready")
	return gen, nil
}

func newLoop(p loopParams) *loop {
	producer := research.NewProducer(p.Generator, p.Config.Loop.ProducerTemperature)
	judge := research.NewJudge(p.Generator, p.Config.Loop.Threshold, p.Config.Loop.JudgeTemperature)
	return &loop{
		Config:     p.Config,
		Generator:  p.Generator,
		Controller: research.NewController(producer, judge, p.Config.Loop.MaxIterations, research.WithObserver(p.Observer)),
	}
}

// logObserver reports progress through the logger; used when stdout carries
// machine-readable output.
type logObserver struct{}

func (logObserver) RoundStarted(iteration int) {
	log.Info().Int("iteration", iteration).Msg("research round started")
}

func (logObserver) RoundCompleted(round research.Round) {
	log.Info().
		Int("iteration", round.Iteration).
		Float64("score", round.Evaluation.Score).
		Bool("sufficient", round.Evaluation.IsSufficient).
		Int("artifact_length", round.ArtifactLength).
		Msg("research round completed")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/metalagman/researchloop/internal/config"
	"github.com/metalagman/researchloop/internal/db"
	"github.com/metalagman/researchloop/internal/report"
	"github.com/metalagman/researchloop/internal/research"
	"github.com/rs/zerolog/log"
)

// session runs questions through one assembled loop and reports the results.
type session struct {
	loop    *loop
	out     io.Writer
	format  string
	printer *report.Printer
}

func newSession(cfg config.Config, out io.Writer, format string) (*session, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	s := &session{out: out, format: format}
	var observer research.Observer
	switch format {
	case report.FormatText:
		s.printer = report.NewPrinter(out, report.Options{Styled: styledOutput(out)})
		observer = s.printer
	case report.FormatJSON, report.FormatYAML:
		observer = logObserver{}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	l, err := buildLoop(cfg, observer)
	if err != nil {
		return nil, err
	}
	s.loop = l
	return s, nil
}

// ask runs one question. The returned error wraps research.ErrInterrupted when
// ctx was cancelled; the partial result has been reported by then.
func (s *session) ask(ctx context.Context, question string) (research.Result, error) {
	if s.printer != nil {
		s.printer.RunStarted(question)
	}
	res, runErr := s.loop.Controller.Run(ctx, question)
	if runErr != nil && !errors.Is(runErr, research.ErrInterrupted) {
		return res, runErr
	}
	s.loop.record(ctx, res)
	if err := s.report(res); err != nil {
		return res, err
	}
	return res, runErr
}

func (s *session) report(res research.Result) error {
	if s.printer != nil {
		return s.printer.Final(res)
	}
	return report.Encode(s.out, res, s.format)
}

// record saves res to the journal when it is enabled. Failures are logged.
func (l *loop) record(ctx context.Context, res research.Result) {
	if !l.Config.Store.Enabled {
		return
	}
	if err := l.save(context.WithoutCancel(ctx), res); err != nil {
		log.Error().Err(err).Msg("failed to record run")
	}
}

func (l *loop) save(ctx context.Context, res research.Result) error {
	lock, err := db.LockJournal(l.Config.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	store, closeFn, err := openStore(l.Config)
	if err != nil {
		return err
	}
	defer closeFn()

	runID, err := db.NewRunID()
	if err != nil {
		return err
	}
	info := l.Generator.Describe()
	if err := store.SaveRun(ctx, runID, res, db.RunMeta{Provider: info.Provider, Model: info.Model}); err != nil {
		return err
	}
	log.Info().Str("run_id", runID).Str("status", db.StatusOf(res)).Msg("run recorded")
	return nil
}

// recordingRunner runs questions for the MCP tool and journals the results.
type recordingRunner struct {
	loop *loop
}

func (r recordingRunner) Run(ctx context.Context, question string) (research.Result, error) {
	res, err := r.loop.Controller.Run(ctx, question)
	if err != nil && !errors.Is(err, research.ErrInterrupted) {
		return res, err
	}
	r.loop.record(ctx, res)
	return res, err
}

func openStore(cfg config.Config) (*db.Store, func(), error) {
	store, err := db.OpenStore(cfg.Store.Path)
	if err != nil {
		return nil, func() {}, err
	}
	return store, func() { _ = store.Close() }, nil
}

func styledOutput(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

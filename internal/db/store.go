package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/metalagman/researchloop/internal/research"
)

// Run statuses stored in the journal.
const (
	StatusSucceeded   = "succeeded"
	StatusExhausted   = "exhausted"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// ErrRunNotFound is returned when a run id is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// Store provides persistence for research runs and their rounds.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on top of an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunRecord is a journal row summarizing one run.
type RunRecord struct {
	RunID           string
	CreatedAt       time.Time
	Question        string
	Status          string
	Success         bool
	TotalIterations int
	FinalScore      *float64
	FinalArtifact   string
	Error           string
	FailedIteration int
	Duration        time.Duration
	Provider        string
	Model           string
}

// RunMeta carries generator details recorded alongside a run.
type RunMeta struct {
	Provider string
	Model    string
}

// StatusOf classifies a result for the journal.
func StatusOf(res research.Result) string {
	switch {
	case res.Interrupted:
		return StatusInterrupted
	case !res.Success:
		return StatusFailed
	case res.Sufficient:
		return StatusSucceeded
	default:
		return StatusExhausted
	}
}

// NewRunID returns a sortable, mostly unique run identifier.
func NewRunID() (string, error) {
	suffix, err := randomHex(3)
	if err != nil {
		return "", err
	}
	ts := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("%s-%s", ts, suffix), nil
}

func randomHex(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// SaveRun inserts the run record and every round in one transaction.
func (s *Store) SaveRun(ctx context.Context, runID string, res research.Result, meta RunMeta) error {
	createdAt := res.StartedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var finalScore any
	if ev, ok := res.FinalEvaluation(); ok {
		finalScore = ev.Score
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, created_at, question, status, success, total_iterations, final_score, final_artifact, error, failed_iteration, duration_ms, provider, model)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, createdAt.UTC().Format(time.RFC3339), res.Question, StatusOf(res), boolInt(res.Success), res.TotalIterations,
		finalScore, nullableString(res.FinalArtifact), nullableString(res.Error), res.FailedIteration,
		res.Duration.Milliseconds(), nullableString(meta.Provider), nullableString(meta.Model)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}
	for _, round := range res.History {
		if err := insertRound(ctx, tx, runID, round); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save run: %w", err)
	}
	return nil
}

func insertRound(ctx context.Context, tx *sql.Tx, runID string, round research.Round) error {
	strong, err := json.Marshal(nonNil(round.Evaluation.StrongPoints))
	if err != nil {
		return fmt.Errorf("marshal strong points: %w", err)
	}
	improve, err := json.Marshal(nonNil(round.Evaluation.ImprovementAreas))
	if err != nil {
		return fmt.Errorf("marshal improvement areas: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO rounds(run_id, iteration, score, is_sufficient, source, feedback, strong_points_json, improvement_areas_json, artifact)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, round.Iteration, round.Evaluation.Score, boolInt(round.Evaluation.IsSufficient), string(round.Evaluation.Source),
		round.Evaluation.Feedback, string(strong), string(improve), round.Artifact); err != nil {
		return fmt.Errorf("insert round %d: %w", round.Iteration, err)
	}
	return nil
}

// ListRuns returns the newest runs first. A non-positive limit returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT run_id, created_at, question, status, success, total_iterations, final_score, final_artifact, error, failed_iteration, duration_ms, provider, model
		FROM runs ORDER BY created_at DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// GetRun loads a run and rebuilds its result.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, research.Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, created_at, question, status, success, total_iterations, final_score, final_artifact, error, failed_iteration, duration_ms, provider, model
		FROM runs WHERE run_id=?`, runID)
	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, research.Result{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return RunRecord{}, research.Result{}, err
	}

	history, err := s.rounds(ctx, runID)
	if err != nil {
		return RunRecord{}, research.Result{}, err
	}

	res := research.Result{
		Success:         rec.Success,
		Question:        rec.Question,
		FinalArtifact:   rec.FinalArtifact,
		History:         history,
		TotalIterations: rec.TotalIterations,
		Sufficient:      rec.Status == StatusSucceeded,
		Error:           rec.Error,
		FailedIteration: rec.FailedIteration,
		Interrupted:     rec.Status == StatusInterrupted,
		StartedAt:       rec.CreatedAt,
		Duration:        rec.Duration,
	}
	return rec, res, nil
}

func (s *Store) rounds(ctx context.Context, runID string) ([]research.Round, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT iteration, score, is_sufficient, source, feedback, strong_points_json, improvement_areas_json, artifact
		FROM rounds WHERE run_id=? ORDER BY iteration`, runID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []research.Round{}
	for rows.Next() {
		var (
			round                    research.Round
			sufficient               int
			source, strong, improves string
		)
		if err := rows.Scan(&round.Iteration, &round.Evaluation.Score, &sufficient, &source, &round.Evaluation.Feedback, &strong, &improves, &round.Artifact); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		round.Evaluation.IsSufficient = sufficient != 0
		round.Evaluation.Source = research.EvaluationSource(source)
		if err := json.Unmarshal([]byte(strong), &round.Evaluation.StrongPoints); err != nil {
			return nil, fmt.Errorf("decode strong points: %w", err)
		}
		if err := json.Unmarshal([]byte(improves), &round.Evaluation.ImprovementAreas); err != nil {
			return nil, fmt.Errorf("decode improvement areas: %w", err)
		}
		round.ArtifactLength = len([]rune(round.Artifact))
		out = append(out, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec             RunRecord
		createdAt       string
		success         int
		finalScore      sql.NullFloat64
		finalArtifact   sql.NullString
		errText         sql.NullString
		durationMS      int64
		provider, model sql.NullString
	)
	if err := row.Scan(&rec.RunID, &createdAt, &rec.Question, &rec.Status, &success, &rec.TotalIterations,
		&finalScore, &finalArtifact, &errText, &rec.FailedIteration, &durationMS, &provider, &model); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339, createdAt)
	if err == nil {
		rec.CreatedAt = parsed
	}
	rec.Success = success != 0
	if finalScore.Valid {
		score := finalScore.Float64
		rec.FinalScore = &score
	}
	rec.FinalArtifact = finalArtifact.String
	rec.Error = errText.String
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.Provider = provider.String
	rec.Model = model.String
	return rec, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

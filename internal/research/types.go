// Package research implements the research/evaluation feedback loop.
package research

import "time"

// EvaluationSource records which judge path produced an evaluation.
type EvaluationSource string

const (
	// SourceStructured means the judge response parsed as a JSON evaluation.
	SourceStructured EvaluationSource = "structured"
	// SourceTextFallback means the score was scanned from free text.
	SourceTextFallback EvaluationSource = "text_fallback"
	// SourceCallFailed means the generation call itself failed.
	SourceCallFailed EvaluationSource = "call_failed"
)

// Evaluation is the judge's verdict on one artifact.
type Evaluation struct {
	Score            float64          `json:"score"             yaml:"score"`
	IsSufficient     bool             `json:"is_sufficient"     yaml:"is_sufficient"`
	Feedback         string           `json:"feedback"          yaml:"feedback"`
	StrongPoints     []string         `json:"strong_points"     yaml:"strong_points"`
	ImprovementAreas []string         `json:"improvement_areas" yaml:"improvement_areas"`
	Source           EvaluationSource `json:"source"            yaml:"source"`
}

// Round is one producer+judge pass. Iterations are numbered from 1.
type Round struct {
	Iteration      int        `json:"iteration"       yaml:"iteration"`
	Artifact       string     `json:"artifact"        yaml:"artifact"`
	ArtifactLength int        `json:"artifact_length" yaml:"artifact_length"`
	Evaluation     Evaluation `json:"evaluation"      yaml:"evaluation"`
}

// Outcome is what the producer returns: either an Artifact or a Failure.
type Outcome interface {
	outcome()
}

// Artifact is a successfully produced research text.
type Artifact struct {
	Text string
}

// Failure reports that the producer could not generate an artifact.
type Failure struct {
	Reason string
}

func (Artifact) outcome() {}
func (Failure) outcome()  {}

// Result is the outcome of one loop invocation.
type Result struct {
	Success         bool          `json:"success"                    yaml:"success"`
	Question        string        `json:"question"                   yaml:"question"`
	FinalArtifact   string        `json:"final_artifact,omitempty"   yaml:"final_artifact,omitempty"`
	History         []Round       `json:"history"                    yaml:"history"`
	TotalIterations int           `json:"total_iterations"           yaml:"total_iterations"`
	Sufficient      bool          `json:"sufficient"                 yaml:"sufficient"`
	Error           string        `json:"error,omitempty"            yaml:"error,omitempty"`
	FailedIteration int           `json:"failed_iteration,omitempty" yaml:"failed_iteration,omitempty"`
	Interrupted     bool          `json:"interrupted,omitempty"      yaml:"interrupted,omitempty"`
	StartedAt       time.Time     `json:"started_at"                 yaml:"started_at"`
	Duration        time.Duration `json:"duration"                   yaml:"duration"`
}

// Scores returns the score of every completed round in order.
func (r Result) Scores() []float64 {
	out := make([]float64, 0, len(r.History))
	for _, round := range r.History {
		out = append(out, round.Evaluation.Score)
	}
	return out
}

// FinalEvaluation returns the evaluation of the last completed round.
func (r Result) FinalEvaluation() (Evaluation, bool) {
	if len(r.History) == 0 {
		return Evaluation{}, false
	}
	return r.History[len(r.History)-1].Evaluation, true
}

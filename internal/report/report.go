// Package report renders research runs for the terminal and for machine consumers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/metalagman/researchloop/internal/research"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Tier buckets a score for display.
type Tier string

// Score tiers.
const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
)

// TierOf returns the display tier for a score.
func TierOf(score float64) Tier {
	switch {
	case score >= 9:
		return TierExcellent
	case score >= 7:
		return TierGood
	case score >= 5:
		return TierFair
	default:
		return TierPoor
	}
}

var (
	ruleStyle  = lipgloss.NewStyle().Faint(true)
	titleStyle = lipgloss.NewStyle().Bold(true)
	tierStyles = map[Tier]lipgloss.Style{
		TierExcellent: lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		TierGood:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		TierFair:      lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		TierPoor:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// Options controls text rendering.
type Options struct {
	// Styled enables ANSI styling and markdown rendering of the artifact.
	Styled bool
	// Width is the word wrap width for rendered markdown.
	Width int
}

// Printer writes progress and final reports. It implements research.Observer.
type Printer struct {
	w    io.Writer
	opts Options
}

// NewPrinter constructs a printer.
func NewPrinter(w io.Writer, opts Options) *Printer {
	if opts.Width <= 0 {
		opts.Width = 100
	}
	return &Printer{w: w, opts: opts}
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.opts.Styled {
		return text
	}
	return s.Render(text)
}

func (p *Printer) rule() string {
	return p.style(ruleStyle, strings.Repeat("=", 60))
}

// RunStarted prints the run header.
func (p *Printer) RunStarted(question string) {
	fmt.Fprintln(p.w, p.rule())
	fmt.Fprintf(p.w, "Research started: %s\n", question)
	fmt.Fprintln(p.w, p.rule())
}

// RoundStarted prints the iteration header.
func (p *Printer) RoundStarted(iteration int) {
	fmt.Fprintf(p.w, "\nIteration #%d\n", iteration)
	fmt.Fprintln(p.w, strings.Repeat("-", 40))
}

// RoundCompleted prints the evaluation of a finished round.
func (p *Printer) RoundCompleted(round research.Round) {
	ev := round.Evaluation
	tier := TierOf(ev.Score)
	fmt.Fprintf(p.w, "   %s\n", p.style(tierStyles[tier], fmt.Sprintf("score: %s/10 (%s)", FormatScore(ev.Score), tier)))
	if len(ev.StrongPoints) > 0 {
		fmt.Fprintln(p.w, "   strengths:")
		for _, point := range ev.StrongPoints {
			fmt.Fprintf(p.w, "      • %s\n", point)
		}
	}
	if len(ev.ImprovementAreas) > 0 {
		fmt.Fprintln(p.w, "   improvements:")
		for _, area := range ev.ImprovementAreas {
			fmt.Fprintf(p.w, "      • %s\n", area)
		}
	}
	if ev.IsSufficient {
		fmt.Fprintf(p.w, "\nQuality target reached (score: %s/10)\n", FormatScore(ev.Score))
	} else {
		fmt.Fprintln(p.w, "Quality needs improvement, continuing with the next iteration...")
	}
}

// Final prints the end-of-run report.
func (p *Printer) Final(res research.Result) error {
	if res.Interrupted {
		fmt.Fprintf(p.w, "\nResearch interrupted after %d completed rounds.\n", len(res.History))
		return nil
	}
	if !res.Success {
		fmt.Fprintf(p.w, "\nResearch failed at iteration %d: %s\n", res.FailedIteration, res.Error)
		return nil
	}
	if !res.Sufficient {
		fmt.Fprintf(p.w, "\nReached the maximum number of iterations (%d).\n", res.TotalIterations)
	}

	fmt.Fprintf(p.w, "\n%s\n", p.rule())
	fmt.Fprintln(p.w, p.style(titleStyle, "Final research result"))
	fmt.Fprintln(p.w, p.rule())
	fmt.Fprintf(p.w, "Question: %s\n", res.Question)
	fmt.Fprintf(p.w, "Total iterations: %d\n", res.TotalIterations)
	fmt.Fprintf(p.w, "Score trend: %s\n", ScoreTrend(res.Scores()))
	if final, ok := res.FinalEvaluation(); ok {
		tier := TierOf(final.Score)
		fmt.Fprintf(p.w, "Final score: %s\n", p.style(tierStyles[tier], fmt.Sprintf("%s/10 (%s)", FormatScore(final.Score), tier)))
	}

	fmt.Fprintln(p.w, "\nFinal research:")
	fmt.Fprintln(p.w, strings.Repeat("-", 60))
	body, err := p.renderArtifact(res.FinalArtifact)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.w, body)
	fmt.Fprintln(p.w, strings.Repeat("-", 60))
	fmt.Fprintf(p.w, "Elapsed: %s\n", Elapsed(res.Duration))
	return nil
}

func (p *Printer) renderArtifact(md string) (string, error) {
	if !p.opts.Styled {
		return md, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(p.opts.Width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// FormatScore prints integral scores without a fraction.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// ScoreTrend joins scores as "4 → 6 → 8".
func ScoreTrend(scores []float64) string {
	parts := make([]string, 0, len(scores))
	for _, s := range scores {
		parts = append(parts, FormatScore(s))
	}
	return strings.Join(parts, " → ")
}

// Encode writes the result in a machine-readable format.
func Encode(w io.Writer, res research.Result, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// Elapsed formats a duration the way the final report does.
func Elapsed(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

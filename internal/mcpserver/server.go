// Package mcpserver exposes the research loop as an MCP tool.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/metalagman/researchloop/internal/research"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// ToolName is the name of the research tool.
const ToolName = "research"

// Runner executes one research run.
type Runner interface {
	Run(ctx context.Context, question string) (research.Result, error)
}

// Input is the research tool input.
type Input struct {
	Question string `json:"question" jsonschema:"the question to research"`
}

// RoundSummary describes one completed round.
type RoundSummary struct {
	Iteration        int      `json:"iteration"`
	Score            float64  `json:"score"`
	IsSufficient     bool     `json:"is_sufficient"`
	Feedback         string   `json:"feedback"`
	ImprovementAreas []string `json:"improvement_areas"`
}

// Output is the research tool structured output.
type Output struct {
	Success         bool           `json:"success"`
	Sufficient      bool           `json:"sufficient"`
	TotalIterations int            `json:"total_iterations"`
	FinalArtifact   string         `json:"final_artifact"`
	Scores          []float64      `json:"scores"`
	Rounds          []RoundSummary `json:"rounds"`
	Error           string         `json:"error,omitempty"`
	FailedIteration int            `json:"failed_iteration,omitempty"`
}

// Server wraps an MCP server with the research tool registered.
type Server struct {
	server *mcp.Server
	runner Runner
}

// New builds the MCP server.
func New(runner Runner, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: "researchloop", Version: version}, nil),
		runner: runner,
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolName,
		Description: "Research a question with an iterative research/evaluation feedback loop and return the refined answer.",
	}, s.handleResearch)
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// ServeStdio serves the tool over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) ServeStdio(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}

func (s *Server) handleResearch(ctx context.Context, _ *mcp.CallToolRequest, in Input) (*mcp.CallToolResult, Output, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, Output{}, fmt.Errorf("question is required")
	}
	log.Info().Str("question", question).Msg("mcp research call")

	res, err := s.runner.Run(ctx, question)
	if err != nil {
		return nil, Output{}, err
	}

	out := toOutput(res)
	if !res.Success {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: res.Error}},
		}, out, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: res.FinalArtifact}},
	}, out, nil
}

func toOutput(res research.Result) Output {
	out := Output{
		Success:         res.Success,
		Sufficient:      res.Sufficient,
		TotalIterations: res.TotalIterations,
		FinalArtifact:   res.FinalArtifact,
		Scores:          res.Scores(),
		Rounds:          make([]RoundSummary, 0, len(res.History)),
		Error:           res.Error,
		FailedIteration: res.FailedIteration,
	}
	for _, round := range res.History {
		areas := round.Evaluation.ImprovementAreas
		if areas == nil {
			areas = []string{}
		}
		out.Rounds = append(out.Rounds, RoundSummary{
			Iteration:        round.Iteration,
			Score:            round.Evaluation.Score,
			IsSufficient:     round.Evaluation.IsSufficient,
			Feedback:         round.Evaluation.Feedback,
			ImprovementAreas: areas,
		})
	}
	return out
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/metalagman/ainvoke"
	"github.com/metalagman/researchloop/internal/config"
	"github.com/rs/zerolog/log"
)

const execSystemPrompt = "You are a text generation backend. Read 'prompt' from the input and write your answer to the 'text' field of the JSON output."

const execInputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "prompt": { "type": "string" },
    "temperature": { "type": "number" }
  },
  "required": ["prompt"]
}`

const execOutputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "text": { "type": "string" }
  },
  "required": ["text"]
}`

type execInput struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
}

type execOutput struct {
	Text string `json:"text"`
}

// Exec generates text by invoking a local agent CLI through ainvoke.
type Exec struct {
	cmd    []string
	model  string
	runner ainvoke.Runner
}

// NewExec constructs an exec-backed generator.
func NewExec(cfg config.LLMConfig) (*Exec, error) {
	if len(cfg.Cmd) == 0 {
		return nil, fmt.Errorf("exec provider requires cmd")
	}
	useTTY := false
	if cfg.UseTTY != nil {
		useTTY = *cfg.UseTTY
	}
	runner, err := ainvoke.NewRunner(ainvoke.AgentConfig{
		Cmd:    cfg.Cmd,
		UseTTY: useTTY,
	})
	if err != nil {
		return nil, fmt.Errorf("create exec runner: %w", err)
	}
	return &Exec{
		cmd:    cfg.Cmd,
		model:  cfg.Model,
		runner: runner,
	}, nil
}

// Generate runs the agent command once in a scratch directory.
func (e *Exec) Generate(ctx context.Context, req Request) (string, error) {
	runDir, err := os.MkdirTemp("", "researchloop-exec-*")
	if err != nil {
		return "", fmt.Errorf("create exec run dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(runDir) }()

	var stderr bytes.Buffer
	inv := ainvoke.Invocation{
		RunDir:       runDir,
		SystemPrompt: execSystemPrompt,
		Input:        execInput{Prompt: req.Prompt, Temperature: req.Temperature},
		InputSchema:  execInputSchema,
		OutputSchema: execOutputSchema,
	}
	outBytes, _, exitCode, err := e.runner.Run(ctx, inv,
		ainvoke.WithStdout(io.Discard),
		ainvoke.WithStderr(&stderr),
	)
	if err != nil {
		log.Debug().Int("exit_code", exitCode).Str("stderr", stderr.String()).Msg("exec generator failed")
		return "", fmt.Errorf("run exec agent (exit code %d): %w", exitCode, err)
	}

	if data, readErr := os.ReadFile(filepath.Join(runDir, "output.json")); readErr == nil && len(bytes.TrimSpace(data)) > 0 {
		outBytes = data
	}
	return decodeExecOutput(outBytes)
}

func decodeExecOutput(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("exec agent produced no output")
	}
	var out execOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw), nil
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", fmt.Errorf("exec agent output has empty text")
	}
	return out.Text, nil
}

// Describe reports the command used.
func (e *Exec) Describe() Info {
	return Info{Provider: config.ProviderExec, Model: e.model, Cmd: e.cmd}
}

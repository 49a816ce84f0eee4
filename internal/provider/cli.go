package provider

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default timeout for CLI-backed completions.
	DefaultTimeout = 5 * time.Minute

	// MaxOutputSize caps CLI output at 10MB.
	MaxOutputSize = 10 * 1024 * 1024
)

// CLIConfig holds configuration for a CLI-backed provider.
type CLIConfig struct {
	Name      string
	Command   string
	Args      []string
	ModelFlag string // flag used to select a model, e.g. "--model"
	Timeout   time.Duration
}

// CLIProvider wraps a command-line AI tool behind the Provider interface. The
// prompt is passed as the final argument; the tool's stdout is the response.
type CLIProvider struct {
	name      string
	command   string
	args      []string
	modelFlag string
	timeout   time.Duration
}

// NewCLIProvider creates a CLI-backed provider from configuration.
func NewCLIProvider(cfg CLIConfig) *CLIProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &CLIProvider{
		name:      cfg.Name,
		command:   cfg.Command,
		args:      cfg.Args,
		modelFlag: cfg.ModelFlag,
		timeout:   timeout,
	}
}

// Name returns the provider identifier.
func (p *CLIProvider) Name() string { return p.name }

// Available checks if the CLI tool is installed and accessible.
func (p *CLIProvider) Available() bool {
	_, err := exec.LookPath(p.command)
	return err == nil
}

// Complete runs the CLI tool with the rendered prompt.
func (p *CLIProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prompt := renderPrompt(req)

	args := append([]string{}, p.args...)
	if p.modelFlag != "" && req.ModelID != "" {
		args = append(args, p.modelFlag, modelName(req.ModelID))
	}
	args = append(args, prompt)

	start := time.Now()
	cmd := exec.CommandContext(ctx, p.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{ModelID: req.ModelID, Timeout: p.timeout}
		}
		return nil, &ProviderError{
			Provider: p.name,
			ModelID:  req.ModelID,
			Message:  fmt.Sprintf("command failed: %s", strings.TrimSpace(stderr.String())),
			Err:      err,
		}
	}

	content := strings.TrimSpace(stdout.String())
	if len(content) > MaxOutputSize {
		content = content[:MaxOutputSize]
	}

	return &CompletionResponse{
		ModelID:        req.ModelID,
		Content:        content,
		InputTokens:    approxTokens(prompt),
		OutputTokens:   approxTokens(content),
		ResponseTimeMs: time.Since(start).Milliseconds(),
		FinishReason:   FinishStop,
	}, nil
}

// renderPrompt flattens the message list into a single prompt for CLI tools
// that accept only one input string.
func renderPrompt(req *CompletionRequest) string {
	var sb strings.Builder
	if req.SystemPrompt != "" {
		sb.WriteString(req.SystemPrompt)
		sb.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	return sb.String()
}

// modelName strips a provider prefix from a model ID ("anthropic/claude-x"
// becomes "claude-x") since CLI tools expect bare model names.
func modelName(modelID string) string {
	parts := strings.Split(modelID, "/")
	return parts[len(parts)-1]
}

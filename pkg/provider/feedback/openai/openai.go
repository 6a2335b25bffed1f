// Package openai provides a feedback provider backed by the OpenAI chat
// completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/vocaprep/vocaprep/pkg/provider/feedback"
)

const defaultModel = "gpt-4o"

var _ feedback.Provider = (*Provider)(nil)

// Provider implements feedback.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

type config struct {
	model   string
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI feedback Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("feedback openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Generate implements feedback.Provider.
func (p *Provider) Generate(ctx context.Context, req feedback.Request) (string, error) {
	if len(req.Turns) == 0 {
		return "", fmt.Errorf("feedback openai: empty transcript")
	}

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt(req)),
			oai.UserMessage(transcriptPrompt(req)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("feedback openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("feedback openai: empty choices in response")
	}

	report := strings.TrimSpace(resp.Choices[0].Message.Content)
	if report == "" {
		return "", fmt.Errorf("feedback openai: model returned empty report")
	}
	return report, nil
}

func systemPrompt(req feedback.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an experienced hiring manager evaluating a %s mock interview for the role of %s.\n", req.InterviewType, req.Role)
	b.WriteString("Write a feedback report for the candidate covering: overall impression, ")
	b.WriteString("strengths, areas to improve, and per-question notes. Be specific and ")
	b.WriteString("quote the candidate where it helps. Address the candidate directly.")
	if len(req.Questions) > 0 {
		b.WriteString("\n\nThe planned questions were:\n")
		for i, q := range req.Questions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}
	return b.String()
}

func transcriptPrompt(req feedback.Request) string {
	var b strings.Builder
	b.WriteString("Interview transcript:\n\n")
	for _, turn := range req.Turns {
		speaker := "Candidate"
		if turn.Role == "agent" {
			speaker = "Interviewer"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, turn.Text)
	}
	return b.String()
}

// Package narrative generates the free-text portion of an analysis report
// by streaming chunks from an OpenAI compatible provider
package narrative

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	perr "repolyze/internal/platform/errors"
	"repolyze/internal/platform/logger"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
)

// Config configures the provider
type Config struct {
	APIKey  string
	BaseURL string // optional override for OpenAI compatible gateways
	Model   string
	Timeout time.Duration
}

// Provider streams narrative text. The zero value is unconfigured and
// reports so via Configured; callers surface that as a 503 before admission
type Provider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     logger.Logger
}

// New builds a Provider. An empty API key yields an unconfigured provider
// rather than an error so the service can boot without one
func New(cfg Config) *Provider {
	p := &Provider{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     *logger.Named("narrative"),
	}
	if p.model == "" {
		p.model = defaultModel
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return p
	}
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	p.client = openai.NewClientWithConfig(cc)
	return p
}

// Configured reports whether a provider key was supplied
func (p *Provider) Configured() bool { return p != nil && p.client != nil }

// Stream generates text for prompt, invoking onChunk for every delta as it
// arrives. A failure mid-stream returns a provider error; chunks already
// delivered stay delivered
func (p *Provider) Stream(ctx context.Context, prompt string, onChunk func(string) error) error {
	if !p.Configured() {
		return perr.Configf("narrative provider is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:  p.model,
		Stream: true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeProvider, "narrative stream open failed")
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			p.log.Error().Err(cerr).Msg("narrative stream close failed")
		}
	}()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeProvider, "narrative stream interrupted")
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := onChunk(delta); err != nil {
				return err
			}
		}
	}
}

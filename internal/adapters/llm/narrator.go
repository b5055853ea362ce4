// Package llm generates ceremony narration with an OpenAI-compatible chat API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/narration"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 80
	defaultRetries   = 1

	systemPrompt = "You are the upbeat announcer of a monthly school awards ceremony. " +
		"Reply with one or two short sentences suitable for children, no emojis, no lists."
)

// ErrEmptyCompletion is returned when the API answers without content.
var ErrEmptyCompletion = errors.New("empty completion")

// Option configures the Narrator.
type Option func(*settings)

type settings struct {
	apiKey  string
	baseURL string
	model   string
	retries int
	extra   []option.RequestOption
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(s *settings) { s.apiKey = key }
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithModel sets the chat model.
func WithModel(m string) Option {
	return func(s *settings) {
		if m != "" {
			s.model = m
		}
	}
}

// WithMaxRetries sets client retries.
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithRequestOptions appends raw client options.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(s *settings) { s.extra = append(s.extra, opts...) }
}

// Narrator asks a chat model for one celebratory line per reveal step.
type Narrator struct {
	client openai.Client
	model  string
}

var _ narration.Narrator = (*Narrator)(nil)

// New creates a Narrator.
func New(opts ...Option) *Narrator {
	s := settings{model: defaultModel, retries: defaultRetries}
	for _, opt := range opts {
		opt(&s)
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(s.apiKey),
		option.WithMaxRetries(s.retries),
	}
	if s.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(s.baseURL))
	}
	clientOpts = append(clientOpts, s.extra...)
	return &Narrator{client: openai.NewClient(clientOpts...), model: s.model}
}

// Narrate implements narration.Narrator.
func (n *Narrator) Narrate(ctx context.Context, entry *model.EntrySummary, rank int, kind model.CompetitionKind) (string, error) {
	completion, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Prompt(entry, rank, kind)),
		},
		Model:               openai.ChatModel(n.model),
		MaxCompletionTokens: openai.Int(defaultMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// Prompt describes the reveal step to the model.
func Prompt(entry *model.EntrySummary, rank int, kind model.CompetitionKind) string {
	if entry == nil || rank == narration.ShowdownRank {
		return "Announce that only the first and second places remain to be revealed and build suspense. Do not name anyone."
	}
	var b strings.Builder
	switch kind {
	case model.KindTeam:
		fmt.Fprintf(&b, "Announce the class %q finishing in place %d, having reached %.0f%% of its monthly star goal.",
			entry.DisplayName, rank, entry.ProgressPercent)
	default:
		fmt.Fprintf(&b, "Announce the student %q finishing in place %d with %.0f stars this month.",
			entry.DisplayName, rank, entry.PrimaryScore)
		if entry.Count3Star > 0 {
			fmt.Fprintf(&b, " They earned %d three-star awards.", entry.Count3Star)
		}
	}
	if rank == 1 {
		b.WriteString(" This is the champion of the month.")
	}
	return b.String()
}

// Package planner turns note content into study material through the
// OpenAI chat API. Every generation passes a moderation gate first.
package planner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/studykit/study-companion/pkg/logging"
)

// ErrModerationRejected is returned when the moderation gate blocks the
// input. Callers alert the admin instead of retrying.
var ErrModerationRejected = errors.New("planner: content rejected by moderation")

const (
	defaultModel = openai.GPT4oMini

	summaryMaxTokens   = 500
	summaryTemperature = 0.2
	planMaxTokens      = 650
	planTemperature    = 0.25

	// Plans shorter than a day make no sense, and with no exam date we
	// assume two weeks of runway.
	minPlanDays     = 1
	defaultPlanDays = 14

	selfHarmThreshold = 0.7
	violenceThreshold = 0.8
)

const (
	summarySystemPrompt = "You are an efficient study assistant. Output should be plain text, no markdown formatting like **."
	planSystemPrompt    = "You are an experienced study coach. Output should be plain text, no markdown formatting like **."
)

var emphasisRe = regexp.MustCompile(`\*\*(.*?)\*\*`)

// generationClient is the slice of the OpenAI client the planner needs.
type generationClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	Moderations(ctx context.Context, req openai.ModerationRequest) (openai.ModerationResponse, error)
}

// Service generates summaries and study plans.
type Service struct {
	client      generationClient
	model       string
	logger      *logging.Logger
	now         func() time.Time
	callTimeout time.Duration
}

// Option customizes the service.
type Option func(*Service)

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(s *Service) {
		if model != "" {
			s.model = model
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCallTimeout bounds each OpenAI call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// NewService creates a planner over the given OpenAI client.
func NewService(client generationClient, opts ...Option) *Service {
	if client == nil {
		panic("planner: openai client cannot be nil")
	}
	s := &Service{
		client:      client,
		model:       defaultModel,
		logger:      logging.Default(),
		now:         time.Now,
		callTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildSummary summarizes note content. The note body is moderated
// before any generation happens.
func (s *Service) BuildSummary(ctx context.Context, title, content string) (string, error) {
	if !s.moderationAllows(ctx, content) {
		return "", ErrModerationRejected
	}

	prompt := fmt.Sprintf(
		"Summarize the following study notes titled: %s\n\n%s\n\nProduce a concise summary with bullet points and 3 key takeaways. Do not use ** for formatting.",
		title, content)

	return s.generate(ctx, "summary", summarySystemPrompt, prompt, summaryMaxTokens, summaryTemperature)
}

// BuildPlan creates a day-by-day study plan. When the note content is
// substantive the plan is constrained to it; otherwise the model falls
// back to common curriculum topics. The assembled prompt is moderated
// before generation.
func (s *Service) BuildPlan(ctx context.Context, subject, content, examDateISO string) (string, error) {
	days := s.daysUntil(examDateISO)

	var b strings.Builder
	fmt.Fprintf(&b, "Create a concise %d-day study plan for '%s'.\n", days, subject)
	if substantive(content) {
		fmt.Fprintf(&b,
			"CRITICAL: Your plan MUST be derived EXCLUSIVELY from the following specific notes provided for '%s'. IGNORE any general knowledge about '%s' and ONLY use the topics/concepts found in the notes below:\n---\n%s\n---\n",
			subject, subject, content)
		fmt.Fprintf(&b,
			"Structure the %d-day plan to cover the topics/concepts from the provided notes sequentially or logically over the available days. Assign specific topics from the notes to each day. Each day's entry should be one line: 'Day X: [Topic from notes] - [Suggested action based on notes, e.g., Review, Practice, Read, etc.]'.",
			days)
	} else {
		fmt.Fprintf(&b,
			"No specific notes were provided for '%s'. Create a general study plan based on common curriculum topics for this subject. Each day's entry should be one line: 'Day X: [General Topic] - [Suggested action, e.g., Review, Practice, Read, etc.]'.",
			subject)
	}
	b.WriteString("\nDo not use ** for formatting.")
	prompt := b.String()

	if !s.moderationAllows(ctx, prompt) {
		return "", ErrModerationRejected
	}

	return s.generate(ctx, "plan", planSystemPrompt, prompt, planMaxTokens, planTemperature)
}

func (s *Service) generate(ctx context.Context, kind, system, prompt string, maxTokens int, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("planner: %s generation: %w", kind, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("planner: %s generation returned no choices", kind)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	text = emphasisRe.ReplaceAllString(text, "$1")
	s.logger.Info("generation complete", "kind", kind, "model", s.model, "chars", len(text))
	return text, nil
}

// moderationAllows runs the moderation endpoint and rejects only on
// high self-harm or violence scores. A classifier outage fails open;
// blocking every student over a transient API error is worse than
// letting study notes through.
func (s *Service) moderationAllows(ctx context.Context, text string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	resp, err := s.client.Moderations(ctx, openai.ModerationRequest{Input: text})
	if err != nil {
		s.logger.Warn("moderation check failed, allowing content", "error", err)
		return true
	}
	if len(resp.Results) == 0 {
		return true
	}

	scores := resp.Results[0].CategoryScores
	if scores.SelfHarm > selfHarmThreshold || scores.Violence > violenceThreshold {
		s.logger.Warn("moderation rejected content",
			"self_harm", scores.SelfHarm, "violence", scores.Violence)
		return false
	}
	return true
}

// daysUntil counts calendar dates between today and the exam, both in
// UTC. Elapsed hours would shortchange the plan by a day whenever the
// current time of day is past midnight.
func (s *Service) daysUntil(examDateISO string) int {
	if examDateISO == "" {
		return defaultPlanDays
	}
	exam, err := time.Parse(time.RFC3339, examDateISO)
	if err != nil {
		return defaultPlanDays
	}
	examDay := exam.UTC().Truncate(24 * time.Hour)
	today := s.now().UTC().Truncate(24 * time.Hour)
	days := int(examDay.Sub(today).Hours() / 24)
	if days < minPlanDays {
		return minPlanDays
	}
	return days
}

func substantive(content string) bool {
	return len(strings.TrimSpace(content)) > 10
}

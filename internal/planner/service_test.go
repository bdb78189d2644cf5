package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpenAI struct {
	chatReq     openai.ChatCompletionRequest
	chatResp    string
	chatErr     error
	modReq      openai.ModerationRequest
	modScores   openai.ResultCategoryScores
	modErr      error
	modCalled   bool
	chatCalled  bool
}

func (f *fakeOpenAI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.chatCalled = true
	f.chatReq = req
	if f.chatErr != nil {
		return openai.ChatCompletionResponse{}, f.chatErr
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.chatResp}},
		},
	}, nil
}

func (f *fakeOpenAI) Moderations(_ context.Context, req openai.ModerationRequest) (openai.ModerationResponse, error) {
	f.modCalled = true
	f.modReq = req
	if f.modErr != nil {
		return openai.ModerationResponse{}, f.modErr
	}
	return openai.ModerationResponse{
		Results: []openai.Result{{CategoryScores: f.modScores}},
	}, nil
}

func TestBuildSummaryRequestShape(t *testing.T) {
	fake := &fakeOpenAI{chatResp: "  A **concise** summary.  "}
	svc := NewService(fake)

	out, err := svc.BuildSummary(context.Background(), "Physics", "Kinematics notes")
	require.NoError(t, err)

	assert.Equal(t, "A concise summary.", out)
	assert.True(t, fake.modCalled)
	assert.Equal(t, openai.GPT4oMini, fake.chatReq.Model)
	assert.Equal(t, 500, fake.chatReq.MaxTokens)
	assert.InDelta(t, 0.2, float64(fake.chatReq.Temperature), 1e-6)
	require.Len(t, fake.chatReq.Messages, 2)
	assert.Contains(t, fake.chatReq.Messages[1].Content, "Summarize the following study notes titled: Physics")
	assert.Contains(t, fake.chatReq.Messages[1].Content, "Kinematics notes")
}

func TestBuildSummaryModeratesNoteBody(t *testing.T) {
	fake := &fakeOpenAI{}
	svc := NewService(fake)

	_, _ = svc.BuildSummary(context.Background(), "Physics", "Kinematics notes")

	assert.Equal(t, "Kinematics notes", fake.modReq.Input)
}

func TestBuildSummaryRejectedByModeration(t *testing.T) {
	fake := &fakeOpenAI{modScores: openai.ResultCategoryScores{SelfHarm: 0.9}}
	svc := NewService(fake)

	_, err := svc.BuildSummary(context.Background(), "Physics", "bad content")

	assert.ErrorIs(t, err, ErrModerationRejected)
	assert.False(t, fake.chatCalled, "generation must not run after a rejection")
}

func TestModerationViolenceThreshold(t *testing.T) {
	fake := &fakeOpenAI{modScores: openai.ResultCategoryScores{Violence: 0.85}}
	svc := NewService(fake)

	_, err := svc.BuildSummary(context.Background(), "Physics", "bad content")
	assert.ErrorIs(t, err, ErrModerationRejected)
}

func TestModerationBelowThresholdsAllowed(t *testing.T) {
	fake := &fakeOpenAI{
		chatResp:  "ok",
		modScores: openai.ResultCategoryScores{SelfHarm: 0.7, Violence: 0.8},
	}
	svc := NewService(fake)

	out, err := svc.BuildSummary(context.Background(), "Physics", "notes")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestModerationFailsOpen(t *testing.T) {
	fake := &fakeOpenAI{chatResp: "ok", modErr: errors.New("api down")}
	svc := NewService(fake)

	out, err := svc.BuildSummary(context.Background(), "Physics", "notes")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestBuildPlanWithNotes(t *testing.T) {
	fake := &fakeOpenAI{chatResp: "Day 1: Kinematics - Review"}
	svc := NewService(fake)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }

	out, err := svc.BuildPlan(context.Background(), "Physics", "Kinematics and dynamics chapters", "2026-09-08T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "Day 1: Kinematics - Review", out)

	prompt := fake.chatReq.Messages[1].Content
	assert.Contains(t, prompt, "Create a concise 7-day study plan for 'Physics'.")
	assert.Contains(t, prompt, "CRITICAL")
	assert.Contains(t, prompt, "Kinematics and dynamics chapters")
	assert.Equal(t, 650, fake.chatReq.MaxTokens)
	assert.InDelta(t, 0.25, float64(fake.chatReq.Temperature), 1e-6)
	// The plan prompt itself is what gets moderated.
	assert.Equal(t, prompt, fake.modReq.Input)
}

func TestBuildPlanWithoutNotes(t *testing.T) {
	fake := &fakeOpenAI{chatResp: "Day 1: Algebra - Review"}
	svc := NewService(fake)

	_, err := svc.BuildPlan(context.Background(), "Math", "   short   ", "")
	require.NoError(t, err)

	prompt := fake.chatReq.Messages[1].Content
	assert.Contains(t, prompt, "No specific notes were provided for 'Math'.")
	assert.NotContains(t, prompt, "CRITICAL")
	assert.Contains(t, prompt, "14-day study plan")
}

func TestBuildPlanCountsCalendarDays(t *testing.T) {
	fake := &fakeOpenAI{chatResp: "plan"}
	svc := NewService(fake)
	// Midnight-anchored exam dates must not lose a day to the current
	// time of day.
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }

	_, err := svc.BuildPlan(context.Background(), "Physics", "", "2026-09-10T00:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, fake.chatReq.Messages[1].Content, "9-day study plan")
}

func TestBuildPlanDaysClampedToOne(t *testing.T) {
	fake := &fakeOpenAI{chatResp: "Day 1: cram"}
	svc := NewService(fake)
	svc.now = func() time.Time { return time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC) }

	_, err := svc.BuildPlan(context.Background(), "Physics", "", "2026-09-01T00:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, fake.chatReq.Messages[1].Content, "1-day study plan")
}

func TestBuildPlanUnparseableDateDefaults(t *testing.T) {
	fake := &fakeOpenAI{chatResp: "plan"}
	svc := NewService(fake)

	_, err := svc.BuildPlan(context.Background(), "Physics", "", "next tuesday")
	require.NoError(t, err)
	assert.Contains(t, fake.chatReq.Messages[1].Content, "14-day study plan")
}

func TestGenerateErrorWrapped(t *testing.T) {
	fake := &fakeOpenAI{chatErr: errors.New("rate limited")}
	svc := NewService(fake)

	_, err := svc.BuildSummary(context.Background(), "Physics", "notes")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "summary generation"))
}

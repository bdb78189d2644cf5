package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSender struct {
	chatID int64
	text   string
	calls  int
	err    error
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string) error {
	f.calls++
	f.chatID = chatID
	f.text = text
	return f.err
}

func TestModerationRejectedSendsAlert(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, 999, nil)

	svc.ModerationRejected(context.Background(), 42, "Physics")

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, int64(999), sender.chatID)
	assert.Equal(t, "User 42 attempted create_plan but failed moderation for subject Physics.", sender.text)
}

func TestSummaryRejectedSendsAlert(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, 999, nil)

	svc.SummaryRejected(context.Background(), 42, "Physics")

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "User 42 attempted to summarize sensitive content titled: Physics", sender.text)
}

func TestModerationRejectedDisabledWithoutAdmin(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, 0, nil)

	svc.ModerationRejected(context.Background(), 42, "Physics")

	assert.Zero(t, sender.calls)
}

func TestModerationRejectedSwallowsSendErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("chat not found")}
	svc := NewService(sender, 999, nil)

	// Must not panic or surface the error.
	svc.ModerationRejected(context.Background(), 42, "Physics")
	assert.Equal(t, 1, sender.calls)
}

// Package notify alerts the admin chat about events that need a human,
// such as moderation rejections.
package notify

import (
	"context"
	"fmt"

	"github.com/studykit/study-companion/pkg/logging"
)

// MessageSender sends a plain text message to a chat.
type MessageSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Service delivers admin alerts. Delivery failures are logged, never
// propagated; an unreachable admin must not break the user's turn.
type Service struct {
	sender      MessageSender
	adminChatID int64
	logger      *logging.Logger
}

// NewService creates the notifier. An adminChatID of zero disables all
// alerts.
func NewService(sender MessageSender, adminChatID int64, logger *logging.Logger) *Service {
	if sender == nil {
		panic("notify: message sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sender: sender, adminChatID: adminChatID, logger: logger}
}

// SummaryRejected tells the admin that a user's note was too sensitive
// to summarize.
func (s *Service) SummaryRejected(ctx context.Context, userID int64, title string) {
	if s.adminChatID == 0 {
		return
	}
	text := fmt.Sprintf("User %d attempted to summarize sensitive content titled: %s", userID, title)
	if err := s.sender.SendText(ctx, s.adminChatID, text); err != nil {
		s.logger.Error("admin alert delivery failed", "error", err, "user_id", userID)
	}
}

// ModerationRejected tells the admin that a user's generation request
// was blocked.
func (s *Service) ModerationRejected(ctx context.Context, userID int64, subject string) {
	if s.adminChatID == 0 {
		return
	}
	text := fmt.Sprintf("User %d attempted create_plan but failed moderation for subject %s.", userID, subject)
	if err := s.sender.SendText(ctx, s.adminChatID, text); err != nil {
		s.logger.Error("admin alert delivery failed", "error", err, "user_id", userID)
	}
}

package dialog

import (
	"context"
	"strings"
	"time"

	"github.com/studykit/study-companion/internal/telegram"
	"github.com/studykit/study-companion/pkg/logging"
)

// CallbackAnswerer acknowledges callback queries so the client stops
// showing its loading spinner.
type CallbackAnswerer interface {
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// rateLimitedCommands are the commands that hit external services and
// therefore get throttled. /start and /test stay cheap and unthrottled.
var rateLimitedCommands = map[string]bool{
	"summary":        true,
	"plan":           true,
	"debug_calendar": true,
}

// Router turns raw updates into sequenced dialog turns.
type Router struct {
	controller  *Controller
	answerer    CallbackAnswerer
	replier     Replier
	limiter     *RateLimiter
	sequencer   *Sequencer
	turnTimeout time.Duration
	logger      *logging.Logger
}

// RouterDeps bundles the router's collaborators.
type RouterDeps struct {
	Controller  *Controller
	Answerer    CallbackAnswerer
	Replier     Replier
	Limiter     *RateLimiter
	Sequencer   *Sequencer
	TurnTimeout time.Duration
	Logger      *logging.Logger
}

// NewRouter wires update dispatch.
func NewRouter(deps RouterDeps) *Router {
	switch {
	case deps.Controller == nil:
		panic("dialog: controller cannot be nil")
	case deps.Answerer == nil:
		panic("dialog: callback answerer cannot be nil")
	case deps.Replier == nil:
		panic("dialog: replier cannot be nil")
	case deps.Limiter == nil:
		panic("dialog: rate limiter cannot be nil")
	case deps.Sequencer == nil:
		panic("dialog: sequencer cannot be nil")
	}
	timeout := deps.TurnTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Router{
		controller:  deps.Controller,
		answerer:    deps.Answerer,
		replier:     deps.Replier,
		limiter:     deps.Limiter,
		sequencer:   deps.Sequencer,
		turnTimeout: timeout,
		logger:      logger,
	}
}

// Dispatch routes one update onto the owning user's turn queue. It
// never blocks on turn execution.
func (r *Router) Dispatch(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		r.dispatchCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		r.dispatchMessage(update.Message)
	default:
		r.logger.Debug("ignoring update without usable payload", "update_id", update.UpdateID)
	}
}

func (r *Router) dispatchCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	// Acknowledge immediately, before the turn is queued.
	if err := r.answerer.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		r.logger.Warn("callback acknowledgement failed", "error", err)
	}
	if cb.Message == nil {
		r.logger.Warn("callback without originating message dropped", "callback_id", cb.ID)
		return
	}

	userID := cb.From.ID
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	data := cb.Data
	r.enqueue(userID, func(turnCtx context.Context) error {
		return r.controller.HandleCallback(turnCtx, userID, chatID, messageID, data)
	})
}

func (r *Router) dispatchMessage(msg *telegram.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := msg.Text

	if command, ok := parseCommand(text); ok {
		if rateLimitedCommands[command] && !r.limiter.Allow(userID) {
			r.enqueue(userID, func(turnCtx context.Context) error {
				return r.replier.Reply(turnCtx, chatID, "You're sending commands too fast — please wait a moment.")
			})
			return
		}
		r.enqueue(userID, func(turnCtx context.Context) error {
			return r.controller.HandleCommand(turnCtx, userID, chatID, command)
		})
		return
	}

	r.enqueue(userID, func(turnCtx context.Context) error {
		return r.controller.HandleText(turnCtx, userID, chatID, text)
	})
}

func (r *Router) enqueue(userID int64, turn func(ctx context.Context) error) {
	r.sequencer.Enqueue(userID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.turnTimeout)
		defer cancel()
		if err := turn(ctx); err != nil {
			r.logger.Error("turn failed", "user_id", userID, "error", err)
		}
	})
}

// parseCommand extracts the command name from a "/command[@bot] args"
// message.
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	first := strings.Fields(text)[0]
	name := strings.TrimPrefix(first, "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", false
	}
	return name, true
}

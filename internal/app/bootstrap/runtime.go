// Package bootstrap assembles the bot's runtime from configuration:
// clients, stores, the dialog pipeline and the HTTP sidecar.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/studykit/study-companion/internal/calendar"
	"github.com/studykit/study-companion/internal/config"
	"github.com/studykit/study-companion/internal/dialog"
	"github.com/studykit/study-companion/internal/match"
	"github.com/studykit/study-companion/internal/notes"
	"github.com/studykit/study-companion/internal/notify"
	"github.com/studykit/study-companion/internal/observability/metrics"
	"github.com/studykit/study-companion/internal/planner"
	"github.com/studykit/study-companion/internal/session"
	"github.com/studykit/study-companion/internal/telegram"
	"github.com/studykit/study-companion/pkg/logging"
)

// Runtime holds every long-lived component main needs to run and shut
// down the bot.
type Runtime struct {
	Config    *config.Config
	Logger    *logging.Logger
	Telegram  *telegram.Client
	Router    *dialog.Router
	Sequencer *dialog.Sequencer
	HTTP      http.Handler

	redis *redis.Client
}

// Build wires the full runtime. It fails fast on anything the bot
// cannot run without: Telegram token, calendar credentials, or a
// configured-but-unreachable Redis.
func Build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}

	tg := telegram.NewClient(cfg.TelegramToken,
		telegram.WithBaseURL(cfg.TelegramBaseURL),
		telegram.WithLogger(logger.Component("telegram")),
	)

	redisClient, sessions, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	calendarSvc, err := calendar.NewService(ctx, cfg.GoogleCredentialsPath, cfg.GoogleTokenPath, cfg.CalendarID, logger.Component("calendar"))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: calendar: %w", err)
	}
	searcher := match.NewSearcher(calendarSvc,
		match.WithLookaheadDays(cfg.LookaheadDays),
		match.WithMaxResults(cfg.CalendarMaxResults),
		match.WithSearcherLogger(logger.Component("match")),
	)

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is empty, generations will fail")
	}
	planSvc := planner.NewService(openai.NewClient(cfg.OpenAIAPIKey),
		planner.WithModel(cfg.OpenAIModel),
		planner.WithLogger(logger.Component("planner")),
		planner.WithCallTimeout(cfg.RequestTimeout),
	)

	notesClient := notes.NewClient(cfg.NotionAPIKey, cfg.NotionDatabaseID,
		notes.WithLogger(logger.Component("notes")),
	)

	botMetrics := metrics.New(prometheus.DefaultRegisterer)
	replier := telegramReplier{client: tg}
	controller := dialog.NewController(dialog.ControllerDeps{
		Notes:    notesClient,
		Finder:   searcher,
		Planner:  planSvc,
		Notifier: notify.NewService(tg, cfg.AdminChatID, logger.Component("notify")),
		Probe:    calendarSvc,
		Sessions: sessions,
		Replier:  replier,
		Metrics:  botMetrics,
		Logger:   logger.Component("dialog"),
	})

	sequencer := dialog.NewSequencer(logger.Component("sequencer"))
	router := dialog.NewRouter(dialog.RouterDeps{
		Controller:  controller,
		Answerer:    tg,
		Replier:     replier,
		Limiter:     dialog.NewRateLimiter(cfg.RateLimitInterval),
		Sequencer:   sequencer,
		TurnTimeout: cfg.TurnTimeout,
		Logger:      logger.Component("router"),
	})

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Telegram:  tg,
		Router:    router,
		Sequencer: sequencer,
		HTTP:      buildHTTPHandler(redisClient),
		redis:     redisClient,
	}, nil
}

// Close releases runtime resources after the turn queues have drained.
func (r *Runtime) Close() error {
	if r.redis != nil {
		return r.redis.Close()
	}
	return nil
}

func buildSessionStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*redis.Client, session.Store, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, using in-memory session store")
		return nil, session.NewMemoryStore(cfg.SessionTTL), nil
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("bootstrap: redis ping: %w", err)
	}

	logger.Info("redis session store connected", "addr", cfg.RedisAddr)
	return client, session.NewRedisStore(client, cfg.SessionTTL, logger.Component("session")), nil
}

func buildHTTPHandler(redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if redisClient != nil {
			if err := redisClient.Ping(req.Context()).Err(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintln(w, "redis unreachable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// telegramReplier adapts the Bot API client to the dialog package's
// Replier interface.
type telegramReplier struct {
	client *telegram.Client
}

func (r telegramReplier) Reply(ctx context.Context, chatID int64, text string) error {
	return r.client.SendText(ctx, chatID, text)
}

func (r telegramReplier) ReplyWithButtons(ctx context.Context, chatID int64, text string, rows [][]dialog.Button) error {
	return r.client.SendMessage(ctx, chatID, text, toKeyboard(rows))
}

func (r telegramReplier) Edit(ctx context.Context, chatID, messageID int64, text string) error {
	return r.client.EditMessageText(ctx, chatID, messageID, text)
}

func (r telegramReplier) EditWithButtons(ctx context.Context, chatID, messageID int64, text string, rows [][]dialog.Button) error {
	return r.client.EditMessage(ctx, chatID, messageID, text, toKeyboard(rows))
}

func toKeyboard(rows [][]dialog.Button) *telegram.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]telegram.InlineKeyboardButton, len(rows))
	for i, row := range rows {
		buttons := make([]telegram.InlineKeyboardButton, len(row))
		for j, b := range row {
			buttons[j] = telegram.InlineKeyboardButton{Text: b.Label, CallbackData: b.Data}
		}
		keyboard[i] = buttons
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

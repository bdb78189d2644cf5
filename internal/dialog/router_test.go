package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studykit/study-companion/internal/session"
	"github.com/studykit/study-companion/internal/telegram"
)

type fakeAnswerer struct {
	ids []string
}

func (f *fakeAnswerer) AnswerCallbackQuery(_ context.Context, callbackID string) error {
	f.ids = append(f.ids, callbackID)
	return nil
}

type routerFixture struct {
	*fixture
	answerer  *fakeAnswerer
	limiter   *RateLimiter
	sequencer *Sequencer
	router    *Router
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	rf := &routerFixture{
		fixture:   newFixture(t),
		answerer:  &fakeAnswerer{},
		limiter:   NewRateLimiter(time.Second),
		sequencer: NewSequencer(nil),
	}
	rf.router = NewRouter(RouterDeps{
		Controller: rf.ctrl,
		Answerer:   rf.answerer,
		Replier:    rf.replier,
		Limiter:    rf.limiter,
		Sequencer:  rf.sequencer,
	})
	return rf
}

func messageUpdate(text string) telegram.Update {
	return telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			MessageID: testMessageID,
			From:      &telegram.User{ID: testUserID},
			Chat:      telegram.Chat{ID: testChatID},
			Text:      text,
		},
	}
}

func TestRouterDispatchesCommand(t *testing.T) {
	rf := newRouterFixture(t)

	rf.router.Dispatch(context.Background(), messageUpdate("/start"))
	rf.sequencer.Wait()

	assert.Equal(t, []string{"Hi! I'm your AI Study Companion. Use /summary or /plan to select from your notes."}, rf.replier.texts())
}

func TestRouterStripsBotMention(t *testing.T) {
	rf := newRouterFixture(t)

	rf.router.Dispatch(context.Background(), messageUpdate("/test@study_companion_bot"))
	rf.sequencer.Wait()

	assert.Equal(t, []string{"✅ Bot is working! Commands are being received."}, rf.replier.texts())
}

func TestRouterRateLimitsExpensiveCommands(t *testing.T) {
	rf := newRouterFixture(t)
	base := time.Now()
	rf.limiter.now = func() time.Time { return base }
	rf.notes.titles = []string{"Physics"}

	rf.router.Dispatch(context.Background(), messageUpdate("/summary"))
	rf.sequencer.Wait()
	rf.router.Dispatch(context.Background(), messageUpdate("/summary"))
	rf.sequencer.Wait()

	texts := rf.replier.texts()
	assert.Contains(t, texts, "You're sending commands too fast — please wait a moment.")
}

func TestRouterDoesNotRateLimitStart(t *testing.T) {
	rf := newRouterFixture(t)
	base := time.Now()
	rf.limiter.now = func() time.Time { return base }

	rf.router.Dispatch(context.Background(), messageUpdate("/start"))
	rf.router.Dispatch(context.Background(), messageUpdate("/start"))
	rf.sequencer.Wait()

	require.Len(t, rf.replier.ops, 2)
	for _, op := range rf.replier.ops {
		assert.Equal(t, "Hi! I'm your AI Study Companion. Use /summary or /plan to select from your notes.", op.text)
	}
}

func TestRouterRoutesPlainTextToDateHandler(t *testing.T) {
	rf := newRouterFixture(t)
	require.NoError(t, rf.sessions.Save(context.Background(), testUserID, &session.State{AwaitingDateFor: "Physics"}))

	rf.router.Dispatch(context.Background(), messageUpdate("2026-09-10"))
	rf.sequencer.Wait()

	assert.Equal(t, "2026-09-10T00:00:00Z", rf.planner.planISO)
}

func TestRouterAnswersAndRoutesCallback(t *testing.T) {
	rf := newRouterFixture(t)
	rf.notes.content["Physics"] = "notes"

	rf.router.Dispatch(context.Background(), telegram.Update{
		UpdateID: 2,
		CallbackQuery: &telegram.CallbackQuery{
			ID:   "cb-1",
			From: telegram.User{ID: testUserID},
			Message: &telegram.Message{
				MessageID: testMessageID,
				Chat:      telegram.Chat{ID: testChatID},
			},
			Data: "select_summary_note||Physics",
		},
	})
	rf.sequencer.Wait()

	assert.Equal(t, []string{"cb-1"}, rf.answerer.ids)
	assert.Contains(t, rf.replier.texts(), "Selected note: Physics. Fetching content...")
}

func TestRouterDropsCallbackWithoutMessage(t *testing.T) {
	rf := newRouterFixture(t)

	rf.router.Dispatch(context.Background(), telegram.Update{
		UpdateID:      3,
		CallbackQuery: &telegram.CallbackQuery{ID: "cb-2", From: telegram.User{ID: testUserID}},
	})
	rf.sequencer.Wait()

	assert.Equal(t, []string{"cb-2"}, rf.answerer.ids, "still acknowledged")
	assert.Empty(t, rf.replier.ops)
}

func TestRouterIgnoresEmptyUpdates(t *testing.T) {
	rf := newRouterFixture(t)

	rf.router.Dispatch(context.Background(), telegram.Update{UpdateID: 4})
	rf.sequencer.Wait()

	assert.Empty(t, rf.replier.ops)
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/plan", "plan", true},
		{"/plan@my_bot", "plan", true},
		{"/plan extra args", "plan", true},
		{"plan", "", false},
		{"/", "", false},
	}
	for _, tc := range cases {
		got, ok := parseCommand(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

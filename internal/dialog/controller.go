package dialog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/studykit/study-companion/internal/match"
	"github.com/studykit/study-companion/internal/observability/metrics"
	"github.com/studykit/study-companion/internal/planner"
	"github.com/studykit/study-companion/internal/session"
	"github.com/studykit/study-companion/pkg/logging"
)

const (
	maxCandidateButtons = 6
	candidateLabelLen   = 40
	debugWindow         = 30 * 24 * time.Hour
)

// NotesClient lists note titles and fetches note bodies.
type NotesClient interface {
	ListTitles(ctx context.Context) ([]string, error)
	FetchContent(ctx context.Context, title string) (string, error)
}

// CandidateFinder searches the calendar for events matching a subject.
type CandidateFinder interface {
	Search(ctx context.Context, subject string) match.SearchResult
}

// Planner generates summaries and study plans.
type Planner interface {
	BuildSummary(ctx context.Context, title, content string) (string, error)
	BuildPlan(ctx context.Context, subject, content, examDateISO string) (string, error)
}

// AdminNotifier alerts a human about moderation rejections.
type AdminNotifier interface {
	SummaryRejected(ctx context.Context, userID int64, title string)
	ModerationRejected(ctx context.Context, userID int64, subject string)
}

// CalendarProbe checks calendar connectivity for /debug_calendar.
type CalendarProbe interface {
	CountUpcoming(ctx context.Context, window time.Duration) (int, error)
}

// Button is one inline keyboard button.
type Button struct {
	Label string
	Data  string
}

// Replier sends messages back to the chat. Edit variants rewrite the
// message carrying the inline keyboard that triggered the callback.
type Replier interface {
	Reply(ctx context.Context, chatID int64, text string) error
	ReplyWithButtons(ctx context.Context, chatID int64, text string, rows [][]Button) error
	Edit(ctx context.Context, chatID, messageID int64, text string) error
	EditWithButtons(ctx context.Context, chatID, messageID int64, text string, rows [][]Button) error
}

// Controller implements the conversation flows. It is stateless itself;
// everything a turn needs to remember goes through the session store.
type Controller struct {
	notes    NotesClient
	finder   CandidateFinder
	planner  Planner
	notifier AdminNotifier
	probe    CalendarProbe
	sessions session.Store
	replier  Replier
	metrics  *metrics.BotMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// ControllerDeps bundles the controller's collaborators. Probe and
// Metrics may be nil; everything else is required.
type ControllerDeps struct {
	Notes    NotesClient
	Finder   CandidateFinder
	Planner  Planner
	Notifier AdminNotifier
	Probe    CalendarProbe
	Sessions session.Store
	Replier  Replier
	Metrics  *metrics.BotMetrics
	Logger   *logging.Logger
}

// NewController wires the conversation flows.
func NewController(deps ControllerDeps) *Controller {
	switch {
	case deps.Notes == nil:
		panic("dialog: notes client cannot be nil")
	case deps.Finder == nil:
		panic("dialog: candidate finder cannot be nil")
	case deps.Planner == nil:
		panic("dialog: planner cannot be nil")
	case deps.Notifier == nil:
		panic("dialog: admin notifier cannot be nil")
	case deps.Sessions == nil:
		panic("dialog: session store cannot be nil")
	case deps.Replier == nil:
		panic("dialog: replier cannot be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{
		notes:    deps.Notes,
		finder:   deps.Finder,
		planner:  deps.Planner,
		notifier: deps.Notifier,
		probe:    deps.Probe,
		sessions: deps.Sessions,
		replier:  deps.Replier,
		metrics:  deps.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleCommand runs one slash command.
func (c *Controller) HandleCommand(ctx context.Context, userID, chatID int64, command string) error {
	c.metrics.CommandReceived(command)

	switch command {
	case "start":
		return c.replier.Reply(ctx, chatID, "Hi! I'm your AI Study Companion. Use /summary or /plan to select from your notes.")
	case "test":
		return c.replier.Reply(ctx, chatID, "✅ Bot is working! Commands are being received.")
	case "debug_calendar":
		return c.handleDebugCalendar(ctx, chatID)
	case "summary":
		return c.offerNotes(ctx, chatID, "Select a note to summarize:", func(title string) string {
			return SelectSummaryNote{Title: title}.Encode()
		})
	case "plan":
		return c.offerNotes(ctx, chatID, "Select a note to create a study plan:", func(title string) string {
			return SelectPlanNote{Title: title}.Encode()
		})
	default:
		return c.replier.Reply(ctx, chatID, "I didn't understand that. Use /summary or /plan to select from your notes.")
	}
}

func (c *Controller) handleDebugCalendar(ctx context.Context, chatID int64) error {
	if err := c.replier.Reply(ctx, chatID, "Testing Google Calendar connection..."); err != nil {
		return err
	}
	if c.probe == nil {
		return c.replier.Reply(ctx, chatID, "❌ Calendar connection failed: calendar is not configured")
	}
	count, err := c.probe.CountUpcoming(ctx, debugWindow)
	if err != nil {
		return c.replier.Reply(ctx, chatID, fmt.Sprintf("❌ Calendar connection failed: %v", err))
	}
	return c.replier.Reply(ctx, chatID, fmt.Sprintf("✅ Calendar connection successful! Found %d events in the next 30 days.", count))
}

func (c *Controller) offerNotes(ctx context.Context, chatID int64, prompt string, encode func(title string) string) error {
	if err := c.replier.Reply(ctx, chatID, "Fetching your notes from Notion..."); err != nil {
		return err
	}

	titles, err := c.notes.ListTitles(ctx)
	if err != nil {
		c.logger.Error("note listing failed", "error", err)
		titles = nil
	}
	if len(titles) == 0 {
		return c.replier.Reply(ctx, chatID, "No notes found in your Notion database.")
	}

	rows := make([][]Button, 0, len(titles))
	for _, title := range titles {
		rows = append(rows, []Button{{Label: title, Data: encode(title)}})
	}
	return c.replier.ReplyWithButtons(ctx, chatID, prompt, rows)
}

// HandleCallback runs one inline keyboard press. messageID is the
// message that carried the keyboard.
func (c *Controller) HandleCallback(ctx context.Context, userID, chatID, messageID int64, data string) error {
	action := DecodeAction(data)
	c.logger.Info("callback received", "action", action.Name(), "user_id", userID)

	var err error
	switch a := action.(type) {
	case SelectSummaryNote:
		err = c.handleSummaryNote(ctx, userID, chatID, messageID, a.Title)
	case SelectPlanNote:
		err = c.handlePlanNote(ctx, userID, chatID, messageID, a.Title)
	case PlanAfterSummaryNote:
		err = c.handlePlanAfterSummary(ctx, userID, chatID, messageID, a.Title)
	case SelectEvent:
		err = c.handleEventChoice(ctx, userID, chatID, messageID, a)
	default:
		err = c.replier.Reply(ctx, chatID, "I didn't recognise that action. Please retry or send /plan or /summary.")
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.CallbackHandled(action.Name(), status)
	return err
}

func (c *Controller) handleSummaryNote(ctx context.Context, userID, chatID, messageID int64, title string) error {
	if err := c.replier.Edit(ctx, chatID, messageID, fmt.Sprintf("Selected note: %s. Fetching content...", title)); err != nil {
		return err
	}

	content, err := c.notes.FetchContent(ctx, title)
	if err != nil {
		c.logger.Error("note fetch failed", "title", title, "error", err)
		content = ""
	}
	if strings.TrimSpace(content) == "" {
		return c.replier.Reply(ctx, chatID, fmt.Sprintf("Found the note '%s' but it has no extractable content.", title))
	}

	if err := c.replier.Reply(ctx, chatID, fmt.Sprintf("Generating summary for: %s...", title)); err != nil {
		return err
	}

	start := c.now()
	summary, err := c.planner.BuildSummary(ctx, title, content)
	elapsed := c.now().Sub(start).Seconds()
	if errors.Is(err, planner.ErrModerationRejected) {
		c.metrics.GenerationFinished("summary", "rejected", elapsed)
		if rerr := c.replier.Reply(ctx, chatID, "The content appears sensitive and cannot be processed by the bot. I'll notify the admin for manual review."); rerr != nil {
			return rerr
		}
		c.notifier.SummaryRejected(ctx, userID, title)
		return nil
	}
	if err != nil {
		c.metrics.GenerationFinished("summary", "error", elapsed)
		return c.replier.Reply(ctx, chatID, fmt.Sprintf("Failed to generate summary: %v", err))
	}
	c.metrics.GenerationFinished("summary", "ok", elapsed)

	if err := c.replier.Reply(ctx, chatID, summary); err != nil {
		return err
	}
	followUp := [][]Button{{{
		Label: "Create study plan for this note",
		Data:  PlanAfterSummaryNote{Title: title}.Encode(),
	}}}
	return c.replier.ReplyWithButtons(ctx, chatID, "What next?", followUp)
}

func (c *Controller) handlePlanNote(ctx context.Context, userID, chatID, messageID int64, title string) error {
	if err := c.replier.Edit(ctx, chatID, messageID, fmt.Sprintf("Selected note: %s. Fetching content and checking calendar...", title)); err != nil {
		return err
	}
	return c.startPlanSearch(ctx, userID, chatID, messageID, title,
		fmt.Sprintf("No upcoming calendar event found for '%s'. Please reply with your exam date in YYYY-MM-DD format.", title), true)
}

func (c *Controller) handlePlanAfterSummary(ctx context.Context, userID, chatID, messageID int64, title string) error {
	if err := c.replier.Edit(ctx, chatID, messageID, fmt.Sprintf("Creating plan for: %s. Checking calendar...", title)); err != nil {
		return err
	}
	return c.startPlanSearch(ctx, userID, chatID, messageID, title,
		"No calendar event found. Please reply with exam date (YYYY-MM-DD).", false)
}

// startPlanSearch fetches the note, searches the calendar and either
// generates the plan directly, asks the user to disambiguate, or falls
// back to a manually typed date.
func (c *Controller) startPlanSearch(ctx context.Context, userID, chatID, messageID int64, title, notFoundText string, announceEvent bool) error {
	content, err := c.notes.FetchContent(ctx, title)
	if err != nil {
		c.logger.Error("note fetch failed", "title", title, "error", err)
		content = ""
	}

	state, err := c.sessions.Load(ctx, userID)
	if err != nil {
		return err
	}
	state.Subject = title
	state.NoteContent = content
	state.AwaitingDateFor = ""
	state.Candidates = nil

	result := c.finder.Search(ctx, title)
	if !result.Found {
		c.metrics.SearchOutcome("manual")
		state.AwaitingDateFor = title
		if err := c.sessions.Save(ctx, userID, state); err != nil {
			return err
		}
		return c.replier.Reply(ctx, chatID, notFoundText)
	}

	if len(result.Events) == 1 {
		c.metrics.SearchOutcome("auto")
		event := result.Events[0].Event
		iso, ok := event.StartISO()
		if !ok {
			iso = ""
		}
		state.ExamDateISO = iso
		if err := c.sessions.Save(ctx, userID, state); err != nil {
			return err
		}
		if announceEvent {
			if err := c.replier.Edit(ctx, chatID, messageID, fmt.Sprintf("Found event: %s on %s", event.Summary, displayDate(iso))); err != nil {
				return err
			}
		}
		if err := c.replier.Edit(ctx, chatID, messageID, "Generating plan — please wait..."); err != nil {
			return err
		}
		return c.deliverPlan(ctx, userID, chatID, title, content, iso, func(text string) error {
			return c.replier.Edit(ctx, chatID, messageID, text)
		})
	}

	c.metrics.SearchOutcome("disambiguate")
	state.Candidates = result.Events
	if err := c.sessions.Save(ctx, userID, state); err != nil {
		return err
	}

	rows := make([][]Button, 0, maxCandidateButtons+1)
	for idx, candidate := range result.Events {
		if idx == maxCandidateButtons {
			break
		}
		rows = append(rows, []Button{{
			Label: candidateLabel(candidate),
			Data:  SelectEvent{Choice: strconv.Itoa(idx), Subject: title}.Encode(),
		}})
	}
	rows = append(rows, []Button{{
		Label: "None of these — I'll type date",
		Data:  SelectEvent{Choice: manualChoice, Subject: title}.Encode(),
	}})
	return c.replier.EditWithButtons(ctx, chatID, messageID, "Multiple matches found. Please pick the correct event:", rows)
}

func (c *Controller) handleEventChoice(ctx context.Context, userID, chatID, messageID int64, action SelectEvent) error {
	state, err := c.sessions.Load(ctx, userID)
	if err != nil {
		return err
	}
	subject := action.Subject
	if subject == "" {
		subject = state.Subject
	}

	if action.Choice == manualChoice {
		state.AwaitingDateFor = subject
		if err := c.sessions.Save(ctx, userID, state); err != nil {
			return err
		}
		return c.replier.Edit(ctx, chatID, messageID, "Please reply in chat with your exam date in YYYY-MM-DD format.")
	}

	idx, err := strconv.Atoi(action.Choice)
	if err != nil {
		return c.replier.Edit(ctx, chatID, messageID, "Selection invalid. Please /plan again.")
	}
	if idx < 0 || idx >= len(state.Candidates) {
		return c.replier.Edit(ctx, chatID, messageID, "Selection out of range. Please /plan again.")
	}

	chosen := state.Candidates[idx].Event
	iso, ok := chosen.StartISO()
	if !ok {
		iso = ""
	}
	state.ExamDateISO = iso
	state.Subject = subject
	if err := c.sessions.Save(ctx, userID, state); err != nil {
		return err
	}

	if err := c.replier.Edit(ctx, chatID, messageID, fmt.Sprintf("Selected: %s on %s", chosen.Summary, displayDate(iso))); err != nil {
		return err
	}
	if err := c.replier.Edit(ctx, chatID, messageID, "Generating plan — please wait..."); err != nil {
		return err
	}
	return c.deliverPlan(ctx, userID, chatID, subject, state.NoteContent, iso, func(text string) error {
		return c.replier.Edit(ctx, chatID, messageID, text)
	})
}

// HandleText processes a plain message, which is only meaningful while
// the bot waits for a manually typed exam date.
func (c *Controller) HandleText(ctx context.Context, userID, chatID int64, text string) error {
	state, err := c.sessions.Load(ctx, userID)
	if err != nil {
		return err
	}
	if state.AwaitingDateFor == "" {
		return c.replier.Reply(ctx, chatID, "I didn't understand that. Use /summary or /plan to select from your notes.")
	}

	subject := state.AwaitingDateFor
	iso, ok := parseExamDate(strings.TrimSpace(text))
	if !ok {
		return c.replier.Reply(ctx, chatID, "Could not parse date. Please send in YYYY-MM-DD format.")
	}

	state.AwaitingDateFor = ""
	state.ExamDateISO = iso
	state.Subject = subject
	if err := c.sessions.Save(ctx, userID, state); err != nil {
		return err
	}

	if err := c.replier.Reply(ctx, chatID, "Generating plan — please wait..."); err != nil {
		return err
	}
	return c.deliverPlan(ctx, userID, chatID, subject, state.NoteContent, iso, func(out string) error {
		return c.replier.Reply(ctx, chatID, out)
	})
}

// deliverPlan generates the plan and hands the final text to deliver,
// which either edits the keyboard message or sends a fresh one.
func (c *Controller) deliverPlan(ctx context.Context, userID, chatID int64, subject, content, iso string, deliver func(text string) error) error {
	start := c.now()
	plan, err := c.planner.BuildPlan(ctx, subject, content, iso)
	elapsed := c.now().Sub(start).Seconds()

	if errors.Is(err, planner.ErrModerationRejected) {
		c.metrics.GenerationFinished("plan", "rejected", elapsed)
		if rerr := c.replier.Reply(ctx, chatID, "The request seems to be blocked by safety checks. Admin alerted."); rerr != nil {
			return rerr
		}
		c.notifier.ModerationRejected(ctx, userID, subject)
		return nil
	}
	if err != nil {
		c.metrics.GenerationFinished("plan", "error", elapsed)
		return c.replier.Reply(ctx, chatID, fmt.Sprintf("Failed to generate plan: %v", err))
	}
	c.metrics.GenerationFinished("plan", "ok", elapsed)

	return deliver(fmt.Sprintf("📘 Study Plan for %s\n\n%s", subject, plan))
}

func candidateLabel(candidate match.Candidate) string {
	summary := []rune(candidate.Event.Summary)
	if len(summary) > candidateLabelLen {
		summary = summary[:candidateLabelLen]
	}
	iso, _ := candidate.Event.StartISO()
	return string(summary) + " — " + displayDate(iso)
}

// displayDate renders the date part of an ISO timestamp, or "unknown"
// for events that carry no start.
func displayDate(iso string) string {
	if iso == "" {
		return "unknown"
	}
	day, _, _ := strings.Cut(iso, "T")
	return day
}

// parseExamDate accepts RFC 3339 timestamps, bare datetimes and plain
// YYYY-MM-DD dates, and pins the result to midnight UTC.
func parseExamDate(text string) (string, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format("2006-01-02") + "T00:00:00Z", true
		}
	}
	return "", false
}

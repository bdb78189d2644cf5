// Package dialog drives the bot's conversation: command handling,
// inline keyboard callbacks and the manual-date fallback. State between
// turns lives in the session store.
package dialog

import "strings"

// Callback data uses a "||"-delimited wire format so note titles can
// contain spaces and punctuation. Titles containing "||" are not
// supported.
const actionDelimiter = "||"

const (
	actionSelectSummaryNote    = "select_summary_note"
	actionSelectPlanNote       = "select_plan_note"
	actionPlanAfterSummaryNote = "plan_after_summary_note"
	actionSelectEvent          = "select_event"

	manualChoice = "manual"
)

// Action is a decoded callback payload.
type Action interface {
	// Name is the action's wire prefix, used for logging and metrics.
	Name() string
}

// SelectSummaryNote asks for a summary of the named note.
type SelectSummaryNote struct{ Title string }

func (SelectSummaryNote) Name() string { return actionSelectSummaryNote }

// Encode renders the callback data.
func (a SelectSummaryNote) Encode() string {
	return actionSelectSummaryNote + actionDelimiter + a.Title
}

// SelectPlanNote asks for a study plan built from the named note.
type SelectPlanNote struct{ Title string }

func (SelectPlanNote) Name() string { return actionSelectPlanNote }

// Encode renders the callback data.
func (a SelectPlanNote) Encode() string {
	return actionSelectPlanNote + actionDelimiter + a.Title
}

// PlanAfterSummaryNote continues from a delivered summary into the plan
// flow for the same note.
type PlanAfterSummaryNote struct{ Title string }

func (PlanAfterSummaryNote) Name() string { return actionPlanAfterSummaryNote }

// Encode renders the callback data.
func (a PlanAfterSummaryNote) Encode() string {
	return actionPlanAfterSummaryNote + actionDelimiter + a.Title
}

// SelectEvent picks a disambiguation candidate. Choice is either a
// decimal index into the stored candidates or "manual".
type SelectEvent struct {
	Choice  string
	Subject string
}

func (SelectEvent) Name() string { return actionSelectEvent }

// Encode renders the callback data.
func (a SelectEvent) Encode() string {
	return actionSelectEvent + actionDelimiter + a.Choice + actionDelimiter + a.Subject
}

// UnknownAction is returned for callback data the bot does not
// recognise, typically from a stale keyboard.
type UnknownAction struct{ Raw string }

func (UnknownAction) Name() string { return "unknown" }

// DecodeAction parses raw callback data into an Action. It never fails;
// unparseable data decodes to UnknownAction.
func DecodeAction(data string) Action {
	switch {
	case strings.HasPrefix(data, actionSelectSummaryNote+actionDelimiter):
		return SelectSummaryNote{Title: data[len(actionSelectSummaryNote)+len(actionDelimiter):]}
	case strings.HasPrefix(data, actionSelectPlanNote+actionDelimiter):
		return SelectPlanNote{Title: data[len(actionSelectPlanNote)+len(actionDelimiter):]}
	case strings.HasPrefix(data, actionPlanAfterSummaryNote+actionDelimiter):
		return PlanAfterSummaryNote{Title: data[len(actionPlanAfterSummaryNote)+len(actionDelimiter):]}
	case strings.HasPrefix(data, actionSelectEvent+actionDelimiter):
		rest := data[len(actionSelectEvent)+len(actionDelimiter):]
		choice, subject, _ := strings.Cut(rest, actionDelimiter)
		return SelectEvent{Choice: choice, Subject: subject}
	default:
		return UnknownAction{Raw: data}
	}
}

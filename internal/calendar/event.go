package calendar

// Event is a read-only snapshot of a calendar entry. Exactly one of
// StartDateTime (timed events) or StartDate (all-day events) is set.
type Event struct {
	ID            string `json:"id"`
	Summary       string `json:"summary"`
	StartDateTime string `json:"start_date_time,omitempty"`
	StartDate     string `json:"start_date,omitempty"`
}

// StartISO returns the event start as an ISO-8601 timestamp. All-day
// dates normalize to midnight UTC. ok is false when the event carries
// no start at all.
func (e Event) StartISO() (string, bool) {
	if e.StartDateTime != "" {
		return e.StartDateTime, true
	}
	if e.StartDate != "" {
		return e.StartDate + "T00:00:00Z", true
	}
	return "", false
}

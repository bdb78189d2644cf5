// Package session persists per-user dialog state between turns. A chat
// turn loads the state, mutates it, and saves it back; there is no
// cross-user state.
package session

import (
	"context"

	"github.com/studykit/study-companion/internal/match"
)

// State is everything the dialog remembers about one user. The zero
// value is a fresh conversation.
type State struct {
	// Subject is the note title the user is working on.
	Subject string `json:"subject,omitempty"`
	// NoteContent is the fetched note body, empty when none was found.
	NoteContent string `json:"note_content,omitempty"`
	// ExamDateISO is the resolved exam date in RFC 3339 form.
	ExamDateISO string `json:"exam_date_iso,omitempty"`
	// Candidates holds the ranked events offered for disambiguation.
	Candidates []match.Candidate `json:"candidates,omitempty"`
	// AwaitingDateFor is set to the subject while the bot waits for the
	// user to type an exam date manually.
	AwaitingDateFor string `json:"awaiting_date_for,omitempty"`
}

// Store loads and saves per-user state. Load returns a fresh empty
// state when the user has none.
type Store interface {
	Load(ctx context.Context, userID int64) (*State, error)
	Save(ctx context.Context, userID int64, state *State) error
}

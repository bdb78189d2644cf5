package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studykit/study-companion/internal/calendar"
)

func TestMatchAcceptsAbbreviatedSubject(t *testing.T) {
	events := []calendar.Event{
		{ID: "e1", Summary: "Database Management Final Exam", StartDate: "2026-09-10"},
	}

	result := Match("DBMS", events)

	require.True(t, result.Found)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "e1", result.Events[0].Event.ID)
	// No token overlap, so the score is the similarity half plus the
	// 0.2 bonuses for "final" and "exam".
	assert.Greater(t, result.Events[0].Score, 0.4)
	assert.Less(t, result.Events[0].Score, 1.0)
}

func TestMatchRejectsUnrelatedEvents(t *testing.T) {
	events := []calendar.Event{
		{ID: "e1", Summary: "Math Midterm", StartDate: "2026-09-10"},
	}

	result := Match("History", events)

	assert.False(t, result.Found)
	require.NotNil(t, result.Events)
	assert.Empty(t, result.Events)
}

func TestMatchDropsEventsWithoutSummary(t *testing.T) {
	events := []calendar.Event{
		{ID: "e1", Summary: ""},
		{ID: "e2", Summary: "   "},
		{ID: "e3", Summary: "History Exam"},
	}

	result := Match("History", events)

	require.True(t, result.Found)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "e3", result.Events[0].Event.ID)
}

func TestMatchRanksByScoreDescending(t *testing.T) {
	events := []calendar.Event{
		{ID: "e1", Summary: "Chemistry review physics"},
		{ID: "e2", Summary: "Physics Final Exam"},
		{ID: "e3", Summary: "Physics quiz"},
	}

	result := Match("Physics", events)

	require.True(t, result.Found)
	require.Len(t, result.Events, 3)
	assert.Equal(t, "e2", result.Events[0].Event.ID)
	assert.Equal(t, "e3", result.Events[1].Event.ID)
	assert.Equal(t, "e1", result.Events[2].Event.ID)
	for i := 1; i < len(result.Events); i++ {
		assert.GreaterOrEqual(t, result.Events[i-1].Score, result.Events[i].Score)
	}
}

func TestMatchKeepsInputOrderOnTies(t *testing.T) {
	events := []calendar.Event{
		{ID: "e1", Summary: "Algebra Exam"},
		{ID: "e2", Summary: "Algebra Exam"},
	}

	result := Match("Algebra", events)

	require.Len(t, result.Events, 2)
	assert.Equal(t, result.Events[0].Score, result.Events[1].Score)
	assert.Equal(t, "e1", result.Events[0].Event.ID)
	assert.Equal(t, "e2", result.Events[1].Event.ID)
}

func TestMatchDeterministic(t *testing.T) {
	events := []calendar.Event{
		{ID: "e1", Summary: "ML bootcamp"},
		{ID: "e2", Summary: "Machine Learning Final"},
		{ID: "e3", Summary: "AI seminar"},
	}

	first := Match("ML & AI", events)
	second := Match("ML & AI", events)
	assert.Equal(t, first, second)
}

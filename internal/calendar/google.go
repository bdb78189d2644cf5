// Package calendar wraps the Google Calendar API behind the small
// read-only surface the bot needs.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/studykit/study-companion/pkg/logging"
)

// Service lists events from a single Google calendar.
type Service struct {
	svc        *gcal.Service
	calendarID string
	logger     *logging.Logger
}

// NewService builds a calendar client from installed-app credentials and
// a previously obtained token file. Missing credentials are fatal: the
// bot has no degraded mode without its calendar.
func NewService(ctx context.Context, credentialsPath, tokenPath, calendarID string, logger *logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	creds, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("calendar: read credentials file: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(creds, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("calendar: parse credentials: %w", err)
	}

	token, err := readToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("calendar: load token (run the OAuth flow first): %w", err)
	}

	httpClient := oauthCfg.Client(ctx, token)
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("calendar: build service: %w", err)
	}

	logger.Info("calendar service ready", "calendar_id", calendarID)
	return &Service{svc: svc, calendarID: calendarID, logger: logger}, nil
}

// ListEvents returns single events between from and to, ordered by start
// time, capped at max results.
func (s *Service) ListEvents(ctx context.Context, from, to time.Time, max int64) ([]Event, error) {
	call := s.svc.Events.List(s.calendarID).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(max).
		Context(ctx)

	result, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}

	events := make([]Event, 0, len(result.Items))
	for _, item := range result.Items {
		evt := Event{ID: item.Id, Summary: item.Summary}
		if item.Start != nil {
			evt.StartDateTime = item.Start.DateTime
			evt.StartDate = item.Start.Date
		}
		events = append(events, evt)
	}
	s.logger.Debug("calendar events fetched", "count", len(events))
	return events, nil
}

// CountUpcoming is the /debug_calendar probe: how many events sit in the
// next window.
func (s *Service) CountUpcoming(ctx context.Context, window time.Duration) (int, error) {
	now := time.Now().UTC()
	events, err := s.ListEvents(ctx, now, now.Add(window), 10)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return token, nil
}

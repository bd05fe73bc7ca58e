package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chxlky/homework-board-sync/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const dateLayout = "2006-01-02"

type CalendarClient struct {
	service    *calendar.Service
	calendarID string
}

// NewCalendarClient authenticates with a service account given as the
// decoded contents of its JSON key file.
func NewCalendarClient(ctx context.Context, serviceAccount map[string]any, calendarID string) (*CalendarClient, error) {
	jsonBytes, err := json.Marshal(serviceAccount)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal service account settings to JSON: %w", err)
	}

	config, err := google.JWTConfigFromJSON(jsonBytes, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials from JSON: %w", err)
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}

	return NewCalendarClientWithService(srv, calendarID), nil
}

func NewCalendarClientWithService(srv *calendar.Service, calendarID string) *CalendarClient {
	return &CalendarClient{service: srv, calendarID: calendarID}
}

func assignmentEvent(a models.LocalAssignment, event *calendar.Event) (*calendar.Event, error) {
	due, err := time.Parse(dateLayout, a.DueDate)
	if err != nil {
		return nil, fmt.Errorf("assignment %q has no usable due date: %w", a.Title, err)
	}
	if event == nil {
		event = &calendar.Event{}
	}

	summary := a.Title
	if a.Subject != "" {
		summary = fmt.Sprintf("[%s] %s", a.Subject, a.Title)
	}
	if a.StudentName != "" {
		summary = a.StudentName + ": " + summary
	}

	event.Summary = summary
	event.Description = a.CanvasURL
	event.Start = &calendar.EventDateTime{Date: due.Format(dateLayout)}
	event.End = &calendar.EventDateTime{Date: due.AddDate(0, 0, 1).Format(dateLayout)} // all-day event ends the next day
	return event, nil
}

func (c *CalendarClient) CreateEvent(ctx context.Context, a models.LocalAssignment) (*calendar.Event, error) {
	event, err := assignmentEvent(a, nil)
	if err != nil {
		return nil, err
	}

	created, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create event in Google Calendar: %w", err)
	}
	return created, nil
}

// UpdateEvent rewrites the event stored on a. An event that no longer exists
// is recreated.
func (c *CalendarClient) UpdateEvent(ctx context.Context, a models.LocalAssignment) (*calendar.Event, error) {
	existing, err := c.service.Events.Get(c.calendarID, a.EventID).Context(ctx).Do()
	if isGone(err) {
		zap.L().Info("Calendar event missing, recreating", zap.String("eventID", a.EventID))
		return c.CreateEvent(ctx, a)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve event from Google Calendar: %w", err)
	}

	event, err := assignmentEvent(a, existing)
	if err != nil {
		return nil, err
	}

	updated, err := c.service.Events.Update(c.calendarID, existing.Id, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to update event in Google Calendar: %w", err)
	}
	return updated, nil
}

func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.service.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if isGone(err) {
		zap.L().Info("Event not found in Google Calendar. Already deleted.", zap.String("eventID", eventID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to delete event from Google Calendar: %w", err)
	}
	return nil
}

// Publish mirrors synced board items onto the calendar: dated items that are
// not done get an event, everything else loses its event. dropped holds items
// removed from the board whose events must go too. The returned slice carries
// the updated event IDs. Failures are logged and leave the item unchanged.
func (c *CalendarClient) Publish(ctx context.Context, items, dropped []models.LocalAssignment) []models.LocalAssignment {
	for _, d := range dropped {
		if d.EventID == "" {
			continue
		}
		if err := c.DeleteEvent(ctx, d.EventID); err != nil {
			zap.L().Error("Error deleting event for dropped assignment", zap.String("title", d.Title), zap.Error(err))
		}
	}

	out := make([]models.LocalAssignment, len(items))
	copy(out, items)
	for i := range out {
		a := &out[i]
		if !a.Synced() {
			continue
		}
		wanted := a.DueDate != "" && a.ColumnID != models.StatusDone

		switch {
		case !wanted && a.EventID != "":
			if err := c.DeleteEvent(ctx, a.EventID); err != nil {
				zap.L().Error("Error deleting calendar event", zap.String("title", a.Title), zap.Error(err))
				continue
			}
			a.EventID = ""
		case wanted && a.EventID == "":
			event, err := c.CreateEvent(ctx, *a)
			if err != nil {
				zap.L().Error("Error creating calendar event", zap.String("title", a.Title), zap.Error(err))
				continue
			}
			a.EventID = event.Id
		case wanted:
			event, err := c.UpdateEvent(ctx, *a)
			if err != nil {
				zap.L().Error("Error updating calendar event", zap.String("title", a.Title), zap.Error(err))
				continue
			}
			a.EventID = event.Id
		}
	}
	return out
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}

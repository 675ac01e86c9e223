// Package schedule stores CSM calendar events and finds free meeting slots.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/renubu/renubu/internal/calendar"
	"github.com/renubu/renubu/internal/config"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/repository"
	"github.com/renubu/renubu/internal/util"
)

var ErrValidation = errors.New("invalid calendar request")

type Service struct {
	events repository.CalendarEventsRepository
	cfg    config.CalendarConfig

	Now func() time.Time
}

func New(eventsRepo repository.CalendarEventsRepository, cfg config.CalendarConfig) *Service {
	return &Service{events: eventsRepo, cfg: cfg, Now: time.Now}
}

type EventInput struct {
	OwnerID  string    `json:"owner_id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*model.CalendarEvent, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner_id is required", ErrValidation)
	}
	if in.StartsAt.IsZero() || !in.EndsAt.After(in.StartsAt) {
		return nil, fmt.Errorf("%w: ends_at must be after starts_at", ErrValidation)
	}
	e := model.CalendarEvent{
		ID:        util.NewID(),
		OwnerID:   in.OwnerID,
		Title:     strings.TrimSpace(in.Title),
		StartsAt:  model.Timestamp(in.StartsAt),
		EndsAt:    model.Timestamp(in.EndsAt),
		CreatedAt: model.Timestamp(s.Now()),
	}
	if err := s.events.Insert(ctx, nil, e); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &e, nil
}

// ListEvents returns the owner's events overlapping [from, to). A zero to means one week after from.
func (s *Service) ListEvents(ctx context.Context, ownerID string, from, to time.Time) ([]model.CalendarEvent, error) {
	if from.IsZero() {
		from = model.DateOf(s.Now())
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 7)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: to must be after from", ErrValidation)
	}
	return s.events.ListOverlapping(ctx, ownerID, from, to)
}

type OpeningInput struct {
	OwnerID         string     `json:"owner_id"`
	After           *time.Time `json:"after"`
	DurationMinutes int        `json:"duration_minutes"`
	BufferMinutes   *int       `json:"buffer_minutes"`
	Count           int        `json:"count"`
}

// NextOpenings finds up to in.Count (default 1, max 10) free slots in the owner's calendar.
func (s *Service) NextOpenings(ctx context.Context, in OpeningInput) ([]calendar.Slot, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner_id is required", ErrValidation)
	}
	if in.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration_minutes must be positive", ErrValidation)
	}
	count := in.Count
	if count <= 0 {
		count = 1
	}
	if count > 10 {
		count = 10
	}

	req := s.request(in)
	from := req.After.Add(-req.Buffer).Add(-24 * time.Hour)
	to := req.After.AddDate(0, 0, req.HorizonDays+1)
	evs, err := s.events.ListOverlapping(ctx, in.OwnerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	busy := make([]calendar.Interval, 0, len(evs))
	for _, e := range evs {
		busy = append(busy, calendar.Interval{Start: e.StartsAt, End: e.EndsAt})
	}
	return calendar.FindOpenings(busy, req, count)
}

func (s *Service) request(in OpeningInput) calendar.Request {
	after := s.Now()
	if in.After != nil && in.After.After(after) {
		after = *in.After
	}
	buffer := s.cfg.BufferMinutes
	if in.BufferMinutes != nil && *in.BufferMinutes >= 0 {
		buffer = *in.BufferMinutes
	}
	days := make([]time.Weekday, 0, len(s.cfg.WorkingDays))
	for _, d := range s.cfg.WorkingDays {
		if d >= 0 && d <= 6 {
			days = append(days, time.Weekday(d))
		}
	}
	return calendar.Request{
		After:       after,
		Duration:    time.Duration(in.DurationMinutes) * time.Minute,
		Buffer:      time.Duration(buffer) * time.Minute,
		StartHour:   s.cfg.WorkStartHour,
		EndHour:     s.cfg.WorkEndHour,
		WorkingDays: days,
		Granularity: time.Duration(s.cfg.GranularityMinutes) * time.Minute,
		HorizonDays: s.cfg.HorizonDays,
		Location:    s.cfg.Location(),
	}
}

// Package calendar searches a busy calendar for free meeting slots.
package calendar

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrNoOpening       = errors.New("no opening within the search horizon")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidHours    = errors.New("invalid working hours")
)

// Interval is a busy span [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Slot is a free span found by the search.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Request describes what kind of opening to look for.
type Request struct {
	After       time.Time
	Duration    time.Duration
	Buffer      time.Duration // kept free on both sides of busy intervals
	StartHour   int           // working day start, local hour
	EndHour     int           // working day end, local hour (exclusive)
	WorkingDays []time.Weekday
	Granularity time.Duration // candidate starts are aligned to this
	HorizonDays int
	Location    *time.Location
}

func (r Request) withDefaults() Request {
	if r.Granularity <= 0 {
		r.Granularity = 15 * time.Minute
	}
	if r.HorizonDays <= 0 {
		r.HorizonDays = 14
	}
	if r.Location == nil {
		r.Location = time.UTC
	}
	if len(r.WorkingDays) == 0 {
		r.WorkingDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	}
	if r.StartHour == 0 && r.EndHour == 0 {
		r.StartHour, r.EndHour = 9, 17
	}
	return r
}

func (r Request) validate() error {
	if r.Duration <= 0 {
		return ErrInvalidDuration
	}
	if r.StartHour < 0 || r.EndHour > 24 || r.StartHour >= r.EndHour {
		return ErrInvalidHours
	}
	if r.Duration > time.Duration(r.EndHour-r.StartHour)*time.Hour {
		return ErrNoOpening
	}
	return nil
}

// FindNextOpening returns the earliest slot after req.After that fits inside
// working hours and does not overlap any padded busy interval.
func FindNextOpening(busy []Interval, req Request) (Slot, error) {
	slots, err := FindOpenings(busy, req, 1)
	if err != nil {
		return Slot{}, err
	}
	return slots[0], nil
}

// FindOpenings returns up to n non-overlapping slots in chronological order.
func FindOpenings(busy []Interval, req Request, n int) ([]Slot, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 1
	}

	padded := normalize(busy, req.Buffer)
	working := make(map[time.Weekday]bool, len(req.WorkingDays))
	for _, d := range req.WorkingDays {
		working[d] = true
	}

	after := req.After.In(req.Location)
	limit := startOfDay(after, req.Location).AddDate(0, 0, req.HorizonDays)

	var out []Slot
	cand := alignUp(after, req.Granularity)
	for len(out) < n {
		day := startOfDay(cand, req.Location)
		if !day.Before(limit) {
			break
		}
		dayStart := wallClock(day, req.StartHour, 0, req.Location)
		dayEnd := wallClock(day, req.EndHour, 0, req.Location)

		if !working[day.Weekday()] || !cand.Before(dayEnd) {
			cand = nextDayStart(day, req)
			continue
		}
		if cand.Before(dayStart) {
			cand = dayStart
		}

		end := cand.Add(req.Duration)
		if end.After(dayEnd) {
			cand = nextDayStart(day, req)
			continue
		}

		if blocker, ok := firstConflict(padded, cand, end); ok {
			cand = alignUp(blocker.End.In(req.Location), req.Granularity)
			continue
		}

		out = append(out, Slot{Start: cand, End: end})
		cand = alignUp(end, req.Granularity)
	}

	if len(out) == 0 {
		return nil, ErrNoOpening
	}
	return out, nil
}

// normalize pads intervals with buffer, drops empty ones, sorts and merges overlaps.
func normalize(busy []Interval, buffer time.Duration) []Interval {
	out := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if !b.End.After(b.Start) {
			continue
		}
		out = append(out, Interval{Start: b.Start.Add(-buffer), End: b.End.Add(buffer)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })

	merged := out[:0]
	for _, iv := range out {
		if len(merged) > 0 && !iv.Start.After(merged[len(merged)-1].End) {
			if iv.End.After(merged[len(merged)-1].End) {
				merged[len(merged)-1].End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

func firstConflict(busy []Interval, start, end time.Time) (Interval, bool) {
	for _, b := range busy {
		if !b.Start.Before(end) {
			return Interval{}, false
		}
		if b.End.After(start) {
			return b, true
		}
	}
	return Interval{}, false
}

func nextDayStart(day time.Time, req Request) time.Time {
	return wallClock(day.AddDate(0, 0, 1), req.StartHour, 0, req.Location)
}

// wallClock returns hour:00 plus sec seconds on day's local date. Hours are
// read off the wall clock so DST transitions do not shift working hours.
func wallClock(day time.Time, hour, sec int, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, hour, 0, sec, 0, loc)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// alignUp rounds t up to the next multiple of g on the local wall clock.
func alignUp(t time.Time, g time.Duration) time.Time {
	if t.Nanosecond() != 0 {
		t = t.Truncate(time.Second).Add(time.Second)
	}
	off := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
	rem := off % g
	if rem == 0 {
		return t
	}
	off += g - rem
	return wallClock(t, 0, int(off/time.Second), t.Location())
}

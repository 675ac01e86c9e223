package calendar

import (
	"errors"
	"testing"
	"time"
)

// 2026-10-19 is a Monday.
func at(day, hour, min int) time.Time {
	return time.Date(2026, 10, day, hour, min, 0, 0, time.UTC)
}

func baseReq(after time.Time, d time.Duration) Request {
	return Request{After: after, Duration: d, StartHour: 9, EndHour: 17}
}

func TestFindNextOpening(t *testing.T) {
	cases := []struct {
		name  string
		busy  []Interval
		req   Request
		start time.Time
	}{
		{
			name:  "empty calendar before hours",
			req:   baseReq(at(19, 8, 10), 30*time.Minute),
			start: at(19, 9, 0),
		},
		{
			name:  "rounds up to granularity",
			req:   baseReq(at(19, 10, 7), 30*time.Minute),
			start: at(19, 10, 15),
		},
		{
			name: "back to back meetings",
			busy: []Interval{
				{at(19, 9, 0), at(19, 10, 0)},
				{at(19, 10, 0), at(19, 11, 0)},
			},
			req:   baseReq(at(19, 8, 0), 30*time.Minute),
			start: at(19, 11, 0),
		},
		{
			name: "gap too small",
			busy: []Interval{
				{at(19, 9, 0), at(19, 10, 0)},
				{at(19, 10, 20), at(19, 12, 0)},
			},
			req:   baseReq(at(19, 8, 0), 30*time.Minute),
			start: at(19, 12, 0),
		},
		{
			name: "buffer pads meetings",
			busy: []Interval{{at(19, 9, 0), at(19, 10, 0)}},
			req: func() Request {
				r := baseReq(at(19, 8, 0), 30*time.Minute)
				r.Buffer = 15 * time.Minute
				return r
			}(),
			start: at(19, 10, 15),
		},
		{
			name:  "rolls over the weekend",
			req:   baseReq(at(23, 16, 45), 30*time.Minute),
			start: at(26, 9, 0),
		},
		{
			name:  "unsorted and overlapping busy intervals",
			busy:  []Interval{{at(19, 9, 30), at(19, 11, 0)}, {at(19, 9, 0), at(19, 10, 0)}},
			req:   baseReq(at(19, 9, 0), time.Hour),
			start: at(19, 11, 0),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot, err := FindNextOpening(tc.busy, tc.req)
			if err != nil {
				t.Fatalf("FindNextOpening: %v", err)
			}
			if !slot.Start.Equal(tc.start) {
				t.Errorf("start = %s, want %s", slot.Start, tc.start)
			}
			if got := slot.End.Sub(slot.Start); got != tc.req.Duration {
				t.Errorf("slot length = %s, want %s", got, tc.req.Duration)
			}
		})
	}
}

func TestFindNextOpeningHorizonExhausted(t *testing.T) {
	busy := []Interval{{at(19, 0, 0), at(19, 0, 0).AddDate(0, 0, 30)}}
	req := baseReq(at(19, 8, 0), 30*time.Minute)
	req.HorizonDays = 3

	if _, err := FindNextOpening(busy, req); !errors.Is(err, ErrNoOpening) {
		t.Fatalf("err = %v, want ErrNoOpening", err)
	}
}

func TestFindNextOpeningValidation(t *testing.T) {
	if _, err := FindNextOpening(nil, baseReq(at(19, 8, 0), 0)); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("zero duration err = %v", err)
	}

	req := baseReq(at(19, 8, 0), 30*time.Minute)
	req.StartHour, req.EndHour = 18, 9
	if _, err := FindNextOpening(nil, req); !errors.Is(err, ErrInvalidHours) {
		t.Errorf("inverted hours err = %v", err)
	}

	if _, err := FindNextOpening(nil, baseReq(at(19, 8, 0), 9*time.Hour)); !errors.Is(err, ErrNoOpening) {
		t.Errorf("longer than a work day err = %v", err)
	}
}

func TestFindOpeningsReturnsConsecutiveSlots(t *testing.T) {
	slots, err := FindOpenings(nil, baseReq(at(19, 9, 0), time.Hour), 3)
	if err != nil {
		t.Fatalf("FindOpenings: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots", len(slots))
	}
	for i, want := range []time.Time{at(19, 9, 0), at(19, 10, 0), at(19, 11, 0)} {
		if !slots[i].Start.Equal(want) {
			t.Errorf("slot %d start = %s, want %s", i, slots[i].Start, want)
		}
	}
}

func TestFindNextOpeningRespectsLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	req := baseReq(at(19, 12, 0), 30*time.Minute) // 07:00 local
	req.Location = est

	slot, err := FindNextOpening(nil, req)
	if err != nil {
		t.Fatalf("FindNextOpening: %v", err)
	}
	if want := at(19, 14, 0); !slot.Start.Equal(want) {
		t.Errorf("start = %s, want %s (09:00 EST)", slot.Start.UTC(), want)
	}
}

func TestFindNextOpeningAcrossDSTChanges(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	everyDay := []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
	}

	cases := []struct {
		name  string
		after time.Time
		dur   time.Duration
		want  time.Time
	}{
		{"spring forward day start", time.Date(2026, 3, 8, 0, 0, 0, 0, ny), 30 * time.Minute, time.Date(2026, 3, 8, 9, 0, 0, 0, ny)},
		{"spring forward day end", time.Date(2026, 3, 8, 16, 15, 0, 0, ny), time.Hour, time.Date(2026, 3, 9, 9, 0, 0, 0, ny)},
		{"fall back day start", time.Date(2026, 11, 1, 0, 0, 0, 0, ny), 30 * time.Minute, time.Date(2026, 11, 1, 9, 0, 0, 0, ny)},
		{"fall back day end", time.Date(2026, 11, 1, 16, 15, 0, 0, ny), time.Hour, time.Date(2026, 11, 2, 9, 0, 0, 0, ny)},
		{"alignment after the change", time.Date(2026, 3, 8, 10, 7, 0, 0, ny), 30 * time.Minute, time.Date(2026, 3, 8, 10, 15, 0, 0, ny)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseReq(tc.after, tc.dur)
			req.Location = ny
			req.WorkingDays = everyDay

			slot, err := FindNextOpening(nil, req)
			if err != nil {
				t.Fatalf("FindNextOpening: %v", err)
			}
			if !slot.Start.Equal(tc.want) {
				t.Errorf("start = %s, want %s", slot.Start, tc.want)
			}
			if local := slot.End.In(ny); local.Hour() > 17 || (local.Hour() == 17 && local.Minute() > 0) {
				t.Errorf("slot ends after 17:00 local: %s", local)
			}
		})
	}
}

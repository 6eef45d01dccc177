// Package calendar lays out booked time blocks on a Monday-first week grid.
//
// Everything here is a pure function of its inputs. The only state a caller
// keeps is a Cursor, the reference date of the visible week.
package calendar

import (
	"fmt"
	"time"
)

const (
	DateLayout    = "2006-01-02"
	DaysPerWeek   = 7
	HoursPerDay   = 24
	MinutesPerDay = HoursPerDay * 60
)

// Day is one column of the visible week.
type Day struct {
	Date    time.Time `json:"date"`
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	IsToday bool      `json:"is_today"`
}

// StartOfWeek returns Monday 00:00 of the week containing t, in t's location.
func StartOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// AddDays moves t by n calendar days, keeping the wall-clock time across DST
// changes.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func DayLabel(t time.Time) string {
	return t.Format("Mon, Jan 02")
}

// VisibleWeek returns the seven days starting at StartOfWeek(cursor).
func VisibleWeek(cursor time.Time) []Day {
	return VisibleWeekAt(cursor, time.Time{})
}

// VisibleWeekAt is VisibleWeek with the day matching now flagged as today.
func VisibleWeekAt(cursor, now time.Time) []Day {
	start := StartOfWeek(cursor)
	todayKey := ""
	if !now.IsZero() {
		todayKey = DateKey(now.In(cursor.Location()))
	}
	days := make([]Day, 0, DaysPerWeek)
	for i := 0; i < DaysPerWeek; i++ {
		date := AddDays(start, i)
		key := DateKey(date)
		days = append(days, Day{
			Date:    date,
			Key:     key,
			Label:   DayLabel(date),
			IsToday: key == todayKey,
		})
	}
	return days
}

// WeekLabel renders the visible range, e.g. "Jun 10 – Jun 16".
func WeekLabel(start time.Time) string {
	end := AddDays(start, DaysPerWeek-1)
	return fmt.Sprintf("%s – %s", start.Format("Jan 02"), end.Format("Jan 02"))
}

// HourGrid returns the 24 hour markers of the vertical axis.
func HourGrid() []string {
	hours := make([]string, HoursPerDay)
	for h := range hours {
		hours[h] = fmt.Sprintf("%02d:00", h)
	}
	return hours
}

// Cursor is the reference date of the visible week. Moving it never touches
// the network; the full booking set is expected to be in memory already.
type Cursor struct {
	Date time.Time
}

func NewCursor(anchor time.Time) Cursor {
	return Cursor{Date: anchor}
}

func (c Cursor) PrevWeek() Cursor { return Cursor{Date: AddDays(c.Date, -DaysPerWeek)} }

func (c Cursor) NextWeek() Cursor { return Cursor{Date: AddDays(c.Date, DaysPerWeek)} }

func (c Cursor) Today(now time.Time) Cursor { return Cursor{Date: now} }

func (c Cursor) WeekStart() time.Time { return StartOfWeek(c.Date) }

func (c Cursor) Days(now time.Time) []Day { return VisibleWeekAt(c.Date, now) }

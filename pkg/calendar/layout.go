package calendar

import (
	"sort"
	"time"

	"github.com/go-go-golems/roombot/pkg/chat"
)

// Block is a booking placed within its day column.
type Block struct {
	Booking  chat.RoomBooking `json:"booking"`
	Geometry Geometry         `json:"geometry"`
	Box      Box              `json:"box"`
	Label    string           `json:"label"`
}

type Column struct {
	Day    Day     `json:"day"`
	Blocks []Block `json:"blocks"`
}

// WeekLayout is everything needed to draw one week.
type WeekLayout struct {
	Start       time.Time `json:"start"`
	Label       string    `json:"label"`
	Hours       []string  `json:"hours"`
	UnitPerHour float64   `json:"unit_per_hour"`
	Columns     []Column  `json:"columns"`
	// Excluded counts bookings outside the visible week or with an unusable date.
	Excluded int `json:"excluded"`
}

// GroupByDay partitions bookings into the buckets of days, keyed by date.
// Bookings whose date falls outside days are dropped and counted.
func GroupByDay(days []Day, bookings []chat.RoomBooking) (map[string][]chat.RoomBooking, int) {
	buckets := make(map[string][]chat.RoomBooking, len(days))
	for _, d := range days {
		buckets[d.Key] = nil
	}
	excluded := 0
	for _, b := range bookings {
		key, ok := NormalizeDate(b.Date)
		if !ok {
			excluded++
			continue
		}
		if _, visible := buckets[key]; !visible {
			excluded++
			continue
		}
		buckets[key] = append(buckets[key], b)
	}
	return buckets, excluded
}

// Layout computes the grid for the week containing cursor. Blocks keep the
// input order within a column; overlapping blocks share the same horizontal
// bounds.
func Layout(cursor, now time.Time, bookings []chat.RoomBooking, unitPerHour float64) WeekLayout {
	if unitPerHour <= 0 {
		unitPerHour = UnitsPerHour
	}
	days := VisibleWeekAt(cursor, now)
	buckets, excluded := GroupByDay(days, bookings)

	wl := WeekLayout{
		Start:       days[0].Date,
		Label:       WeekLabel(days[0].Date),
		Hours:       HourGrid(),
		UnitPerHour: unitPerHour,
		Columns:     make([]Column, 0, len(days)),
		Excluded:    excluded,
	}
	for _, d := range days {
		col := Column{Day: d}
		for _, b := range buckets[d.Key] {
			g := BookingGeometry(b, unitPerHour)
			col.Blocks = append(col.Blocks, Block{
				Booking:  b,
				Geometry: g,
				Box:      g.Box(),
				Label:    TimeRangeLabel(b),
			})
		}
		wl.Columns = append(wl.Columns, col)
	}
	return wl
}

// GridHeight is the total column height in layout units.
func (wl WeekLayout) GridHeight() float64 {
	return wl.UnitPerHour * HoursPerDay
}

func (wl WeekLayout) BlockCount() int {
	n := 0
	for _, c := range wl.Columns {
		n += len(c.Blocks)
	}
	return n
}

func TimeRangeLabel(b chat.RoomBooking) string {
	return b.StartTime + "–" + b.EndTime
}

// DateGroup is one date of a bookings summary.
type DateGroup struct {
	Date     string             `json:"date"`
	Label    string             `json:"label"`
	Bookings []chat.RoomBooking `json:"bookings"`
}

// SummarizeByDate groups bookings by date in ascending order, each day sorted
// by start time. Unparseable dates are grouped under their raw value.
func SummarizeByDate(bookings []chat.RoomBooking) []DateGroup {
	idx := map[string]int{}
	var groups []DateGroup
	for _, b := range bookings {
		key, ok := NormalizeDate(b.Date)
		if !ok {
			key = b.Date
		}
		i, seen := idx[key]
		if !seen {
			label := key
			if t, err := time.Parse(DateLayout, key); err == nil {
				label = DayLabel(t)
			}
			groups = append(groups, DateGroup{Date: key, Label: label})
			i = len(groups) - 1
			idx[key] = i
		}
		groups[i].Bookings = append(groups[i].Bookings, b)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Date < groups[j].Date })
	for i := range groups {
		list := groups[i].Bookings
		sort.SliceStable(list, func(a, b int) bool { return list[a].StartTime < list[b].StartTime })
	}
	return groups
}

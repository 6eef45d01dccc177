package calendar

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/roombot/pkg/chat"
)

const (
	// UnitsPerHour is the height of one hour row.
	UnitsPerHour = 48
	// MinBlockHeight keeps zero-length and inverted bookings visible.
	MinBlockHeight = 16

	blockInsetTop    = 6
	blockInsetBottom = 8
)

// Geometry is the vertical placement of a booking block within a day column.
type Geometry struct {
	StartMinutes int     `json:"start_minutes"`
	EndMinutes   int     `json:"end_minutes"`
	Top          float64 `json:"top"`
	Height       float64 `json:"height"`
}

// Box is the rectangle actually drawn for a block.
type Box struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Inset returns the drawn box, shrunk so neighbouring blocks do not touch.
func (g Geometry) Inset() (top, height float64) {
	return g.Top + blockInsetTop, math.Max(0, g.Height-blockInsetBottom)
}

func (g Geometry) Box() Box {
	top, height := g.Inset()
	return Box{Top: top, Height: height}
}

// BookingGeometry places a booking on a 24 hour column. Both endpoints are
// clamped to [0, 1440]; unparseable times count as midnight. The height never
// drops below MinBlockHeight. unitPerHour <= 0 selects UnitsPerHour.
func BookingGeometry(b chat.RoomBooking, unitPerHour float64) Geometry {
	if unitPerHour <= 0 {
		unitPerHour = UnitsPerHour
	}
	start := minutesOrZero(b.BookingID, "start", b.StartTime)
	end := minutesOrZero(b.BookingID, "end", b.EndTime)
	start = clamp(start, 0, MinutesPerDay)
	end = clamp(end, 0, MinutesPerDay)

	return Geometry{
		StartMinutes: start,
		EndMinutes:   end,
		Top:          float64(start) / 60 * unitPerHour,
		Height:       math.Max(MinBlockHeight, float64(end-start)/60*unitPerHour),
	}
}

func minutesOrZero(bookingID, which, s string) int {
	m, ok := ParseMinutes(s)
	if !ok {
		log.Debug().Str("booking_id", bookingID).Str(which, s).Msg("unparseable booking time")
		return 0
	}
	return m
}

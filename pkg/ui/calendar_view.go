package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/roombot/pkg/calendar"
)

const (
	minColumnWidth = 12
	hourColumn     = 6
)

// ColumnWidth picks a day column width that fits seven columns and the hour
// axis into total.
func ColumnWidth(total int) int {
	w := (total - hourColumn) / calendar.DaysPerWeek
	if w < minColumnWidth {
		return minColumnWidth
	}
	return w
}

// BlockRows maps a drawn block box onto hour rows: first row and one past the
// last.
func BlockRows(box calendar.Box, unitPerHour float64) (int, int) {
	if unitPerHour <= 0 {
		unitPerHour = calendar.UnitsPerHour
	}
	first := int(math.Floor(box.Top / unitPerHour))
	end := int(math.Ceil((box.Top + box.Height) / unitPerHour))
	if first >= calendar.HoursPerDay {
		first = calendar.HoursPerDay - 1
	}
	if end <= first {
		end = first + 1
	}
	if end > calendar.HoursPerDay {
		end = calendar.HoursPerDay
	}
	return first, end
}

// RenderWeek draws a week layout with one text row per hour. The first row of
// each block carries its time range.
func RenderWeek(wl calendar.WeekLayout, colWidth int) string {
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}
	cell := lipgloss.NewStyle().Width(colWidth).MaxWidth(colWidth)

	grid := make([][]string, len(wl.Columns))
	for c, col := range wl.Columns {
		rows := make([]string, calendar.HoursPerDay)
		for _, blk := range col.Blocks {
			first, end := BlockRows(blk.Box, wl.UnitPerHour)
			for r := first; r < end; r++ {
				if rows[r] != "" && r != first {
					continue
				}
				if r == first {
					rows[r] = blk.Label
				} else {
					rows[r] = "│"
				}
			}
		}
		grid[c] = rows
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(wl.Label))
	b.WriteString("\n")

	b.WriteString(strings.Repeat(" ", hourColumn))
	for _, col := range wl.Columns {
		style := dayStyle
		if col.Day.IsToday {
			style = todayStyle
		}
		b.WriteString(cell.Render(style.Render(col.Day.Label)))
	}

	for h, hour := range wl.Hours {
		b.WriteString("\n")
		b.WriteString(hourStyle.Render(fmt.Sprintf("%-*s", hourColumn, hour)))
		for c := range wl.Columns {
			text := grid[c][h]
			if text == "" {
				b.WriteString(cell.Render(emptyCellChar))
				continue
			}
			b.WriteString(cell.Render(blockStyle.Render(text)))
		}
	}

	if wl.Excluded > 0 {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(plural(wl.Excluded, "booking", "bookings") + " outside this week"))
	}
	return b.String()
}

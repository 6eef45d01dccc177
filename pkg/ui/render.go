package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/roombot/pkg/calendar"
	"github.com/go-go-golems/roombot/pkg/chat"
)

// MessageRenderer formats transcript entries. Assistant text goes through
// glamour when a renderer could be built; otherwise it is printed as is.
type MessageRenderer struct {
	style string
	width int
	md    *glamour.TermRenderer
}

// NewMessageRenderer builds a renderer for the given glamour style name
// ("dark", "light", "notty", ...). An empty style disables markdown.
func NewMessageRenderer(style string, width int) *MessageRenderer {
	r := &MessageRenderer{style: style}
	r.Resize(width)
	return r
}

// Resize rebuilds the markdown renderer for a new wrap width.
func (r *MessageRenderer) Resize(width int) {
	if width <= 0 {
		width = 80
	}
	if r.width == width && (r.md != nil || r.style == "") {
		return
	}
	r.width = width
	r.md = nil
	if r.style == "" {
		return
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Warn().Err(errors.WithStack(err)).Str("style", r.style).Msg("markdown renderer unavailable, using plain text")
		return
	}
	r.md = md
}

func (r *MessageRenderer) markdown(text string) string {
	if r == nil || r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		log.Debug().Err(err).Msg("markdown render failed")
		return text
	}
	return strings.Trim(out, "\n")
}

// Render formats one message with its role label and a summary of any
// structured payload.
func (r *MessageRenderer) Render(m chat.Message) string {
	var b strings.Builder
	switch m.Role {
	case chat.RoleUser:
		b.WriteString(userLabelStyle.Render("You"))
		b.WriteString("\n")
		b.WriteString(m.Text)
	default:
		b.WriteString(assistantLabelStyle.Render("Assistant"))
		b.WriteString("\n")
		if strings.HasPrefix(m.Text, chat.ServerErrorPrefix) {
			b.WriteString(errorStyle.Render(m.Text))
		} else {
			b.WriteString(r.markdown(m.Text))
		}
	}
	if s := PayloadSummary(m.Payload); s != "" {
		b.WriteString("\n")
		b.WriteString(payloadStyle.Render(s))
	}
	return b.String()
}

func (r *MessageRenderer) Transcript(msgs []chat.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, r.Render(m))
	}
	return strings.Join(parts, "\n\n")
}

// PayloadSummary is a one-line description of a structured result, or "".
func PayloadSummary(p *chat.StructuredResult) string {
	if p == nil {
		return ""
	}
	var parts []string
	if p.BookingID != nil && *p.BookingID != "" {
		parts = append(parts, "booking "+*p.BookingID)
	}
	if p.HasRoomOptions() {
		parts = append(parts, plural(len(p.RoomOptions), "room option", "room options"))
	}
	if p.HasRoomBookings() {
		parts = append(parts, plural(len(p.RoomBookings), "booking", "bookings"))
	}
	return strings.Join(parts, " · ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// RoomLine describes a room option on one line.
func RoomLine(o chat.RoomOption) string {
	name := o.RoomName
	if name == "" {
		name = o.RoomID
	}
	var where []string
	if o.Building != "" {
		where = append(where, o.Building)
	}
	if o.Floor != 0 {
		where = append(where, fmt.Sprintf("floor %d", o.Floor))
	}
	line := name
	if len(where) > 0 {
		line += " (" + strings.Join(where, ", ") + ")"
	}
	if o.Capacity > 0 {
		line += fmt.Sprintf(" · %d seats", o.Capacity)
	}
	if f := RoomFeatures(o); len(f) > 0 {
		line += " · " + strings.Join(f, ", ")
	}
	return line
}

func RoomFeatures(o chat.RoomOption) []string {
	var f []string
	add := func(ok bool, name string) {
		if ok {
			f = append(f, name)
		}
	}
	add(o.HasConferenceCall, "conference call")
	add(o.HasVideo, "video")
	add(o.HasAudio, "audio")
	add(o.HasDisplay, "display")
	add(o.HasWhiteboard, "whiteboard")
	add(o.IsAccessible, "accessible")
	return f
}

// RenderRoomOptions lists rooms, marking the one under the cursor when focused.
func RenderRoomOptions(opts []chat.RoomOption, cursor int, focused bool) string {
	if len(opts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(subHeaderStyle.Render("Room options (tab to select, enter to view calendar)"))
	for i, o := range opts {
		b.WriteString("\n")
		prefix := "  "
		line := RoomLine(o)
		if focused && i == cursor {
			prefix = "> "
			line = roomCursorStyle.Render(line)
		}
		b.WriteString(prefix + line)
	}
	return b.String()
}

// RenderBookingsSummary lists bookings grouped by date.
func RenderBookingsSummary(bookings []chat.RoomBooking) string {
	groups := calendar.SummarizeByDate(bookings)
	if len(groups) == 0 {
		return "No bookings."
	}
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(dayStyle.Render(g.Label))
		for _, bk := range g.Bookings {
			b.WriteString("\n  ")
			b.WriteString(calendar.TimeRangeLabel(bk))
			if bk.BookingID != "" {
				b.WriteString("  #" + bk.BookingID)
			}
		}
	}
	return b.String()
}

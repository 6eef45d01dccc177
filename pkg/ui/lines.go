package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/go-go-golems/roombot/pkg/calendar"
	"github.com/go-go-golems/roombot/pkg/chat"
)

// LineSession runs the conversation over plain line I/O, for pipes and dumb
// terminals. Lines starting with "/" are commands: /bookings, /calendar
// [next|prev|today], /quit.
type LineSession struct {
	Session  SessionView
	Conv     Conversation
	Renderer *MessageRenderer
	Now      func() time.Time

	cursor calendar.Cursor
	seen   int
}

func (l *LineSession) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Run reads queries from in until EOF, /quit or ctx is done.
func (l *LineSession) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if l.Renderer == nil {
		l.Renderer = NewMessageRenderer("", 80)
	}
	l.cursor = calendar.NewCursor(l.now())
	l.flush(out)

	if st := l.Session.State(); st.Banner() != "" {
		fmt.Fprintln(out, st.Banner())
	}

	sc := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return errors.Wrap(sc.Err(), "read input")
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := l.command(out, line); quit {
				return nil
			}
			continue
		}

		l.Conv.UpdateDraft(line)
		done, ok := l.Conv.SendAsync(ctx)
		if !ok {
			if banner := l.Session.State().Banner(); banner != "" {
				fmt.Fprintln(out, banner)
			} else {
				fmt.Fprintln(out, "Message not sent.")
			}
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		l.flush(out)
	}
}

func (l *LineSession) command(out io.Writer, line string) bool {
	fields := strings.Fields(line)
	msgs := l.Conv.Snapshot().Messages
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/bookings":
		fmt.Fprintln(out, RenderBookingsSummary(chat.LatestBookings(msgs)))
	case "/calendar":
		if len(fields) > 1 {
			switch fields[1] {
			case "next":
				l.cursor = l.cursor.NextWeek()
			case "prev":
				l.cursor = l.cursor.PrevWeek()
			case "today":
				l.cursor = l.cursor.Today(l.now())
			}
		}
		wl := calendar.Layout(l.cursor.Date, l.now(), chat.LatestBookings(msgs), calendar.UnitsPerHour)
		fmt.Fprintln(out, RenderWeek(wl, minColumnWidth))
	default:
		fmt.Fprintf(out, "unknown command %s (try /bookings, /calendar [next|prev|today], /quit)\n", fields[0])
	}
	return false
}

// flush prints messages appended since the last flush.
func (l *LineSession) flush(out io.Writer) {
	msgs := l.Conv.Snapshot().Messages
	for _, m := range msgs[l.seen:] {
		fmt.Fprintln(out, l.Renderer.Render(m))
		if m.Payload.HasRoomOptions() {
			for _, o := range m.Payload.RoomOptions {
				fmt.Fprintln(out, "  - "+RoomLine(o))
			}
		}
		fmt.Fprintln(out)
	}
	l.seen = len(msgs)
}

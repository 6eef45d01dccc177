// Package ui is the terminal front end: a Bubble Tea chat application with a
// room picker and a week calendar panel, plus a line-based fallback.
package ui

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/roombot/pkg/calendar"
	"github.com/go-go-golems/roombot/pkg/chat"
	"github.com/go-go-golems/roombot/pkg/events"
	"github.com/go-go-golems/roombot/pkg/session"
)

// SessionView is the read side of the session controller.
type SessionView interface {
	State() session.State
}

// Conversation is the part of the chat orchestrator the UI drives.
type Conversation interface {
	Snapshot() chat.ConversationState
	UpdateDraft(text string)
	SendAsync(ctx context.Context) (<-chan struct{}, bool)
}

type focusArea int

const (
	focusComposer focusArea = iota
	focusRooms
	focusCalendar
)

type eventMsg events.Event

type updatesClosedMsg struct{}

type sendFinishedMsg struct{}

type Model struct {
	ctx     context.Context
	session SessionView
	conv    Conversation
	updates <-chan events.Event
	now     func() time.Time
	copyFn  func(string) error

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *MessageRenderer

	conversation chat.ConversationState
	sessionState session.State

	focus        focusArea
	roomCursor   int
	selectedRoom string
	cursor       calendar.Cursor
	flash        string

	width  int
	height int
}

type ModelOption func(*Model)

func WithClock(now func() time.Time) ModelOption {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithClipboard replaces the system clipboard writer used by ctrl+y.
func WithClipboard(f func(string) error) ModelOption {
	return func(m *Model) {
		if f != nil {
			m.copyFn = f
		}
	}
}

func WithRenderer(r *MessageRenderer) ModelOption {
	return func(m *Model) {
		if r != nil {
			m.renderer = r
		}
	}
}

// NewModel wires the UI to a session and a conversation. updates delivers
// change notifications; a nil channel means the UI only refreshes after its
// own actions.
func NewModel(ctx context.Context, sess SessionView, conv Conversation, updates <-chan events.Event, opts ...ModelOption) Model {
	ta := textarea.New()
	ta.Placeholder = "Describe your meeting…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	m := Model{
		ctx:      ctx,
		session:  sess,
		conv:     conv,
		updates:  updates,
		now:      time.Now,
		copyFn:   clipboard.WriteAll,
		textarea: ta,
		viewport: viewport.New(80, 12),
		spinner:  sp,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.renderer == nil {
		m.renderer = NewMessageRenderer("dark", 80)
	}
	m.cursor = calendar.NewCursor(m.now())
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, waitForEvent(m.updates))
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return eventMsg(e)
	}
}

func waitForSend(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return sendFinishedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = ev.Width, ev.Height
		m.resize()
		return m, nil

	case eventMsg:
		log.Trace().Str("kind", string(ev.Kind)).Msg("ui: state changed")
		m.refresh()
		return m, waitForEvent(m.updates)

	case updatesClosedMsg:
		return m, nil

	case sendFinishedMsg:
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(ev)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+y":
		m.copyLatestBookingID()
		return m, nil
	}

	switch m.focus {
	case focusCalendar:
		switch k.String() {
		case "esc", "q":
			m.CloseCalendar()
		case "left", "h":
			m.cursor = m.cursor.PrevWeek()
		case "right", "l":
			m.cursor = m.cursor.NextWeek()
		case "t":
			m.cursor = m.cursor.Today(m.now())
		}
		return m, nil

	case focusRooms:
		rooms := m.rooms()
		switch k.String() {
		case "esc", "tab":
			m.setFocus(focusComposer)
		case "up", "k":
			if m.roomCursor > 0 {
				m.roomCursor--
			}
		case "down", "j":
			if m.roomCursor < len(rooms)-1 {
				m.roomCursor++
			}
		case "enter":
			if m.roomCursor < len(rooms) {
				m.SelectRoom(rooms[m.roomCursor].RoomID)
			}
		}
		return m, nil
	}

	switch k.String() {
	case "tab":
		if len(m.rooms()) > 0 {
			m.setFocus(focusRooms)
		}
		return m, nil
	case "enter":
		return m.submit()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(k)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(k)
	if v := m.textarea.Value(); v != m.conversation.Draft {
		m.conv.UpdateDraft(v)
		m.conversation.Draft = v
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	m.conv.UpdateDraft(m.textarea.Value())
	done, ok := m.conv.SendAsync(m.ctx)
	if !ok {
		switch {
		case strings.TrimSpace(m.textarea.Value()) == "":
		case !m.sessionState.IsReady:
			m.flash = "Waiting for a session…"
		default:
			m.flash = "Still waiting for the previous reply…"
		}
		return m, nil
	}
	m.flash = ""
	m.textarea.Reset()
	m.refresh()
	return m, tea.Batch(waitForSend(done), m.spinner.Tick)
}

// SelectRoom opens the calendar panel for roomID on the current week.
func (m *Model) SelectRoom(roomID string) {
	m.selectedRoom = roomID
	m.cursor = calendar.NewCursor(m.now())
	m.setFocus(focusCalendar)
}

func (m *Model) CloseCalendar() {
	m.selectedRoom = ""
	m.setFocus(focusComposer)
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusComposer {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
}

func (m *Model) copyLatestBookingID() {
	id, ok := chat.LatestBookingID(m.conversation.Messages)
	if !ok {
		m.flash = "No booking id yet"
		return
	}
	if err := m.copyFn(id); err != nil {
		log.Warn().Err(err).Msg("clipboard write failed")
		m.flash = "Could not copy booking id"
		return
	}
	m.flash = "Copied booking id " + id
}

func (m *Model) rooms() []chat.RoomOption {
	return chat.LatestRoomOptions(m.conversation.Messages)
}

// refresh re-reads both snapshots and redraws the transcript.
func (m *Model) refresh() {
	m.sessionState = m.session.State()
	m.conversation = m.conv.Snapshot()
	if n := len(m.rooms()); m.roomCursor >= n {
		m.roomCursor = max(0, n-1)
	}
	if m.focus == focusRooms && len(m.rooms()) == 0 {
		m.setFocus(focusComposer)
	}
	m.viewport.SetContent(m.renderer.Transcript(m.conversation.Messages))
	m.viewport.GotoBottom()
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.textarea.SetWidth(m.width - 2)
	m.renderer.Resize(m.width - 4)
	reserved := 1 + 2 + m.textarea.Height() + 2
	if rooms := RenderRoomOptions(m.rooms(), m.roomCursor, false); rooms != "" {
		reserved += lipgloss.Height(rooms) + 2
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(3, m.height-reserved)
	m.viewport.SetContent(m.renderer.Transcript(m.conversation.Messages))
	m.viewport.GotoBottom()
}

// CalendarLayout is the week currently shown in the calendar panel.
func (m Model) CalendarLayout() calendar.WeekLayout {
	return calendar.Layout(m.cursor.Date, m.now(), chat.LatestBookings(m.conversation.Messages), calendar.UnitsPerHour)
}

func (m Model) statusLine() string {
	var status string
	switch m.sessionState.Status() {
	case session.StatusConnected:
		status = statusConnected.Render("● Connected")
	case session.StatusOffline:
		status = statusOffline.Render("● Offline")
	default:
		status = statusConnecting.Render("● Connecting")
	}
	line := headerStyle.Render("roombot") + "  " + status
	if m.conversation.IsSending {
		line += "  " + m.spinner.View() + " waiting for reply"
	}
	if banner := m.sessionState.Banner(); banner != "" {
		line += "\n" + bannerStyle.Render(banner)
	}
	return line
}

func (m Model) View() string {
	parts := []string{m.statusLine()}

	if m.focus == focusCalendar {
		title := "Calendar"
		if room, ok := chat.FindRoom(m.conversation.Messages, m.selectedRoom); ok {
			title += " · " + RoomLine(room)
		}
		grid := RenderWeek(m.CalendarLayout(), ColumnWidth(m.width-4))
		parts = append(parts, focusedPanelStyle.Render(subHeaderStyle.Render(title)+"\n"+grid))
		parts = append(parts, helpStyle.Render("←/→ week · t today · esc close · ctrl+y copy booking id"))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	parts = append(parts, m.viewport.View())
	if rooms := RenderRoomOptions(m.rooms(), m.roomCursor, m.focus == focusRooms); rooms != "" {
		style := panelStyle
		if m.focus == focusRooms {
			style = focusedPanelStyle
		}
		parts = append(parts, style.Render(rooms))
	}
	if m.flash != "" {
		parts = append(parts, flashStyle.Render(m.flash))
	}
	parts = append(parts, m.textarea.View())
	parts = append(parts, helpStyle.Render("enter send · tab rooms · ctrl+y copy booking id · ctrl+c quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Focus names the focused area.
func (m Model) Focus() string {
	switch m.focus {
	case focusRooms:
		return "rooms"
	case focusCalendar:
		return "calendar"
	default:
		return "composer"
	}
}

func (m Model) SelectedRoom() string { return m.selectedRoom }

func (m Model) Cursor() calendar.Cursor { return m.cursor }

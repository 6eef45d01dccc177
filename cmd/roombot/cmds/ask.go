package cmds

import (
	"context"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"

	"github.com/go-go-golems/roombot/pkg/chat"
	"github.com/go-go-golems/roombot/pkg/ui"
)

// AskCommand sends one query and emits the reply as rows: the reply itself,
// then one row per room option and one per booking.
type AskCommand struct {
	*cmds.CommandDescription
	app *App
}

type AskSettings struct {
	Query []string `glazed:"query"`
}

var _ cmds.GlazeCommand = &AskCommand{}

func NewAskCommand(app *App) (*AskCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"ask",
		cmds.WithShort("Send one query to the booking assistant"),
		cmds.WithLong("Create or reuse the session, send the query once and print the reply, its room options and its bookings as rows."),
		cmds.WithArguments(
			fields.New(
				"query",
				fields.TypeStringList,
				fields.WithHelp("Query text"),
				fields.WithRequired(true),
			),
		),
		cmds.WithSections(glazedSection),
	)
	return &AskCommand{CommandDescription: desc, app: app}, nil
}

func (c *AskCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *values.Values,
	gp middlewares.Processor,
) error {
	s := &AskSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}

	res, err := c.app.Ask(ctx, strings.Join(s.Query, " "))
	if err != nil {
		return err
	}
	for _, row := range replyRows(res) {
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

type AskResult struct {
	SessionID string
	Query     string
	Reply     chat.Message
}

// Ask boots a session and sends query once. A reply carrying a server error is
// returned as an error.
func (a *App) Ask(ctx context.Context, query string) (AskResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return AskResult{}, errors.New("empty query")
	}

	rt, err := a.NewRuntime(ctx, chat.WithGreeting(""))
	if err != nil {
		return AskResult{}, err
	}
	defer func() { _ = rt.Close() }()

	st, err := rt.Boot(ctx, a.Settings.Timeout)
	if err != nil {
		return AskResult{}, err
	}

	rt.Orchestrator.UpdateDraft(query)
	if !rt.Orchestrator.Send(ctx) {
		return AskResult{}, errors.New("query was not sent")
	}
	msgs := rt.Orchestrator.Messages()
	reply := msgs[len(msgs)-1]
	if strings.HasPrefix(reply.Text, chat.ServerErrorPrefix) {
		return AskResult{}, errors.New(reply.Text)
	}
	return AskResult{SessionID: st.SessionID, Query: query, Reply: reply}, nil
}

func replyRows(res AskResult) []types.Row {
	bookingID := ""
	p := res.Reply.Payload
	if p != nil && p.BookingID != nil {
		bookingID = *p.BookingID
	}
	rows := []types.Row{
		types.NewRow(
			types.MRP("kind", "reply"),
			types.MRP("session_id", res.SessionID),
			types.MRP("query", res.Query),
			types.MRP("text", res.Reply.Text),
			types.MRP("booking_id", bookingID),
		),
	}
	if p == nil {
		return rows
	}
	for _, o := range p.RoomOptions {
		rows = append(rows, types.NewRow(
			types.MRP("kind", "room"),
			types.MRP("room_id", o.RoomID),
			types.MRP("room_name", o.RoomName),
			types.MRP("building", o.Building),
			types.MRP("floor", o.Floor),
			types.MRP("capacity", o.Capacity),
			types.MRP("features", strings.Join(ui.RoomFeatures(o), ", ")),
		))
	}
	for _, b := range p.RoomBookings {
		rows = append(rows, types.NewRow(
			types.MRP("kind", "booking"),
			types.MRP("booking_id", b.BookingID),
			types.MRP("date", b.Date),
			types.MRP("start_time", b.StartTime),
			types.MRP("end_time", b.EndTime),
		))
	}
	return rows
}

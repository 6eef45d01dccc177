package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/roombot/pkg/calendar"
	"github.com/go-go-golems/roombot/pkg/chat"
	"github.com/go-go-golems/roombot/pkg/ui"
)

func newCalendarCommand() *cobra.Command {
	var (
		bookingsFile string
		date         string
		width        int
	)
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Render the week grid for bookings loaded from a YAML or JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wl, err := loadWeekLayout(bookingsFile, date, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderWeek(wl, ui.ColumnWidth(width)))
			return nil
		},
	}
	cmd.Flags().StringVar(&bookingsFile, "bookings", "", "YAML or JSON file with bookings")
	cmd.Flags().StringVar(&date, "date", "", "Any date of the week to show (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&width, "width", 120, "Total width of the grid")
	_ = cmd.MarkFlagRequired("bookings")
	return cmd
}

// loadWeekLayout lays out the bookings of path for the week containing date,
// or the current week when date is empty.
func loadWeekLayout(path, date string, now time.Time) (calendar.WeekLayout, error) {
	if strings.TrimSpace(path) == "" {
		return calendar.WeekLayout{}, errors.New("no bookings file given")
	}
	bookings, err := LoadBookings(path)
	if err != nil {
		return calendar.WeekLayout{}, err
	}
	anchor := now
	if date != "" {
		anchor, err = time.ParseInLocation(calendar.DateLayout, date, time.Local)
		if err != nil {
			return calendar.WeekLayout{}, errors.Wrapf(err, "parse --date %q", date)
		}
	}
	return calendar.Layout(anchor, now, bookings, calendar.UnitsPerHour), nil
}

// CalendarBlocksCommand emits one row per booking placed in the visible week.
type CalendarBlocksCommand struct {
	*cmds.CommandDescription
}

type CalendarBlocksSettings struct {
	Bookings string `glazed:"bookings"`
	Date     string `glazed:"date"`
}

var _ cmds.GlazeCommand = &CalendarBlocksCommand{}

func NewCalendarBlocksCommand() (*CalendarBlocksCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"blocks",
		cmds.WithShort("List the placed booking blocks of one week"),
		cmds.WithLong("Lay out the bookings of a YAML or JSON file on the week grid and print one row per block with its raw and drawn geometry."),
		cmds.WithFlags(
			fields.New(
				"bookings",
				fields.TypeString,
				fields.WithHelp("YAML or JSON file with bookings"),
				fields.WithRequired(true),
			),
			fields.New(
				"date",
				fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Any date of the week to show (YYYY-MM-DD, default today)"),
			),
		),
		cmds.WithSections(glazedSection),
	)
	return &CalendarBlocksCommand{CommandDescription: desc}, nil
}

func (c *CalendarBlocksCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsedLayers *values.Values,
	gp middlewares.Processor,
) error {
	s := &CalendarBlocksSettings{}
	if err := parsedLayers.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}
	wl, err := loadWeekLayout(s.Bookings, s.Date, time.Now())
	if err != nil {
		return err
	}
	for _, row := range blockRows(wl) {
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func blockRows(wl calendar.WeekLayout) []types.Row {
	var rows []types.Row
	for _, col := range wl.Columns {
		for _, blk := range col.Blocks {
			rows = append(rows, types.NewRow(
				types.MRP("date", col.Day.Key),
				types.MRP("day", col.Day.Label),
				types.MRP("booking_id", blk.Booking.BookingID),
				types.MRP("start_time", blk.Booking.StartTime),
				types.MRP("end_time", blk.Booking.EndTime),
				types.MRP("top", blk.Geometry.Top),
				types.MRP("height", blk.Geometry.Height),
				types.MRP("box_top", blk.Box.Top),
				types.MRP("box_height", blk.Box.Height),
			))
		}
	}
	return rows
}

type bookingsDocument struct {
	RoomBookings []chat.RoomBooking `json:"room_bookings" yaml:"room_bookings"`
}

// LoadBookings reads a list of bookings, or a document with a room_bookings
// list. .json files use the wire field names, anything else is read as YAML.
func LoadBookings(path string) ([]chat.RoomBooking, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	isJSON := strings.EqualFold(filepath.Ext(path), ".json")

	var list []chat.RoomBooking
	var doc bookingsDocument
	if isJSON {
		if err := json.Unmarshal(b, &list); err == nil {
			return list, nil
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, errors.Wrapf(err, "decode %s", path)
		}
		return doc.RoomBookings, nil
	}
	if err := yaml.Unmarshal(b, &list); err == nil {
		return list, nil
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return doc.RoomBookings, nil
}

package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestLatestBookings_ScansBackwards(t *testing.T) {
	older := []RoomBooking{{BookingID: "B1", Date: "2024-06-10", StartTime: "09:00", EndTime: "10:00"}}
	newer := []RoomBooking{{BookingID: "B2", Date: "2024-06-11", StartTime: "11:00", EndTime: "12:00"}}
	msgs := []Message{
		{ID: "1", Role: RoleAssistant, Payload: &StructuredResult{RoomBookings: older}},
		{ID: "2", Role: RoleAssistant, Payload: &StructuredResult{RoomBookings: newer}},
		{ID: "3", Role: RoleUser, Text: "thanks"},
		{ID: "4", Role: RoleAssistant, Payload: &StructuredResult{RoomBookings: []RoomBooking{}}},
		{ID: "5", Role: RoleAssistant, Text: "no payload"},
	}
	require.Equal(t, newer, LatestBookings(msgs))
	require.Nil(t, LatestBookings(nil))
	require.Nil(t, LatestBookings(msgs[2:]))
}

func TestLatestRoomOptionsAndFindRoom(t *testing.T) {
	msgs := []Message{
		{Role: RoleAssistant, Payload: &StructuredResult{RoomOptions: []RoomOption{{RoomID: "R1", RoomName: "Old"}}}},
		{Role: RoleAssistant, Payload: &StructuredResult{BookingID: strPtr("B9"), RoomOptions: []RoomOption{{RoomID: "R1", RoomName: "Nile"}, {RoomID: "R2"}}}},
		{Role: RoleAssistant, Payload: &StructuredResult{BookingID: strPtr("")}},
	}
	opts := LatestRoomOptions(msgs)
	require.Len(t, opts, 2)

	r, ok := FindRoom(msgs, "R1")
	require.True(t, ok)
	require.Equal(t, "Nile", r.RoomName)
	_, ok = FindRoom(msgs, "R404")
	require.False(t, ok)

	id, ok := LatestBookingID(msgs)
	require.True(t, ok)
	require.Equal(t, "B9", id)
}

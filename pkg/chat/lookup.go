package chat

// LatestBookings scans from the newest message backwards and returns the
// bookings of the first assistant message carrying a non-empty set. It is
// recomputed on every call.
func LatestBookings(msgs []Message) []RoomBooking {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role == RoleAssistant && m.Payload.HasRoomBookings() {
			return m.Payload.RoomBookings
		}
	}
	return nil
}

// LatestRoomOptions is the room-option counterpart of LatestBookings.
func LatestRoomOptions(msgs []Message) []RoomOption {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role == RoleAssistant && m.Payload.HasRoomOptions() {
			return m.Payload.RoomOptions
		}
	}
	return nil
}

// LatestBookingID returns the most recent non-empty booking id.
func LatestBookingID(msgs []Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role == RoleAssistant && m.Payload != nil && m.Payload.BookingID != nil && *m.Payload.BookingID != "" {
			return *m.Payload.BookingID, true
		}
	}
	return "", false
}

// FindRoom returns the most recently offered option with the given id.
func FindRoom(msgs []Message, roomID string) (RoomOption, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Payload == nil {
			continue
		}
		for _, r := range m.Payload.RoomOptions {
			if r.RoomID == roomID {
				return r, true
			}
		}
	}
	return RoomOption{}, false
}

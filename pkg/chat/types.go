// Package chat holds the conversation model and the orchestrator that sends
// user queries to the booking assistant.
package chat

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RoomOption is one room suggested by the assistant. Field names follow the
// backend's PascalCase wire format.
type RoomOption struct {
	RoomID            string `json:"RoomID" yaml:"room_id"`
	RoomName          string `json:"RoomName" yaml:"room_name"`
	Building          string `json:"Building" yaml:"building"`
	Floor             int    `json:"Floor" yaml:"floor"`
	Capacity          int    `json:"Capacity" yaml:"capacity"`
	HasConferenceCall bool   `json:"HasConferenceCall" yaml:"has_conference_call"`
	HasVideo          bool   `json:"HasVideo" yaml:"has_video"`
	HasAudio          bool   `json:"HasAudio" yaml:"has_audio"`
	HasDisplay        bool   `json:"HasDisplay" yaml:"has_display"`
	HasWhiteboard     bool   `json:"HasWhiteboard" yaml:"has_whiteboard"`
	IsAccessible      bool   `json:"IsAccessible" yaml:"is_accessible"`
}

// RoomBooking is one booked block. Date is YYYY-MM-DD, times are HH:MM (24h).
// StartTime <= EndTime is not guaranteed.
type RoomBooking struct {
	BookingID string `json:"BookingID" yaml:"booking_id"`
	Date      string `json:"Date" yaml:"date"`
	StartTime string `json:"StartTime" yaml:"start_time"`
	EndTime   string `json:"EndTime" yaml:"end_time"`
}

// StructuredResult is the machine-readable part of an assistant reply.
//
// A nil slice means the response did not provide the section. A non-nil empty
// slice means the response provided an empty sequence.
type StructuredResult struct {
	BookingID    *string       `json:"booking_id"`
	RoomOptions  []RoomOption  `json:"room_options,omitempty"`
	RoomBookings []RoomBooking `json:"room_bookings,omitempty"`
}

func (r *StructuredResult) HasRoomOptions() bool {
	return r != nil && len(r.RoomOptions) > 0
}

func (r *StructuredResult) HasRoomBookings() bool {
	return r != nil && len(r.RoomBookings) > 0
}

type Message struct {
	ID        string            `json:"id"`
	Role      Role              `json:"role"`
	Text      string            `json:"text"`
	Timestamp int64             `json:"ts"`
	Payload   *StructuredResult `json:"payload,omitempty"`
}

// ConversationState is a snapshot handed to the presentation layer.
type ConversationState struct {
	Messages  []Message `json:"messages"`
	Draft     string    `json:"draft"`
	IsSending bool      `json:"is_sending"`
	CanSend   bool      `json:"can_send"`
}

// Request is the body of a chat call.
type Request struct {
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Query     string `json:"query"`
}

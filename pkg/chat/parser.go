package chat

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

const FallbackBotText = "Received a response from the server."

// Response is a leniently decoded chat reply. Sections the backend did not
// send, or sent in an unusable shape, are left nil.
type Response struct {
	Message      *string
	BookingID    *string
	RoomOptions  []RoomOption
	RoomBookings []RoomBooking
}

// ParseBotText extracts the display string for an assistant reply.
type ParseBotText func(res Response) string

// DefaultParseBotText returns the message field when it is a non-blank string.
func DefaultParseBotText(res Response) string {
	if res.Message != nil && strings.TrimSpace(*res.Message) != "" {
		return *res.Message
	}
	return FallbackBotText
}

// DecodeResponse never fails: a body that is not a JSON object yields an empty
// Response and unknown fields are ignored.
func DecodeResponse(raw json.RawMessage) Response {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		log.Debug().Err(err).Msg("chat response is not an object")
		return Response{}
	}

	var res Response
	res.Message = decodeString(fields["message"])
	res.BookingID = decodeString(fields["booking_id"])
	if v, ok := fields["room_options"]; ok {
		res.RoomOptions = decodeSequence[RoomOption]("room_options", v)
	}
	if v, ok := fields["room_bookings"]; ok {
		res.RoomBookings = decodeSequence[RoomBooking]("room_bookings", v)
	}
	return res
}

// decodeSequence returns nil unless v is a JSON array. Elements that do not
// decode are skipped.
func decodeSequence[T any](name string, v json.RawMessage) []T {
	if !isArray(v) {
		log.Debug().Str("field", name).Msg("ignoring non-sequence section")
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		log.Debug().Err(err).Str("field", name).Msg("ignoring undecodable section")
		return nil
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		var t T
		if err := json.Unmarshal(item, &t); err != nil || !isObject(item) {
			log.Debug().Str("field", name).Int("index", i).Msg("skipping malformed element")
			continue
		}
		out = append(out, t)
	}
	return out
}

// decodeString returns nil for absent, null and non-string values.
func decodeString(v json.RawMessage) *string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || v[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil
	}
	return &s
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

func isObject(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}

// StructuredResult builds the payload attached to the assistant message.
func (r Response) StructuredResult() *StructuredResult {
	return &StructuredResult{
		BookingID:    r.BookingID,
		RoomOptions:  r.RoomOptions,
		RoomBookings: r.RoomBookings,
	}
}

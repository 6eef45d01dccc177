// Package events is the notification bus through which the session controller
// and the chat orchestrator announce state changes to the presentation layer.
//
// Events carry no state. A subscriber is expected to re-read the snapshot of the
// component that published the event.
package events

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const (
	TopicSession      = "roombot.session"
	TopicConversation = "roombot.conversation"
)

type Kind string

const (
	KindSessionChanged  Kind = "session.changed"
	KindMessageAppended Kind = "conversation.message_appended"
	KindSendingChanged  Kind = "conversation.sending_changed"
	KindDraftChanged    Kind = "conversation.draft_changed"
)

type Event struct {
	Kind Kind      `json:"kind"`
	Ref  string    `json:"ref,omitempty"`
	At   time.Time `json:"at"`
}

func NewEvent(kind Kind, ref string) Event {
	return Event{Kind: kind, Ref: ref, At: time.Now()}
}

func (e Event) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "marshal event")
	}
	return b, nil
}

func Unmarshal(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, errors.Wrap(err, "unmarshal event")
	}
	if e.Kind == "" {
		return Event{}, errors.New("event without kind")
	}
	return e, nil
}

// Publisher is the narrow interface the controller and orchestrator depend on.
type Publisher interface {
	Publish(topic string, e Event) error
}

package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/roombot/pkg/events"
	"github.com/go-go-golems/roombot/pkg/transport"
)

const (
	DefaultEndpoint = "/chat"
	DefaultGreeting = `Hi! Describe your meeting like: "Sunday 3pm–5pm, 10 people, conference call".`

	// ServerErrorPrefix starts the assistant message appended for a failed send.
	ServerErrorPrefix = "Server error: "

	// isoMillis matches the browser's Date.toISOString output.
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// SessionSource yields the session identifier once one is available.
type SessionSource interface {
	SessionID() (string, bool)
}

type Config struct {
	Endpoint     string
	ParseBotText ParseBotText
}

// Orchestrator owns the ordered message log, the draft input and the sending
// flag. At most one send is in flight; sends attempted meanwhile are dropped.
type Orchestrator struct {
	caller   transport.Caller
	session  SessionSource
	cfg      Config
	pub      events.Publisher
	newID    func() string
	now      func() time.Time
	greeting string

	mu        sync.Mutex
	messages  []Message
	draft     string
	isSending bool
}

type Option func(*Orchestrator)

func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(cfg.Endpoint) != "" {
			o.cfg.Endpoint = cfg.Endpoint
		}
		if cfg.ParseBotText != nil {
			o.cfg.ParseBotText = cfg.ParseBotText
		}
	}
}

func WithPublisher(pub events.Publisher) Option {
	return func(o *Orchestrator) { o.pub = pub }
}

// WithIDGenerator replaces the uuid generator. Generated ids must be unique for
// the lifetime of the orchestrator.
func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.newID = f
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithGreeting sets the initial assistant message. An empty text disables it.
func WithGreeting(text string) Option {
	return func(o *Orchestrator) { o.greeting = text }
}

func NewOrchestrator(caller transport.Caller, session SessionSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		caller:  caller,
		session: session,
		cfg: Config{
			Endpoint:     DefaultEndpoint,
			ParseBotText: DefaultParseBotText,
		},
		newID:    uuid.NewString,
		now:      time.Now,
		greeting: DefaultGreeting,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.greeting != "" {
		o.messages = append(o.messages, o.newMessage(RoleAssistant, o.greeting, nil))
	}
	return o
}

// UpdateDraft replaces the pending input.
func (o *Orchestrator) UpdateDraft(text string) {
	o.mu.Lock()
	o.draft = text
	o.mu.Unlock()
	o.notify(events.KindDraftChanged, "")
}

func (o *Orchestrator) Snapshot() ConversationState {
	_, hasSession := o.sessionID()
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := make([]Message, len(o.messages))
	copy(msgs, o.messages)
	return ConversationState{
		Messages:  msgs,
		Draft:     o.draft,
		IsSending: o.isSending,
		CanSend:   hasSession && !o.isSending,
	}
}

func (o *Orchestrator) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := make([]Message, len(o.messages))
	copy(msgs, o.messages)
	return msgs
}

func (o *Orchestrator) IsSending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isSending
}

// LatestBookings is the booking data of the most recent assistant message
// that carries any.
func (o *Orchestrator) LatestBookings() []RoomBooking {
	return LatestBookings(o.Messages())
}

// SendAsync appends the trimmed draft as a user message, clears the draft and
// issues the chat call in the background. It returns false, and does nothing,
// when there is no session, the draft is blank or a send is in flight. The
// returned channel is closed once the reply (or error) has been appended.
func (o *Orchestrator) SendAsync(ctx context.Context) (<-chan struct{}, bool) {
	sessionID, hasSession := o.sessionID()

	o.mu.Lock()
	query := strings.TrimSpace(o.draft)
	switch {
	case query == "":
		o.mu.Unlock()
		return nil, false
	case !hasSession:
		o.mu.Unlock()
		log.Debug().Msg("dropping send: no session")
		return nil, false
	case o.isSending:
		o.mu.Unlock()
		log.Debug().Msg("dropping send: request already in flight")
		return nil, false
	}

	userMsg := o.newMessage(RoleUser, query, nil)
	o.messages = append(o.messages, userMsg)
	o.draft = ""
	o.isSending = true
	o.mu.Unlock()

	o.notify(events.KindMessageAppended, userMsg.ID)
	o.notify(events.KindSendingChanged, "")

	req := Request{
		SessionID: sessionID,
		Timestamp: o.now().UTC().Format(isoMillis),
		Query:     query,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.complete(ctx, req)
	}()
	return done, true
}

// Send is SendAsync followed by waiting for the reply.
func (o *Orchestrator) Send(ctx context.Context) bool {
	done, ok := o.SendAsync(ctx)
	if !ok {
		return false
	}
	<-done
	return true
}

func (o *Orchestrator) complete(ctx context.Context, req Request) {
	defer o.finishSending()

	log.Debug().Str("session_id", req.SessionID).Str("endpoint", o.cfg.Endpoint).Msg("sending chat query")

	if o.caller == nil {
		o.appendError(errors.New("no transport configured"))
		return
	}
	raw, err := o.caller.Call(ctx, o.cfg.Endpoint, req)
	if err != nil {
		log.Warn().Err(err).Msg("chat call failed")
		o.appendError(err)
		return
	}

	res := DecodeResponse(raw)
	o.append(o.newMessage(RoleAssistant, o.cfg.ParseBotText(res), res.StructuredResult()))
}

func (o *Orchestrator) appendError(err error) {
	text := "Unknown error"
	if err != nil && err.Error() != "" {
		text = err.Error()
	}
	o.append(o.newMessage(RoleAssistant, ServerErrorPrefix+text, nil))
}

func (o *Orchestrator) append(m Message) {
	o.mu.Lock()
	o.messages = append(o.messages, m)
	o.mu.Unlock()
	o.notify(events.KindMessageAppended, m.ID)
}

func (o *Orchestrator) finishSending() {
	o.mu.Lock()
	o.isSending = false
	o.mu.Unlock()
	o.notify(events.KindSendingChanged, "")
}

func (o *Orchestrator) newMessage(role Role, text string, payload *StructuredResult) Message {
	return Message{
		ID:        o.newID(),
		Role:      role,
		Text:      text,
		Timestamp: o.now().UnixMilli(),
		Payload:   payload,
	}
}

func (o *Orchestrator) sessionID() (string, bool) {
	if o.session == nil {
		return "", false
	}
	id, ok := o.session.SessionID()
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}

func (o *Orchestrator) notify(kind events.Kind, ref string) {
	if o.pub == nil {
		return
	}
	if err := o.pub.Publish(events.TopicConversation, events.NewEvent(kind, ref)); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("could not publish conversation event")
	}
}

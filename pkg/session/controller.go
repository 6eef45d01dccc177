package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/roombot/pkg/events"
	"github.com/go-go-golems/roombot/pkg/transport"
)

const DefaultCreatePath = "/session/create"

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseBooting Phase = "booting"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// State is a read-only snapshot of the controller.
type State struct {
	SessionID string `json:"session_id,omitempty"`
	IsReady   bool   `json:"is_ready"`
	HasError  bool   `json:"has_error"`
	Phase     Phase  `json:"phase"`
	LastError string `json:"last_error,omitempty"`
}

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusOffline    Status = "offline"
)

func (s State) Status() Status {
	switch {
	case s.IsReady:
		return StatusConnected
	case s.HasError:
		return StatusOffline
	default:
		return StatusConnecting
	}
}

// Banner returns the user-facing line for a non-ready state, or "" once ready.
func (s State) Banner() string {
	switch s.Status() {
	case StatusConnecting:
		return "Connecting… creating your session automatically."
	case StatusOffline:
		return "Server is not reachable. Please check the API base URL or server availability."
	default:
		return ""
	}
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
}

type activation struct {
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled bool
}

// Controller makes sure a session identifier exists, creating one through the
// transport when the store has none. Each activation issues at most one
// creation call and never retries.
type Controller struct {
	store      Store
	caller     transport.Caller
	createPath string
	pub        events.Publisher

	mu      sync.Mutex
	state   State
	current *activation
}

type ControllerOption func(*Controller)

func WithCreatePath(path string) ControllerOption {
	return func(c *Controller) {
		if strings.TrimSpace(path) != "" {
			c.createPath = path
		}
	}
}

func WithPublisher(pub events.Publisher) ControllerOption {
	return func(c *Controller) {
		c.pub = pub
	}
}

func NewController(store Store, caller transport.Caller, opts ...ControllerOption) *Controller {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Controller{
		store:      store,
		caller:     caller,
		createPath: DefaultCreatePath,
		state:      State{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the identifier once the controller is ready.
func (c *Controller) SessionID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsReady || c.state.SessionID == "" {
		return "", false
	}
	return c.state.SessionID, true
}

// Activate reuses a stored identifier or starts one creation call in the
// background. It is a no-op while ready or while a boot is still in flight.
// The store is read without holding the controller lock.
func (c *Controller) Activate(ctx context.Context) {
	c.mu.Lock()
	if c.state.Phase == PhaseReady || (c.current != nil && c.state.Phase == PhaseBooting) {
		c.mu.Unlock()
		return
	}
	act := &activation{done: make(chan struct{})}
	c.current = act
	c.state = State{Phase: PhaseBooting}
	c.mu.Unlock()

	id, found := c.loadStored(ctx)

	c.mu.Lock()
	if act.cancelled || c.current != act {
		close(act.done)
		c.mu.Unlock()
		log.Debug().Msg("session controller deactivated while reading store")
		return
	}
	if found {
		c.state = State{SessionID: id, IsReady: true, Phase: PhaseReady}
		close(act.done)
		c.mu.Unlock()
		log.Info().Str("session_id", id).Msg("reusing stored session")
		c.notify(id)
		return
	}
	bootCtx, cancel := context.WithCancel(ctx)
	act.cancel = cancel
	c.mu.Unlock()

	log.Info().Str("path", c.createPath).Msg("no stored session, creating one")
	c.notify("")
	go c.boot(bootCtx, act)
}

// Deactivate discards the result of an outstanding creation call.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return
	}
	c.current.cancelled = true
	if c.current.cancel != nil {
		c.current.cancel()
	}
	c.current = nil
}

// Wait blocks until the current activation is ready, failed or deactivated.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	c.mu.Lock()
	act := c.current
	c.mu.Unlock()
	if act != nil {
		select {
		case <-act.done:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
	return c.State(), nil
}

func (c *Controller) loadStored(ctx context.Context) (string, bool) {
	id, err := c.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Msg("session store unavailable, treating as no stored session")
		}
		return "", false
	}
	return id, true
}

func (c *Controller) boot(ctx context.Context, act *activation) {
	defer close(act.done)
	if act.cancel != nil {
		defer act.cancel()
	}

	id, err := c.createSession(ctx)

	c.mu.Lock()
	if act.cancelled || c.current != act {
		c.mu.Unlock()
		log.Debug().Msg("session controller deactivated, discarding boot result")
		return
	}
	if err != nil {
		c.state = State{Phase: PhaseFailed, HasError: true, LastError: err.Error()}
		c.mu.Unlock()
		log.Error().Err(err).Msg("session creation failed")
		c.notify("")
		return
	}
	c.mu.Unlock()

	if setErr := c.store.Set(ctx, id); setErr != nil {
		log.Warn().Err(setErr).Msg("could not persist session id, keeping it in memory")
	}

	c.mu.Lock()
	if act.cancelled || c.current != act {
		c.mu.Unlock()
		log.Debug().Msg("session controller deactivated while persisting, discarding boot result")
		return
	}
	c.state = State{SessionID: id, IsReady: true, Phase: PhaseReady}
	c.mu.Unlock()

	log.Info().Str("session_id", id).Msg("session created")
	c.notify(id)
}

func (c *Controller) createSession(ctx context.Context) (string, error) {
	if c.caller == nil {
		return "", errors.New("session controller: no transport configured")
	}
	raw, err := c.caller.Call(ctx, c.createPath, nil)
	if err != nil {
		return "", err
	}
	var resp createSessionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", errors.Wrap(err, "decode create-session response")
	}
	id := strings.TrimSpace(resp.SessionID)
	if id == "" {
		return "", errors.New("create-session response carries no session_id")
	}
	return id, nil
}

func (c *Controller) notify(ref string) {
	if c.pub == nil {
		return
	}
	if err := c.pub.Publish(events.TopicSession, events.NewEvent(events.KindSessionChanged, ref)); err != nil {
		log.Warn().Err(err).Msg("could not publish session event")
	}
}

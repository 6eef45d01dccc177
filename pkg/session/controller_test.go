package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/roombot/pkg/events"
	"github.com/go-go-golems/roombot/pkg/transport"
)

type failingStore struct{}

func (failingStore) Get(context.Context) (string, error) { return "", errors.New("storage disabled") }
func (failingStore) Set(context.Context, string) error   { return errors.New("storage disabled") }
func (failingStore) Clear(context.Context) error         { return errors.New("storage disabled") }
func (failingStore) Close() error                        { return nil }

func createCaller(calls *int32, id string) transport.Caller {
	return transport.CallerFunc(func(ctx context.Context, path string, body any) (json.RawMessage, error) {
		atomic.AddInt32(calls, 1)
		if path != DefaultCreatePath {
			return nil, errors.Errorf("unexpected path %s", path)
		}
		if body != nil {
			return nil, errors.New("create-session must not carry a body")
		}
		return json.RawMessage(`{"session_id":"` + id + `","timestamp":"2024-06-10T09:00:00Z"}`), nil
	})
}

func waitState(t *testing.T, c *Controller) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := c.Wait(ctx)
	require.NoError(t, err)
	return st
}

func TestController_ReusesStoredIDWithoutNetwork(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "stored"))

	var calls int32
	c := NewController(store, createCaller(&calls, "new"))

	c.Activate(ctx)
	st := c.State()
	require.True(t, st.IsReady)
	require.Equal(t, PhaseReady, st.Phase)
	require.Equal(t, "stored", st.SessionID)

	c.Activate(ctx)
	c.Deactivate()
	c.Activate(ctx)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))

	id, ok := c.SessionID()
	require.True(t, ok)
	require.Equal(t, "stored", id)
}

func TestController_CreatesAndPersistsOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	var calls int32
	c := NewController(store, createCaller(&calls, "fresh"))

	c.Activate(ctx)
	st := waitState(t, c)
	require.True(t, st.IsReady)
	require.False(t, st.HasError)
	require.Equal(t, "fresh", st.SessionID)

	stored, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "fresh", stored)

	c.Activate(ctx)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	second := NewController(store, createCaller(&calls, "other"))
	second.Activate(ctx)
	require.Equal(t, "fresh", second.State().SessionID)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestController_ActivateWhileBootingDoesNotCallTwice(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var calls int32
	caller := transport.CallerFunc(func(ctx context.Context, path string, body any) (json.RawMessage, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return json.RawMessage(`{"session_id":"s1"}`), nil
	})
	c := NewController(NewMemoryStore(), caller)

	c.Activate(ctx)
	require.Equal(t, PhaseBooting, c.State().Phase)
	require.False(t, c.State().IsReady)
	_, ok := c.SessionID()
	require.False(t, ok)

	c.Activate(ctx)
	c.Activate(ctx)
	close(release)

	st := waitState(t, c)
	require.True(t, st.IsReady)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestController_FailureIsTerminalWithoutRetry(t *testing.T) {
	ctx := context.Background()
	var calls int32
	caller := transport.CallerFunc(func(ctx context.Context, path string, body any) (json.RawMessage, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &transport.Error{Method: http.MethodPost, Path: path, StatusCode: 500, Status: "Internal Server Error"}
	})
	store := NewMemoryStore()
	c := NewController(store, caller)

	c.Activate(ctx)
	st := waitState(t, c)
	require.True(t, st.HasError)
	require.False(t, st.IsReady)
	require.Equal(t, PhaseFailed, st.Phase)
	require.Contains(t, st.LastError, "500")
	require.Equal(t, StatusOffline, st.Status())

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	_, err := store.Get(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	// a fresh activation is the only way to try again
	c.Activate(ctx)
	waitState(t, c)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestController_MissingSessionIDIsFailure(t *testing.T) {
	caller := transport.CallerFunc(func(ctx context.Context, path string, body any) (json.RawMessage, error) {
		return json.RawMessage(`{"timestamp":"2024-06-10T09:00:00Z"}`), nil
	})
	c := NewController(NewMemoryStore(), caller)
	c.Activate(context.Background())
	st := waitState(t, c)
	require.True(t, st.HasError)
	require.Empty(t, st.SessionID)
}

func TestController_DeactivateDiscardsLateResponse(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	caller := transport.CallerFunc(func(ctx context.Context, path string, body any) (json.RawMessage, error) {
		close(started)
		<-release
		return json.RawMessage(`{"session_id":"late"}`), nil
	})
	store := NewMemoryStore()
	c := NewController(store, caller)

	c.Activate(ctx)
	<-started
	c.Deactivate()
	close(release)

	time.Sleep(50 * time.Millisecond)
	st := c.State()
	require.False(t, st.IsReady)
	require.False(t, st.HasError)
	require.Empty(t, st.SessionID)
	_, err := store.Get(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestController_StorageFailureDegradesToMemory(t *testing.T) {
	var calls int32
	c := NewController(failingStore{}, createCaller(&calls, "mem-only"))

	c.Activate(context.Background())
	st := waitState(t, c)
	require.True(t, st.IsReady)
	require.Equal(t, "mem-only", st.SessionID)

	// every new controller over unavailable storage creates a new session
	c2 := NewController(failingStore{}, createCaller(&calls, "mem-only-2"))
	c2.Activate(context.Background())
	require.Equal(t, "mem-only-2", waitState(t, c2).SessionID)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(topic string, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if topic == events.TopicSession {
		r.events = append(r.events, e)
	}
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestController_PublishesStateChanges(t *testing.T) {
	var calls int32
	pub := &recordingPublisher{}
	c := NewController(NewMemoryStore(), createCaller(&calls, "s1"), WithPublisher(pub))

	c.Activate(context.Background())
	waitState(t, c)
	require.Equal(t, 2, pub.count()) // booting, ready
}

func TestState_Banner(t *testing.T) {
	require.Equal(t, StatusConnecting, State{Phase: PhaseBooting}.Status())
	require.NotEmpty(t, State{Phase: PhaseBooting}.Banner())
	require.Empty(t, State{IsReady: true}.Banner())
	require.Contains(t, State{HasError: true}.Banner(), "not reachable")
}

type blockingStore struct {
	MemoryStore
	getEntered chan struct{}
	setEntered chan struct{}
	release    chan struct{}
	blockGet   bool
}

func newBlockingStore(blockGet bool) *blockingStore {
	return &blockingStore{
		getEntered: make(chan struct{}, 1),
		setEntered: make(chan struct{}, 1),
		release:    make(chan struct{}),
		blockGet:   blockGet,
	}
}

func (s *blockingStore) Get(ctx context.Context) (string, error) {
	if s.blockGet {
		s.getEntered <- struct{}{}
		<-s.release
	}
	return s.MemoryStore.Get(ctx)
}

func (s *blockingStore) Set(ctx context.Context, id string) error {
	s.setEntered <- struct{}{}
	<-s.release
	return s.MemoryStore.Set(ctx, id)
}

func stateWithin(t *testing.T, c *Controller, d time.Duration) State {
	t.Helper()
	got := make(chan State, 1)
	go func() { got <- c.State() }()
	select {
	case st := <-got:
		return st
	case <-time.After(d):
		t.Fatalf("State() did not return within %s", d)
		return State{}
	}
}

func TestController_SlowStoreSetDoesNotBlockReaders(t *testing.T) {
	ctx := context.Background()
	store := newBlockingStore(false)
	var calls int32
	c := NewController(store, createCaller(&calls, "fresh"))

	c.Activate(ctx)
	select {
	case <-store.setEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("store.Set was never called")
	}

	st := stateWithin(t, c, 200*time.Millisecond)
	require.Equal(t, PhaseBooting, st.Phase)
	_, ok := c.SessionID()
	require.False(t, ok)

	close(store.release)
	st = waitState(t, c)
	require.True(t, st.IsReady)
	require.Equal(t, "fresh", st.SessionID)

	id, err := store.MemoryStore.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "fresh", id)
}

func TestController_SlowStoreGetDoesNotBlockReaders(t *testing.T) {
	ctx := context.Background()
	store := newBlockingStore(true)
	require.NoError(t, store.MemoryStore.Set(ctx, "stored"))
	var calls int32
	c := NewController(store, createCaller(&calls, "new"))

	activated := make(chan struct{})
	go func() {
		c.Activate(ctx)
		close(activated)
	}()
	select {
	case <-store.getEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("store.Get was never called")
	}

	st := stateWithin(t, c, 200*time.Millisecond)
	require.Equal(t, PhaseBooting, st.Phase)

	close(store.release)
	<-activated
	st = c.State()
	require.True(t, st.IsReady)
	require.Equal(t, "stored", st.SessionID)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestController_DeactivateDuringStoreSetDiscardsResult(t *testing.T) {
	ctx := context.Background()
	store := newBlockingStore(false)
	var calls int32
	c := NewController(store, createCaller(&calls, "late"))

	c.Activate(ctx)
	<-store.setEntered

	done := make(chan struct{})
	go func() {
		c.Deactivate()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Deactivate blocked behind store.Set")
	}

	close(store.release)
	require.Eventually(t, func() bool {
		_, err := store.MemoryStore.Get(ctx)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.False(t, c.State().IsReady)
}

package cmds

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/roombot/pkg/chat"
	"github.com/go-go-golems/roombot/pkg/config"
	"github.com/go-go-golems/roombot/pkg/events"
	"github.com/go-go-golems/roombot/pkg/session"
	"github.com/go-go-golems/roombot/pkg/transport"
)

// App carries the resolved settings shared by all sub-commands.
type App struct {
	Settings config.Settings
	closers  []io.Closer
}

func (a *App) Setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return errors.Wrap(err, "config flag")
	}
	v, err := config.NewViper(cmd.Flags(), configFile)
	if err != nil {
		return err
	}
	s, err := config.Load(v)
	if err != nil {
		return err
	}
	a.Settings = s
	log.Debug().
		Str("base_url", s.BaseURL).
		Str("session_store", s.SessionStore).
		Str("events", s.Events).
		Msg("settings loaded")
	return nil
}

// Close releases what the commands opened. It is safe to call more than once.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// OpenStore opens the configured session store.
func (a *App) OpenStore() (session.Store, error) {
	s := a.Settings
	switch s.SessionStore {
	case config.StoreFile:
		return session.NewFileStore(s.SessionFile)
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(s.SQLitePath), 0o700); err != nil {
			return nil, errors.Wrap(err, "create sqlite directory")
		}
		dsn, err := session.SQLiteDSNForFile(s.SQLitePath)
		if err != nil {
			return nil, err
		}
		return session.NewSQLiteStore(dsn, session.DefaultKey)
	case config.StoreRedis:
		return session.NewRedisStoreForAddr(s.RedisAddr, s.RedisKey)
	case config.StoreMemory:
		return session.NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown session store %q", s.SessionStore)
	}
}

// OpenBus builds the configured notification bus.
func (a *App) OpenBus(ctx context.Context) (*events.Bus, error) {
	s := a.Settings
	if s.Events != config.EventsRedis {
		return events.NewInMemoryBus(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
	group, consumer := redisBusIdentity(s)
	topics := []string{events.TopicSession, events.TopicConversation}
	for _, topic := range topics {
		if err := events.EnsureGroupAtTail(ctx, client, topic, group); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	bus, err := events.NewRedisBus(client, group, consumer)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	log.Debug().Str("group", group).Str("consumer", consumer).Msg("joined redis notification streams")
	a.closers = append(a.closers, client, closerFunc(func() error {
		for _, topic := range topics {
			if err := events.DestroyGroup(context.Background(), client, topic, group); err != nil {
				log.Warn().Err(err).Str("group", group).Msg("could not remove redis consumer group")
			}
		}
		return nil
	}))
	return bus, nil
}

// redisBusIdentity picks the consumer name and the consumer group of this
// process. The group is derived from the consumer so that concurrent processes
// each receive every notification.
func redisBusIdentity(s config.Settings) (group, consumer string) {
	consumer = s.RedisConsumer
	if consumer == "" {
		consumer = config.AppName + "-" + uuid.NewString()
	}
	return events.InstanceGroup(s.RedisGroup, consumer), consumer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (a *App) NewClient() *transport.Client {
	return transport.NewClient(a.Settings.BaseURL, transport.WithTimeout(a.Settings.Timeout))
}

// Runtime is the wired set of collaborators used by the network commands.
type Runtime struct {
	Store        session.Store
	Bus          *events.Bus
	Client       *transport.Client
	Controller   *session.Controller
	Orchestrator *chat.Orchestrator
}

func (a *App) NewRuntime(ctx context.Context, chatOpts ...chat.Option) (*Runtime, error) {
	if err := a.Settings.RequireBaseURL(); err != nil {
		log.Warn().Msg("no base URL configured, the server will not be reachable")
		return nil, err
	}
	store, err := a.OpenStore()
	if err != nil {
		return nil, err
	}
	bus, err := a.OpenBus(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	client := a.NewClient()

	ctrl := session.NewController(store, client,
		session.WithCreatePath(a.Settings.CreateSessionPath),
		session.WithPublisher(bus),
	)
	opts := append([]chat.Option{
		chat.WithConfig(chat.Config{Endpoint: a.Settings.ChatPath}),
		chat.WithPublisher(bus),
	}, chatOpts...)
	orch := chat.NewOrchestrator(client, ctrl, opts...)

	return &Runtime{
		Store:        store,
		Bus:          bus,
		Client:       client,
		Controller:   ctrl,
		Orchestrator: orch,
	}, nil
}

// Boot activates the controller and waits for a terminal state.
func (r *Runtime) Boot(ctx context.Context, timeout time.Duration) (session.State, error) {
	r.Controller.Activate(ctx)
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	st, err := r.Controller.Wait(waitCtx)
	if err != nil {
		return st, errors.Wrap(err, "waiting for session")
	}
	if !st.IsReady {
		return st, errors.Errorf("%s (%s)", st.Banner(), st.LastError)
	}
	return st, nil
}

func (r *Runtime) Close() error {
	r.Controller.Deactivate()
	busErr := r.Bus.Close()
	storeErr := r.Store.Close()
	if busErr != nil {
		return busErr
	}
	return storeErr
}

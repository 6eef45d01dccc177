// Package config resolves roombot settings from flags, ROOMBOT_* environment
// variables, an optional .env file and an optional YAML config file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	AppName   = "roombot"
	EnvPrefix = "ROOMBOT"

	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"

	EventsMemory = "memory"
	EventsRedis  = "redis"
)

type Settings struct {
	BaseURL           string        `mapstructure:"base-url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CreateSessionPath string        `mapstructure:"create-session-path"`
	ChatPath          string        `mapstructure:"chat-path"`

	SessionStore string `mapstructure:"session-store"`
	SessionFile  string `mapstructure:"session-file"`
	SQLitePath   string `mapstructure:"sqlite-path"`
	RedisAddr    string `mapstructure:"redis-addr"`
	RedisKey     string `mapstructure:"redis-key"`

	Events        string `mapstructure:"events"`
	RedisGroup    string `mapstructure:"redis-group"`
	RedisConsumer string `mapstructure:"redis-consumer"`
}

func defaults() map[string]any {
	home := homeDir()
	return map[string]any{
		"base-url":            "",
		"timeout":             30 * time.Second,
		"create-session-path": "/session/create",
		"chat-path":           "/chat",
		"session-store":       StoreFile,
		"session-file":        filepath.Join(home, ".roombot", "session.yaml"),
		"sqlite-path":         filepath.Join(home, ".roombot", "roombot.db"),
		"redis-addr":          "localhost:6379",
		"redis-key":           "roombot:session_id",
		"events":              EventsMemory,
		"redis-group":         "roombot",
		"redis-consumer":      "",
	}
}

// AddFlags registers every setting as a flag on fs, plus --config unless the
// root command bootstrap already registered it.
func AddFlags(fs *pflag.FlagSet) {
	d := defaults()
	if fs.Lookup("config") == nil {
		fs.String("config", "", "Path to a YAML config file")
	}
	fs.String("base-url", "", "Base URL of the booking API (ROOMBOT_BASE_URL)")
	fs.Duration("timeout", d["timeout"].(time.Duration), "HTTP request timeout")
	fs.String("create-session-path", d["create-session-path"].(string), "Path of the session creation endpoint")
	fs.String("chat-path", d["chat-path"].(string), "Path of the chat endpoint")
	fs.String("session-store", StoreFile, "Where the session id is kept (file, sqlite, redis, memory)")
	fs.String("session-file", d["session-file"].(string), "Session file used by the file store")
	fs.String("sqlite-path", d["sqlite-path"].(string), "Database used by the sqlite store")
	fs.String("redis-addr", d["redis-addr"].(string), "Redis address for the redis store and redis events")
	fs.String("redis-key", d["redis-key"].(string), "Redis key holding the session id")
	fs.String("events", EventsMemory, "Event bus backend (memory, redis)")
	fs.String("redis-group", d["redis-group"].(string), "Prefix of the per-process consumer group for redis events")
	fs.String("redis-consumer", "", "Consumer name for redis events (defaults to a random id)")
}

// LoadDotEnv loads the given .env files (./.env when none is given) without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				log.Debug().Str("path", p).Msg("no .env file")
				continue
			}
			return errors.Wrapf(err, "stat %s", p)
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrapf(err, "load %s", p)
		}
	}
	return nil
}

// NewViper builds a viper instance bound to fs and the ROOMBOT_ environment.
// An explicit configFile must exist; otherwise the first of
// $HOME/.roombot/config.yaml and ./roombot.yaml that exists is read.
func NewViper(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, errors.Wrap(err, "bind flags")
		}
	}

	path := configFile
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		log.Debug().Str("path", path).Msg("loaded config file")
	}
	return v, nil
}

func findConfigFile() string {
	candidates := []string{
		filepath.Join(homeDir(), ".roombot", "config.yaml"),
		"roombot.yaml",
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c
		}
	}
	return ""
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errors.Wrap(err, "decode settings")
	}
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	s.SessionStore = strings.ToLower(strings.TrimSpace(s.SessionStore))
	s.Events = strings.ToLower(strings.TrimSpace(s.Events))
	s.SessionFile = expandPath(s.SessionFile)
	s.SQLitePath = expandPath(s.SQLitePath)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	switch s.SessionStore {
	case StoreFile:
		if s.SessionFile == "" {
			return errors.New("session-file is required for the file store")
		}
	case StoreSQLite:
		if s.SQLitePath == "" {
			return errors.New("sqlite-path is required for the sqlite store")
		}
	case StoreRedis:
		if s.RedisAddr == "" || s.RedisKey == "" {
			return errors.New("redis-addr and redis-key are required for the redis store")
		}
	case StoreMemory:
	default:
		return errors.Errorf("unknown session-store %q (want file, sqlite, redis or memory)", s.SessionStore)
	}

	switch s.Events {
	case EventsMemory:
	case EventsRedis:
		if s.RedisAddr == "" {
			return errors.New("redis-addr is required for redis events")
		}
	default:
		return errors.Errorf("unknown events backend %q (want memory or redis)", s.Events)
	}

	if s.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	return nil
}

// RequireBaseURL reports the error network commands fail with when no base
// URL is configured.
func (s Settings) RequireBaseURL() error {
	if s.BaseURL == "" {
		return errors.New("no base URL configured; set --base-url or ROOMBOT_BASE_URL")
	}
	return nil
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}

func expandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

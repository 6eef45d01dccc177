package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("roombot", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func load(t *testing.T, fs *pflag.FlagSet, configFile string) (Settings, error) {
	t.Helper()
	v, err := NewViper(fs, configFile)
	require.NoError(t, err)
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	s, err := load(t, newFlags(t), "")
	require.NoError(t, err)
	require.Equal(t, "", s.BaseURL)
	require.Equal(t, 30*time.Second, s.Timeout)
	require.Equal(t, StoreFile, s.SessionStore)
	require.Equal(t, EventsMemory, s.Events)
	require.Equal(t, "/session/create", s.CreateSessionPath)
	require.Equal(t, "/chat", s.ChatPath)
	require.Equal(t, "session.yaml", filepath.Base(s.SessionFile))
	require.Error(t, s.RequireBaseURL())
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg := filepath.Join(t.TempDir(), "roombot.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("base-url: http://from-file\nsession-store: sqlite\ntimeout: 5s\n"), 0o600))
	t.Setenv("ROOMBOT_BASE_URL", "http://from-env/")

	s, err := load(t, newFlags(t), cfg)
	require.NoError(t, err)
	require.Equal(t, "http://from-env", s.BaseURL)
	require.Equal(t, StoreSQLite, s.SessionStore)
	require.Equal(t, 5*time.Second, s.Timeout)
	require.NoError(t, s.RequireBaseURL())
}

func TestLoad_FlagsWin(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ROOMBOT_SESSION_STORE", "redis")

	s, err := load(t, newFlags(t, "--session-store", "memory", "--chat-path", "/v2/chat"), "")
	require.NoError(t, err)
	require.Equal(t, StoreMemory, s.SessionStore)
	require.Equal(t, "/v2/chat", s.ChatPath)
}

func TestLoad_FindsLocalConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roombot.yaml"), []byte("base-url: http://local\n"), 0o600))

	s, err := load(t, newFlags(t), "")
	require.NoError(t, err)
	require.Equal(t, "http://local", s.BaseURL)
}

func TestNewViper_MissingExplicitConfig(t *testing.T) {
	_, err := NewViper(newFlags(t), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Settings{
		Timeout:      time.Second,
		SessionStore: StoreMemory,
		Events:       EventsMemory,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.SessionStore = "etcd"
	require.ErrorContains(t, bad.Validate(), "unknown session-store")

	bad = base
	bad.Events = "kafka"
	require.ErrorContains(t, bad.Validate(), "unknown events backend")

	bad = base
	bad.Timeout = 0
	require.Error(t, bad.Validate())

	bad = base
	bad.SessionStore = StoreFile
	require.Error(t, bad.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ROOMBOT_DOTENV_CHECK=from-dotenv\n"), 0o600))
	t.Setenv("ROOMBOT_DOTENV_CHECK", "")
	require.NoError(t, os.Unsetenv("ROOMBOT_DOTENV_CHECK"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	require.Equal(t, "from-dotenv", os.Getenv("ROOMBOT_DOTENV_CHECK"))
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.Equal(t, filepath.Join(home, "x.db"), expandPath("~/x.db"))
	require.Equal(t, filepath.Join(home, "y.db"), expandPath("$HOME/y.db"))
	require.Equal(t, "", expandPath(""))
}

func TestAddFlags_KeepsExistingConfigFlag(t *testing.T) {
	fs := pflag.NewFlagSet("roombot", pflag.ContinueOnError)
	fs.String("config", "preset.yaml", "registered by the root bootstrap")
	require.NotPanics(t, func() { AddFlags(fs) })
	require.Equal(t, "preset.yaml", fs.Lookup("config").DefValue)
	require.NotNil(t, fs.Lookup("base-url"))
}

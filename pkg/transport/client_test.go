package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestClientCall_PostsJSON(t *testing.T) {
	var gotBody map[string]any
	var gotPath, gotMethod, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL + "/")
	raw, err := c.Call(context.Background(), "/chat", map[string]string{"query": "hi"})
	require.NoError(t, err)
	require.JSONEq(t, `{"message":"ok"}`, string(raw))
	require.Equal(t, "/chat", gotPath)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "application/json", gotCT)
	require.Equal(t, "hi", gotBody["query"])
}

func TestClientCall_NilBodySendsEmptyBody(t *testing.T) {
	var n int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		n = len(b)
		_, _ = w.Write([]byte(`{"session_id":"s1","timestamp":"2024-06-10T09:00:00Z"}`))
	}))
	t.Cleanup(srv.Close)

	raw, err := NewClient(srv.URL).Call(context.Background(), "/session/create", nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Contains(t, string(raw), "s1")
}

func TestClientCall_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("backend down"))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Call(context.Background(), "/chat", nil)
	require.Error(t, err)
	var te *Error
	require.True(t, errors.As(err, &te))
	require.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	require.Equal(t, "POST /chat failed: 503 Service Unavailable backend down", err.Error())
}

func TestClientCall_EmptyResponseIsNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	raw, err := NewClient(srv.URL).Call(context.Background(), "/chat", nil)
	require.NoError(t, err)
	require.Equal(t, "null", string(raw))
}

func TestClientCall_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Call(context.Background(), "/chat", nil)
	require.Error(t, err)
	var te *Error
	require.False(t, errors.As(err, &te))
}

func TestClientCall_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, WithTimeout(time.Second)).Call(context.Background(), "/chat", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "POST /chat")
}

func TestClientCall_KeepsServerReasonPhrase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_, _ = buf.WriteString("HTTP/1.1 599 Upstream Sleepy\r\nContent-Length: 4\r\nConnection: close\r\n\r\nbusy")
		_ = buf.Flush()
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Call(context.Background(), "/chat", nil)
	var te *Error
	require.True(t, errors.As(err, &te))
	require.Equal(t, 599, te.StatusCode)
	require.Equal(t, "Upstream Sleepy", te.Status)
	require.Equal(t, "POST /chat failed: 599 Upstream Sleepy busy", err.Error())
}

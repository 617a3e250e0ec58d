package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTelegram_Send(t *testing.T) {
	var got sendMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	tg := NewTelegram(Config{APIURL: srv.URL, BotToken: "123:abc", ChatID: "42"}, nil, zap.NewNop())
	require.True(t, tg.Configured())
	require.NoError(t, tg.Send(context.Background(), "📈 *hi*"))

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, sendMessage{ChatID: "42", Text: "📈 *hi*", ParseMode: "Markdown"}, got)
}

func TestTelegram_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram(Config{APIURL: srv.URL, BotToken: "t", ChatID: "1"}, nil, nil)
	err := tg.Send(context.Background(), "x")
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 400, ae.Status)
	assert.Equal(t, "Bad Request: chat not found", ae.Description)
}

func TestTelegram_NotConfigured(t *testing.T) {
	tg := NewTelegram(Config{BotToken: "t"}, nil, nil)
	assert.False(t, tg.Configured())
	assert.ErrorIs(t, tg.Send(context.Background(), "x"), ErrNotConfigured)
}

func TestTelegram_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	u := srv.URL
	srv.Close()

	tg := NewTelegram(Config{APIURL: u, BotToken: "secret-token", ChatID: "1"}, nil, nil)
	err := tg.Send(context.Background(), "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestTelegram_SendTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(Config{APIURL: srv.URL, BotToken: "123:abc", ChatID: "1", Timeout: 100 * time.Millisecond}, &http.Client{}, zap.NewNop())
	start := time.Now()
	err := tg.Send(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, err.Error(), "123:abc")
	assert.Less(t, time.Since(start), time.Second)
}

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegram_Send(t *testing.T) {
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer server.Close()

	tg, err := NewTelegram(Config{BotToken: "123:abc", ChatID: "42", APIURL: server.URL})
	require.NoError(t, err)

	require.NoError(t, tg.Send(context.Background(), "📅 *Daily Spend Summary*\nline"))
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "📅 *Daily Spend Summary*\nline", got.Text)
	assert.Equal(t, "Markdown", got.ParseMode)
}

func TestTelegram_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	tg, err := NewTelegram(Config{BotToken: "t", ChatID: "1", APIURL: server.URL})
	require.NoError(t, err)

	err = tg.Send(context.Background(), "hi")
	require.ErrorIs(t, err, common.ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	tg, err := NewTelegram(Config{BotToken: "t", ChatID: "1", APIURL: server.URL})
	require.NoError(t, err)

	err = tg.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestTelegram_TransportErrorHidesToken(t *testing.T) {
	tg, err := NewTelegram(Config{BotToken: "secret-token", ChatID: "1", APIURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	err = tg.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestNewTelegram_RequiresCredentials(t *testing.T) {
	_, err := NewTelegram(Config{ChatID: "1"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewTelegram(Config{BotToken: "t"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

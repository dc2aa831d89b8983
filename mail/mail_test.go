package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendSend(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer server.Close()

	r := NewResend("re_test", "Kavyalok <hello@kavyalok.in>")
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	r.client.BaseURL = base

	err = r.Send(context.Background(), Welcome("asha@example.com", "Asha"))
	require.NoError(t, err)
	assert.Equal(t, "Kavyalok <hello@kavyalok.in>", got["from"])
	assert.Equal(t, []interface{}{"asha@example.com"}, got["to"])
	assert.Equal(t, "Welcome to Kavyalok", got["subject"])
}

func TestResendSendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid from"}`))
	}))
	defer server.Close()

	r := NewResend("re_test", "bad")
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	r.client.BaseURL = base

	assert.Error(t, r.Send(context.Background(), Welcome("asha@example.com", "Asha")))
}

func TestSMTPCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSMTP("localhost", 2525, "", "", "hello@kavyalok.in")
	assert.ErrorIs(t, s.Send(ctx, Welcome("asha@example.com", "")), context.Canceled)
}

func TestTemplatesEscape(t *testing.T) {
	msg := Welcome("asha@example.com", "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.NotContains(t, msg.HTML, "<script>")

	msg = Welcome("asha@example.com", "")
	assert.Contains(t, msg.HTML, "Welcome, poet!")

	msg = CompetitionConfirmation("asha@example.com", "Monsoon Verses", "txn_1")
	assert.Equal(t, "You're registered: Monsoon Verses", msg.Subject)
	assert.Contains(t, msg.HTML, "txn_1")
}

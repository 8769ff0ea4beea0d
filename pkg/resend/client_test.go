package resend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
}

func TestSend_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req struct {
			From    string   `json:"from"`
			To      []string `json:"to"`
			Subject string   `json:"subject"`
			HTML    string   `json:"html"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"jane@acme.com"}, req.To)
		assert.Equal(t, "Quick question", req.Subject)

		w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	c, err := NewClient("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	id, err := c.Send(context.Background(), Email{
		From:    "outreach@sells.group",
		To:      "jane@acme.com",
		Subject: "Quick question",
		HTML:    "<p>Hi Jane</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_123", id)
}

func TestSend_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewClient("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), Email{To: "x@y.com"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestSend_ValidationFailureIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid to address"}`))
	}))
	defer srv.Close()

	c, err := NewClient("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), Email{To: "nope"})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))

	var sendErr *SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Equal(t, http.StatusUnprocessableEntity, sendErr.StatusCode)
}

package jina

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestRead_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		w.Write([]byte(`{"code":200,"data":{"title":"Acme","url":"https://acme.com","content":"# Acme\nWe make anvils."}}`))
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	resp, err := c.Read(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme", resp.Data.Title)
	assert.Contains(t, resp.Data.Content, "anvils")
}

func TestRead_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"code":200,"data":{"content":"ok"}}`))
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	resp, err := c.Read(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRead_NonTransientStatusFailsOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	_, err := c.Read(context.Background(), "https://acme.com")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_NoResultsIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("key", WithSearchBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	resp, err := c.Search(context.Background(), "dental practices in ohio")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestSearch_Results(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":[{"title":"Acme Dental","url":"https://acmedental.com","description":"Family dentistry"}]}`))
	}))
	defer srv.Close()

	c := NewClient("key", WithSearchBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	resp, err := c.Search(context.Background(), "dental practices")
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "https://acmedental.com", resp.Data[0].URL)
}
